package webapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"alttext-server-go/internal/domain/auth"
	"alttext-server-go/internal/platform/logging"
	httptransport "alttext-server-go/internal/transport/http"
)

// ClaimsKey is the gin context key holding verified *auth.Claims.
const ClaimsKey = "auth.claims"

// AuthMiddleware verifies "Authorization: Bearer <jwt>". A nil tokens
// value lets every request through.
func AuthMiddleware(tokens *auth.Tokens, logger *logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.Discard()
	}
	return func(c *gin.Context) {
		if tokens == nil {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			httptransport.RespondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			httptransport.RespondError(c, http.StatusUnauthorized, "malformed authorization header", nil)
			c.Abort()
			return
		}

		claims, err := tokens.Verify(strings.TrimSpace(raw))
		if err != nil {
			logger.WarnTag("HTTP", "rejected token for %s: %v", c.Request.URL.Path, err)
			httptransport.RespondError(c, http.StatusUnauthorized, "invalid or expired token", nil)
			c.Abort()
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
