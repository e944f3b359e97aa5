// Package webapi serves the admin JSON API, health and the API docs.
package webapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"

	"alttext-server-go/internal/domain/auth"
	"alttext-server-go/internal/platform/errors"
	"alttext-server-go/internal/platform/logging"
	"alttext-server-go/internal/platform/observability"
	"alttext-server-go/internal/platform/storage"
	"alttext-server-go/internal/platform/system"
	httptransport "alttext-server-go/internal/transport/http"

	_ "alttext-server-go/internal/transport/http/docs"
)

// History reads caption records.
type History interface {
	List(ctx context.Context, limit, offset int) ([]storage.CaptionRecord, error)
	Count(ctx context.Context) (int64, error)
	Get(ctx context.Context, filename string) (*storage.CaptionRecord, error)
}

// Events reads recorded analysis events.
type Events interface {
	Recent(ctx context.Context, kind string, limit int) ([]storage.AnalysisEvent, error)
	Stats(ctx context.Context) ([]storage.KindStats, error)
}

// Probe reports the state of one dependency for /health.
type Probe func(ctx context.Context) (any, error)

type Options struct {
	History History
	Events  Events
	// Tokens is nil when auth is disabled.
	Tokens *auth.Tokens
	Probes map[string]Probe
	Logger *logging.Logger
}

type Service struct {
	history History
	events  Events
	tokens  *auth.Tokens
	probes  map[string]Probe
	logger  *logging.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.History == nil || opts.Events == nil {
		return nil, errors.New(errors.KindConfig, "webapi.new", "history and event repositories are required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Service{
		history: opts.History,
		events:  opts.Events,
		tokens:  opts.Tokens,
		probes:  opts.Probes,
		logger:  opts.Logger,
	}, nil
}

// Register mounts health and docs on root, the token exchange on api and
// the history routes on secured.
func (s *Service) Register(root, api, secured *gin.RouterGroup) {
	root.GET("/health", s.handleHealth)
	root.GET("/openapi.json", s.handleOpenAPI)
	root.GET("/docs", s.handleDocs)

	api.POST("/auth/token", s.handleToken)

	secured.GET("/history", s.handleHistoryList)
	secured.GET("/history/:filename", s.handleHistoryGet)
	secured.GET("/events", s.handleEvents)

	s.logger.InfoTag("HTTP", "web api routes registered")
}

// AuthMiddleware requires a valid bearer JWT. It is a no-op without tokens.
func (s *Service) AuthMiddleware() gin.HandlerFunc {
	return AuthMiddleware(s.tokens, s.logger)
}

type tokenRequest struct {
	Token string `json:"token"`
}

// handleToken exchanges the admin token for a JWT.
// @Summary Exchange the admin token for a JWT
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body tokenRequest true "admin token"
// @Success 200 {object} httptransport.APIResponse
// @Failure 401 {object} httptransport.APIResponse
// @Router /api/auth/token [post]
func (s *Service) handleToken(c *gin.Context) {
	if s.tokens == nil {
		httptransport.RespondError(c, http.StatusNotFound, "auth is disabled", nil)
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		httptransport.RespondError(c, http.StatusBadRequest, "token is required", nil)
		return
	}
	signed, expires, err := s.tokens.Exchange(req.Token)
	if err != nil {
		s.logger.WarnTag("HTTP", "admin token exchange refused from %s", c.ClientIP())
		httptransport.RespondError(c, http.StatusUnauthorized, "invalid admin token", nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"token":      signed,
		"token_type": "Bearer",
		"expires_at": expires.UTC().Format(time.RFC3339),
	}, "")
}

// handleHistoryList pages through caption history.
// @Summary List caption history
// @Tags Admin
// @Produce json
// @Param limit query int false "page size (default 50, max 200)"
// @Param offset query int false "offset"
// @Success 200 {object} httptransport.APIResponse
// @Router /api/history [get]
func (s *Service) handleHistoryList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := s.history.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.internal(c, err)
		return
	}
	total, err := s.history.Count(c.Request.Context())
	if err != nil {
		s.internal(c, err)
		return
	}
	if items == nil {
		items = []storage.CaptionRecord{}
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"items": items, "total": total}, "")
}

// handleHistoryGet returns the record of one filename.
// @Summary Caption history for one filename
// @Tags Admin
// @Produce json
// @Param filename path string true "upload filename"
// @Success 200 {object} httptransport.APIResponse
// @Failure 404 {object} httptransport.APIResponse
// @Router /api/history/{filename} [get]
func (s *Service) handleHistoryGet(c *gin.Context) {
	rec, err := s.history.Get(c.Request.Context(), c.Param("filename"))
	if errors.Is(err, storage.ErrNotFound) {
		httptransport.RespondError(c, http.StatusNotFound, "caption record not found", nil)
		return
	}
	if err != nil {
		s.internal(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, rec, "")
}

// handleEvents lists recent analysis events plus per kind totals.
// @Summary Recent analysis events
// @Tags Admin
// @Produce json
// @Param kind query string false "analysis kind"
// @Param limit query int false "number of events (default 50)"
// @Success 200 {object} httptransport.APIResponse
// @Router /api/events [get]
func (s *Service) handleEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	recent, err := s.events.Recent(c.Request.Context(), c.Query("kind"), limit)
	if err != nil {
		s.internal(c, err)
		return
	}
	stats, err := s.events.Stats(c.Request.Context())
	if err != nil {
		s.internal(c, err)
		return
	}
	if recent == nil {
		recent = []storage.AnalysisEvent{}
	}
	if stats == nil {
		stats = []storage.KindStats{}
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"events": recent, "stats": stats}, "")
}

// handleHealth reports dependency state, spans and resource usage.
// @Summary Service health
// @Tags System
// @Produce json
// @Success 200 {object} object
// @Failure 503 {object} object
// @Router /health [get]
func (s *Service) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	deps := make(map[string]any, len(s.probes))
	for name, probe := range s.probes {
		detail, err := probe(ctx)
		if err != nil {
			status = "degraded"
			deps[name] = gin.H{"status": "error", "error": err.Error()}
			continue
		}
		deps[name] = gin.H{"status": "ok", "detail": detail}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":       status,
		"dependencies": deps,
		"system":       system.Sample(ctx),
		"spans":        observability.Snapshot(),
	})
}

func (s *Service) handleOpenAPI(c *gin.Context) {
	doc, err := swag.ReadDoc()
	if err != nil {
		s.logger.ErrorTag("HTTP", "failed to render openapi document: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to generate openapi spec", gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
}

func (s *Service) handleDocs(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(scalarHTML))
}

func (s *Service) internal(c *gin.Context, err error) {
	_ = c.Error(err)
	s.logger.ErrorTag("HTTP", "%s failed: %v", c.FullPath(), err)
	httptransport.RespondError(c, http.StatusInternalServerError, errors.Detail(err), nil)
}

const scalarHTML = `<!DOCTYPE html>
<html lang="en">
	<head>
		<meta charset="utf-8" />
		<title>alttext-server API Reference</title>
		<meta name="viewport" content="width=device-width, initial-scale=1" />
	</head>
	<body>
		<script
			id="api-reference"
			data-url="/openapi.json"
			data-layout="modern"
			src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"
		></script>
	</body>
</html>`
