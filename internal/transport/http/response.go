package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alttext-server-go/internal/platform/errors"
)

// APIResponse is the envelope of the JSON API routes under /api.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// RespondSuccess writes an APIResponse success envelope.
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}
	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondError writes an APIResponse failure envelope.
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// StatusOf maps an error kind onto an HTTP status.
func StatusOf(err error) int {
	if errors.IsKind(err, errors.KindValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ErrorStyle renders one route family's error body. code is empty for
// styles that carry no machine readable code.
type ErrorStyle func(c *gin.Context, status int, code, message string)

// PlainError writes {"error": message}.
func PlainError(c *gin.Context, status int, _ string, message string) {
	c.JSON(status, gin.H{"error": message})
}

// SuccessError writes {"success": false, "error": message}.
func SuccessError(c *gin.Context, status int, _ string, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// CodedError writes {"success": false, "error": message, "code": code}.
func CodedError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"success": false, "error": message, "code": code})
}

// ErrorCodeError writes {"success": false, "error": message, "error_code": code}.
func ErrorCodeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"success": false, "error": message, "error_code": code})
}

// RespondData writes {"success": true, "data": data}.
func RespondData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
