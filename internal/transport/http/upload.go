package httptransport

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"alttext-server-go/internal/domain/image"
	"alttext-server-go/internal/platform/errors"
)

// multipartSlack covers boundaries and text fields around the file part.
const multipartSlack = 1 << 20

// Failure is one rejection a route can answer with.
type Failure struct {
	Code    string
	Message string
}

// UploadRule describes the single-file form a route accepts. An empty
// Empty failure lets a blank filename fall through to the extension check.
type UploadRule struct {
	Field      string
	Extensions []string
	MaxBytes   int64
	Missing    Failure
	Empty      Failure
	Invalid    Failure
	TooLarge   Failure
	// Server answers uploads that were accepted but could not be read.
	Server     Failure
}

// UploadError is the status and failure a rejected upload maps to.
type UploadError struct {
	Status int
	Failure
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload rejected (%d): %s", e.Status, e.Message)
}

// Write renders the rejection in the route's style.
func (e *UploadError) Write(c *gin.Context, style ErrorStyle) {
	style(c, e.Status, e.Code, e.Message)
}

// ReadUpload applies rule to the request and returns the file bytes. The
// order of checks is missing part, blank filename, extension, size.
func ReadUpload(c *gin.Context, pipeline *image.Pipeline, rule UploadRule) (*image.Upload, *UploadError) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, rule.MaxBytes+multipartSlack)

	header, err := c.FormFile(rule.Field)
	if err != nil {
		switch {
		case isTooLarge(err):
			return nil, tooLarge(rule)
		case blankFilePart(c, rule.Field):
			if rule.Empty.Message != "" {
				return nil, &UploadError{Status: http.StatusBadRequest, Failure: rule.Empty}
			}
			return nil, &UploadError{Status: http.StatusBadRequest, Failure: rule.Invalid}
		default:
			return nil, &UploadError{Status: http.StatusBadRequest, Failure: rule.Missing}
		}
	}

	if header.Filename == "" && rule.Empty.Message != "" {
		return nil, &UploadError{Status: http.StatusBadRequest, Failure: rule.Empty}
	}
	if !image.AllowedFile(header.Filename, rule.Extensions) {
		return nil, &UploadError{Status: http.StatusBadRequest, Failure: rule.Invalid}
	}
	if header.Size > rule.MaxBytes {
		return nil, tooLarge(rule)
	}

	data, err := readPart(pipeline, header, rule.MaxBytes)
	if err != nil {
		var big *image.ErrTooLarge
		if errors.As(err, &big) {
			return nil, tooLarge(rule)
		}
		f := rule.Server
		if f.Message == "" {
			f = Failure{Code: "SERVER_ERROR", Message: "An unexpected error occurred. Please try again."}
		}
		return nil, &UploadError{Status: http.StatusInternalServerError, Failure: f}
	}

	return &image.Upload{
		Filename:    header.Filename,
		Data:        data,
		Format:      image.Sniff(data),
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

func readPart(pipeline *image.Pipeline, header *multipart.FileHeader, max int64) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return pipeline.Read(f, max)
}

// blankFilePart reports whether the form carried the field without a
// filename, which is what browsers send for an empty file input.
func blankFilePart(c *gin.Context, field string) bool {
	form := c.Request.MultipartForm
	if form == nil {
		return false
	}
	_, ok := form.Value[field]
	return ok
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func tooLarge(rule UploadRule) *UploadError {
	f := rule.TooLarge
	if f.Message == "" {
		f = Failure{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File too large. Maximum size is %d MB", rule.MaxBytes>>20),
		}
	}
	return &UploadError{Status: http.StatusRequestEntityTooLarge, Failure: f}
}
