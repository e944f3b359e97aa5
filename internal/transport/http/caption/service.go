// Package caption serves the upload form's caption endpoint and the
// similarity lookup over stored captions.
package caption

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainanalysis "alttext-server-go/internal/domain/analysis"
	domainimage "alttext-server-go/internal/domain/image"
	"alttext-server-go/internal/domain/vectorstore"
	"alttext-server-go/internal/platform/config"
	"alttext-server-go/internal/platform/errors"
	"alttext-server-go/internal/platform/logging"
	httptransport "alttext-server-go/internal/transport/http"
)

// Generator is the slice of the analysis service this transport needs.
type Generator interface {
	GenerateCaption(ctx context.Context, up *domainimage.Upload, imageType string) (*domainanalysis.CaptionResult, error)
	Similar(ctx context.Context, text string, topK int) ([]vectorstore.Match, error)
}

// Service is the HTTP transport of the caption flow.
type Service struct {
	logger    *logging.Logger
	generator Generator
	pipeline  *domainimage.Pipeline
	rule      httptransport.UploadRule
}

func NewService(cfg *config.Config, logger *logging.Logger, pipeline *domainimage.Pipeline, generator Generator) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "caption.http.new", "config is required")
	}
	if pipeline == nil || generator == nil {
		return nil, errors.New(errors.KindConfig, "caption.http.new", "image pipeline and generator are required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		logger:    logger,
		generator: generator,
		pipeline:  pipeline,
		rule: httptransport.UploadRule{
			Field:      "image",
			Extensions: cfg.Upload.AllowedExtensions,
			MaxBytes:   cfg.Upload.MaxBytes,
			Missing:    httptransport.Failure{Message: "No image uploaded"},
			Invalid:    httptransport.Failure{Message: "Invalid file type. Allowed types: png, jpg, jpeg, gif"},
		},
	}, nil
}

// Register mounts POST /generate-caption on root and GET /similar on api.
func (s *Service) Register(root, api *gin.RouterGroup) {
	root.POST("/generate-caption", s.handleGenerate)
	api.GET("/similar", s.handleSimilar)
	s.logger.InfoTag("HTTP", "caption routes registered")
}

// handleGenerate captions an upload and stores its embedding.
// @Summary Generate and store an image caption
// @Tags Caption
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "image (png, jpg, jpeg, gif)"
// @Param image_type formData string false "general, medical or sports"
// @Success 200 {object} CaptionResponse
// @Failure 400 {object} object
// @Failure 500 {object} object
// @Router /generate-caption [post]
func (s *Service) handleGenerate(c *gin.Context) {
	up, rejected := httptransport.ReadUpload(c, s.pipeline, s.rule)
	if rejected != nil {
		s.logger.WarnTag("HTTP", "generate-caption rejected: %s", rejected.Message)
		rejected.Write(c, httptransport.PlainError)
		return
	}

	res, err := s.generator.GenerateCaption(c.Request.Context(), up, c.PostForm("image_type"))
	if err != nil {
		_ = c.Error(err)
		httptransport.PlainError(c, http.StatusInternalServerError, "", "An error occurred: "+errors.Detail(err))
		return
	}

	c.JSON(http.StatusOK, CaptionResponse{
		Caption:        res.Caption,
		GeminiResponse: res.GeminiResponse,
		Message:        "Caption generated and stored successfully",
	})
}

// handleSimilar returns the stored uploads closest to a text query.
// @Summary Find stored uploads by caption similarity
// @Tags Caption
// @Produce json
// @Param q query string true "query text"
// @Param top_k query int false "number of matches (default 5, max 50)"
// @Success 200 {object} httptransport.APIResponse
// @Failure 400 {object} httptransport.APIResponse
// @Router /api/similar [get]
func (s *Service) handleSimilar(c *gin.Context) {
	topK, _ := strconv.Atoi(c.Query("top_k"))
	matches, err := s.generator.Similar(c.Request.Context(), c.Query("q"), topK)
	if err != nil {
		status := httptransport.StatusOf(err)
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		httptransport.RespondError(c, status, errors.Detail(err), nil)
		return
	}
	if matches == nil {
		matches = []vectorstore.Match{}
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"matches": matches}, "")
}

// CaptionResponse is the success body of /generate-caption.
type CaptionResponse struct {
	Caption        string `json:"caption"`
	GeminiResponse string `json:"gemini_response"`
	Message        string `json:"message"`
}
