// Package analysis serves the image analysis tools and text-to-speech.
package analysis

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domainanalysis "alttext-server-go/internal/domain/analysis"
	domainimage "alttext-server-go/internal/domain/image"
	"alttext-server-go/internal/domain/tts"
	"alttext-server-go/internal/platform/config"
	"alttext-server-go/internal/platform/errors"
	"alttext-server-go/internal/platform/logging"
	httptransport "alttext-server-go/internal/transport/http"
)

// Analyzer is the slice of the analysis service this transport needs.
type Analyzer interface {
	SocialMedia(ctx context.Context, up *domainimage.Upload) (*domainanalysis.SocialResult, error)
	SEO(ctx context.Context, up *domainimage.Upload) (*domainanalysis.SEOResult, error)
	General(ctx context.Context, up *domainimage.Upload) (*domainanalysis.GeneralResult, error)
	ImageAnalyzer(ctx context.Context, up *domainimage.Upload) (*domainanalysis.AnalyzerResult, error)
	SocialAnalyze(ctx context.Context, up *domainimage.Upload) (*domainanalysis.SocialResult, error)
	Medical(ctx context.Context, up *domainimage.Upload) (*domainanalysis.MedicalResult, error)
	Advanced(ctx context.Context, up *domainimage.Upload) (*domainanalysis.AdvancedResult, error)
}

// Speaker synthesizes speech.
type Speaker interface {
	Speak(ctx context.Context, text string) (*tts.Speech, error)
}

const invalidType = "Invalid file type. Please upload a PNG, JPG, JPEG, or GIF"

type Service struct {
	logger   *logging.Logger
	analyzer Analyzer
	speaker  Speaker
	pipeline *domainimage.Pipeline
	upload   config.UploadConfig
}

func NewService(cfg *config.Config, logger *logging.Logger, pipeline *domainimage.Pipeline, analyzer Analyzer, speaker Speaker) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "analysis.http.new", "config is required")
	}
	if pipeline == nil || analyzer == nil || speaker == nil {
		return nil, errors.New(errors.KindConfig, "analysis.http.new", "image pipeline, analyzer and speaker are required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		logger:   logger,
		analyzer: analyzer,
		speaker:  speaker,
		pipeline: pipeline,
		upload:   cfg.Upload,
	}, nil
}

// Register mounts the POST side of every tool. The pages themselves are
// served by the router.
func (s *Service) Register(root *gin.RouterGroup) {
	root.POST("/social-media", s.handleSocialMedia)
	root.POST("/seo", s.handleSEO)
	root.POST("/api/analyze/general", s.handleGeneral)
	root.POST("/image-analyzer", s.handleImageAnalyzer)
	root.POST("/api/social-media/analyze", s.handleSocialAnalyze)
	root.POST("/api/analyze-medical-image", s.handleMedical)
	root.POST("/advanced-analysis", s.handleAdvanced)
	root.POST("/text-to-speech", s.handleTextToSpeech)
	s.logger.InfoTag("HTTP", "analysis routes registered")
}

func (s *Service) imageRule(missing, empty, invalid httptransport.Failure) httptransport.UploadRule {
	return httptransport.UploadRule{
		Field:      "image",
		Extensions: s.upload.AllowedExtensions,
		MaxBytes:   s.upload.MaxBytes,
		Missing:    missing,
		Empty:      empty,
		Invalid:    invalid,
	}
}

func msg(message string) httptransport.Failure { return httptransport.Failure{Message: message} }

func coded(code, message string) httptransport.Failure {
	return httptransport.Failure{Code: code, Message: message}
}

// read applies rule and writes the rejection itself; ok is false when the
// handler must stop.
func (s *Service) read(c *gin.Context, route string, rule httptransport.UploadRule, style httptransport.ErrorStyle) (*domainimage.Upload, bool) {
	up, rejected := httptransport.ReadUpload(c, s.pipeline, rule)
	if rejected != nil {
		s.logger.WarnTag("HTTP", "%s rejected: %s", route, rejected.Message)
		rejected.Write(c, style)
		return nil, false
	}
	return up, true
}

// validImage runs the magic byte and decode checks.
func (s *Service) validImage(c *gin.Context, up *domainimage.Upload, max int64) bool {
	if _, err := s.pipeline.Validate(c.Request.Context(), up, max); err != nil {
		s.logger.WarnTag("HTTP", "invalid image %s: %v", up.Filename, err)
		return false
	}
	return true
}

func (s *Service) fail(c *gin.Context, route string, err error) {
	_ = c.Error(err)
	s.logger.ErrorTag("HTTP", "%s failed: %v", route, err)
}

// handleSocialMedia builds alt text, a caption and hashtags.
// @Summary Social media caption and hashtags
// @Tags Analysis
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "image"
// @Success 200 {object} object
// @Router /social-media [post]
func (s *Service) handleSocialMedia(c *gin.Context) {
	rule := s.imageRule(msg("No image file provided"), msg("No selected file"), msg(invalidType))
	up, ok := s.read(c, "social-media", rule, httptransport.SuccessError)
	if !ok {
		return
	}
	res, err := s.analyzer.SocialMedia(c.Request.Context(), up)
	if err != nil {
		s.fail(c, "social-media", err)
		httptransport.SuccessError(c, http.StatusInternalServerError, "", errors.Detail(err))
		return
	}
	httptransport.RespondData(c, res)
}

// handleSEO builds SEO metadata and social variants.
// @Summary SEO content for an image
// @Tags Analysis
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "image"
// @Success 200 {object} object
// @Router /seo [post]
func (s *Service) handleSEO(c *gin.Context) {
	rule := s.imageRule(
		coded("NO_IMAGE", "No image file provided"),
		coded("EMPTY_FILE", "No selected file"),
		coded("INVALID_TYPE", invalidType),
	)
	up, ok := s.read(c, "seo", rule, httptransport.CodedError)
	if !ok {
		return
	}
	if !s.validImage(c, up, s.upload.MaxBytes) {
		httptransport.CodedError(c, http.StatusBadRequest, "INVALID_IMAGE", "Invalid image file")
		return
	}
	res, err := s.analyzer.SEO(c.Request.Context(), up)
	if err != nil {
		s.fail(c, "seo", err)
		httptransport.CodedError(c, http.StatusInternalServerError, "PROCESSING_ERROR", "Error processing image. Please try again.")
		return
	}
	httptransport.RespondData(c, res)
}

// handleGeneral describes the image and lists objects and colors.
// @Summary General image analysis
// @Tags Analysis
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "image"
// @Success 200 {object} object
// @Router /api/analyze/general [post]
func (s *Service) handleGeneral(c *gin.Context) {
	rule := s.imageRule(msg("No image file provided"), msg("No selected file"), msg(invalidType))
	up, ok := s.read(c, "analyze/general", rule, httptransport.PlainError)
	if !ok {
		return
	}
	if !s.validImage(c, up, s.upload.MaxBytes) {
		httptransport.PlainError(c, http.StatusBadRequest, "", "Invalid image file")
		return
	}
	res, err := s.analyzer.General(c.Request.Context(), up)
	if err != nil {
		s.fail(c, "analyze/general", err)
		httptransport.PlainError(c, http.StatusInternalServerError, "", "Error processing image: "+errors.Detail(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleImageAnalyzer returns alt text and an enhanced context.
// @Summary Alt text with enhanced context
// @Tags Analysis
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "image"
// @Success 200 {object} object
// @Router /image-analyzer [post]
func (s *Service) handleImageAnalyzer(c *gin.Context) {
	rule := s.imageRule(
		coded("NO_INPUT", "No image file provided"),
		coded("EMPTY_FILE", "No selected file"),
		coded("INVALID_TYPE", invalidType),
	)
	up, ok := s.read(c, "image-analyzer", rule, httptransport.CodedError)
	if !ok {
		return
	}
	res, err := s.analyzer.ImageAnalyzer(c.Request.Context(), up)
	if err != nil {
		s.fail(c, "image-analyzer", err)
		httptransport.CodedError(c, http.StatusInternalServerError, "PROCESSING_ERROR", "Error processing image. Please try again.")
		return
	}
	httptransport.RespondData(c, res)
}

// handleSocialAnalyze runs the vision model flavored social pipeline.
// @Summary Social media analysis through the vision model
// @Tags Analysis
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "image"
// @Success 200 {object} object
// @Router /api/social-media/analyze [post]
func (s *Service) handleSocialAnalyze(c *gin.Context) {
	rule := s.imageRule(
		coded("NO_FILE", "No image file provided"),
		coded("NO_FILE", "No image selected"),
		coded("INVALID_FILE_TYPE", "Invalid file type. Supported formats: PNG, JPEG, GIF"),
	)
	up, ok := s.read(c, "social-media/analyze", rule, httptransport.ErrorCodeError)
	if !ok {
		return
	}
	res, err := s.analyzer.SocialAnalyze(c.Request.Context(), up)
	if err != nil {
		s.fail(c, "social-media/analyze", err)
		httptransport.ErrorCodeError(c, http.StatusInternalServerError, "PROCESSING_ERROR", errors.Detail(err))
		return
	}
	httptransport.RespondData(c, res)
}

// handleMedical produces a structured medical report.
// @Summary Medical image report
// @Tags Analysis
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "medical image (png, jpg, jpeg, gif, tiff, dcm)"
// @Success 200 {object} object
// @Router /api/analyze-medical-image [post]
func (s *Service) handleMedical(c *gin.Context) {
	rule := httptransport.UploadRule{
		Field:      "file",
		Extensions: s.upload.MedicalExtensions,
		MaxBytes:   s.upload.MedicalMaxBytes,
		Missing:    msg("No file uploaded"),
		Empty:      msg("No selected file"),
		Invalid:    msg("Invalid file type. Please upload a valid medical image file."),
	}
	up, ok := s.read(c, "analyze-medical-image", rule, httptransport.SuccessError)
	if !ok {
		return
	}
	res, err := s.analyzer.Medical(c.Request.Context(), up)
	if err != nil {
		s.fail(c, "analyze-medical-image", err)
		httptransport.SuccessError(c, http.StatusInternalServerError, "", "Error processing image: "+errors.Detail(err))
		return
	}
	httptransport.RespondData(c, res)
}

// handleAdvanced returns the enhanced description, color analysis and sentiment.
// @Summary Advanced image analysis
// @Tags Analysis
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "image"
// @Success 200 {object} object
// @Router /advanced-analysis [post]
func (s *Service) handleAdvanced(c *gin.Context) {
	rule := s.imageRule(
		msg("No image file provided"),
		msg("No selected file"),
		msg("Invalid file type. Please upload a PNG, JPG, or JPEG"),
	)
	up, ok := s.read(c, "advanced-analysis", rule, httptransport.SuccessError)
	if !ok {
		return
	}
	res, err := s.analyzer.Advanced(c.Request.Context(), up)
	if err != nil {
		s.fail(c, "advanced-analysis", err)
		httptransport.SuccessError(c, http.StatusInternalServerError, "", "Error processing image: "+errors.Detail(err))
		return
	}
	httptransport.RespondData(c, res)
}

type speechRequest struct {
	Text string `json:"text"`
}

// handleTextToSpeech returns an mp3 rendering of the posted text.
// @Summary Text to speech
// @Tags Speech
// @Accept json
// @Produce audio/mpeg
// @Param request body speechRequest true "text to speak"
// @Success 200 {file} file
// @Failure 400 {object} object
// @Failure 500 {object} object
// @Router /text-to-speech [post]
func (s *Service) handleTextToSpeech(c *gin.Context) {
	var req speechRequest
	// An unreadable body is treated like a body without text.
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.Text) == "" {
		httptransport.PlainError(c, http.StatusBadRequest, "", "No text provided")
		return
	}

	speech, err := s.speaker.Speak(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, "text-to-speech", err)
		httptransport.PlainError(c, http.StatusInternalServerError, "", "Error generating speech. Please try again.")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="speech.mp3"`)
	if speech.Duration > 0 {
		c.Header("X-Audio-Duration-Ms", strconv.FormatInt(speech.Duration.Milliseconds(), 10))
	}
	c.Data(http.StatusOK, "audio/mpeg", speech.Audio)
}
