package analysis

import (
	"context"
	"strings"

	"alttext-server-go/internal/domain/eventbus"
	"alttext-server-go/internal/domain/image"
	"alttext-server-go/internal/domain/vectorstore"
	"alttext-server-go/internal/platform/errors"
	"alttext-server-go/internal/platform/observability"
)

// CaptionResult is the body of a successful /generate-caption call.
type CaptionResult struct {
	Caption        string `json:"caption"`
	GeminiResponse string `json:"gemini_response"`
	ImageType      string `json:"-"`
	Provider       string `json:"-"`
	VectorDim      int    `json:"-"`
}

// GenerateCaption captions the upload, asks the LLM about the caption and
// stores the caption embedding under the client filename. Nothing is
// returned unless every step succeeded.
func (s *Service) GenerateCaption(ctx context.Context, up *image.Upload, imageType string) (res *CaptionResult, err error) {
	ctx, end := observability.StartSpan(ctx, "caption", "generate")
	start := s.now()
	defer func() {
		end(err)
		s.track(ctx, "caption", uploadName(up), start, err, nil)
	}()

	img, err := decode(up)
	if err != nil {
		return nil, err
	}
	captioned, err := s.captionImage(ctx, imageType, img)
	if err != nil {
		return nil, err
	}

	answer, err := s.generate(ctx, "llm.caption_response", captioned.Caption)
	if err != nil {
		return nil, err
	}

	embedding, err := s.llm.Embed(ctx, captioned.Caption)
	if err != nil {
		return nil, errors.Wrap(errors.KindLLM, "llm.embed", "embedding failed", err)
	}
	values, err := vectorstore.Fit(embedding, s.dimension)
	if err != nil {
		return nil, errors.Wrap(errors.KindVector, "vector.fit", "embedding does not fit the index", err)
	}
	err = s.vectors.Upsert(ctx, []vectorstore.Vector{{
		ID:     up.Filename,
		Values: values,
		Metadata: map[string]any{
			"caption":    captioned.Caption,
			"image_type": captioned.ImageType,
		},
	}})
	if err != nil {
		return nil, errors.Wrap(errors.KindVector, "vector.upsert", "failed to store embedding", err)
	}

	res = &CaptionResult{
		Caption:        captioned.Caption,
		GeminiResponse: answer,
		ImageType:      captioned.ImageType,
		Provider:       captioned.Provider,
		VectorDim:      len(values),
	}
	s.publish(eventbus.TopicCaptionStored, eventbus.CaptionStored{
		RequestID:   RequestID(ctx),
		Filename:    up.Filename,
		ImageType:   res.ImageType,
		Caption:     res.Caption,
		LLMResponse: res.GeminiResponse,
		Provider:    res.Provider,
		VectorDim:   res.VectorDim,
		Image:       up.Data,
		ContentType: up.ContentType,
		StoredAt:    s.now(),
	})
	s.logger.InfoTag("Vector", "stored %d-dim embedding for %s", len(values), up.Filename)
	return res, nil
}

// Similar returns the stored filenames whose captions are closest to text.
func (s *Service) Similar(ctx context.Context, text string, topK int) ([]vectorstore.Match, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New(errors.KindValidation, "analysis.similar", "No text provided")
	}
	if topK <= 0 || topK > 50 {
		topK = 5
	}
	embedding, err := s.llm.Embed(ctx, text)
	if err != nil {
		return nil, errors.Wrap(errors.KindLLM, "llm.embed", "embedding failed", err)
	}
	values, err := vectorstore.Fit(embedding, s.dimension)
	if err != nil {
		return nil, errors.Wrap(errors.KindVector, "vector.fit", "embedding does not fit the index", err)
	}
	matches, err := s.vectors.Query(ctx, values, topK)
	if err != nil {
		return nil, errors.Wrap(errors.KindVector, "vector.query", "query failed", err)
	}
	return matches, nil
}

func uploadName(up *image.Upload) string {
	if up == nil {
		return ""
	}
	return up.Filename
}
