package analysis

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"alttext-server-go/internal/domain/caption"
	"alttext-server-go/internal/domain/image"
	"alttext-server-go/internal/domain/text"
	"alttext-server-go/internal/platform/errors"
	"alttext-server-go/internal/platform/observability"
)

type SocialResult struct {
	AltText  string   `json:"alt_text"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

// SocialMedia captions the upload, then writes a social caption and
// hashtags from an LLM context. A hashtag failure yields an empty list.
func (s *Service) SocialMedia(ctx context.Context, up *image.Upload) (res *SocialResult, err error) {
	ctx, end := observability.StartSpan(ctx, "analysis", "social_media")
	start := s.now()
	defer func() {
		end(err)
		s.track(ctx, "social_media", uploadName(up), start, err, nil)
	}()

	alt, _, err := s.altText(ctx, up)
	if err != nil {
		return nil, err
	}
	alt = text.EnsureMinWords(ctx, s.llm, alt, s.minWords)

	rawContext, err := s.generate(ctx, "llm.context", text.ContextPrompt(alt))
	if err != nil {
		return nil, err
	}
	scene := text.Clean(rawContext)

	res = &SocialResult{AltText: alt, Hashtags: []string{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.generate(gctx, "llm.social_caption", text.SocialCaptionPrompt(scene))
		if err != nil {
			return err
		}
		res.Caption = text.Clean(out)
		return nil
	})
	g.Go(func() error {
		out, err := s.llm.Generate(gctx, text.HashtagPrompt(scene))
		if err != nil {
			s.logger.ErrorTag("LLM", "hashtag generation failed: %v", err)
			return nil
		}
		res.Hashtags = text.ExtractHashtags(out)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// SEOResult merges the SEO sections with their social variants.
type SEOResult struct {
	text.SEOContent
	text.SocialContent
}

// SEO writes SEO copy for the upload and social variants of that copy.
func (s *Service) SEO(ctx context.Context, up *image.Upload) (res *SEOResult, err error) {
	ctx, end := observability.StartSpan(ctx, "analysis", "seo")
	start := s.now()
	defer func() {
		end(err)
		s.track(ctx, "seo", uploadName(up), start, err, nil)
	}()

	alt, _, err := s.altText(ctx, up)
	if err != nil {
		return nil, err
	}
	scene, err := s.generate(ctx, "llm.context", text.ContextPrompt(alt))
	if err != nil {
		return nil, err
	}
	seo, err := s.generate(ctx, "llm.seo", text.SEOPrompt(text.Clean(scene), alt))
	if err != nil {
		return nil, err
	}
	seo = strings.TrimSpace(seo)
	social, err := s.generate(ctx, "llm.social_variants", text.SocialVariantsPrompt(seo))
	if err != nil {
		return nil, err
	}
	return &SEOResult{
		SEOContent:    text.ParseSEO(seo),
		SocialContent: text.ParseSocial(strings.TrimSpace(social)),
	}, nil
}

type GeneralResult struct {
	Description string   `json:"description"`
	Objects     []string `json:"objects"`
	Colors      []string `json:"colors"`
}

// General describes the upload, lists visible objects and its dominant
// colors as hex. An object listing failure yields an empty list.
func (s *Service) General(ctx context.Context, up *image.Upload) (res *GeneralResult, err error) {
	ctx, end := observability.StartSpan(ctx, "analysis", "general")
	start := s.now()
	defer func() {
		end(err)
		s.track(ctx, "general", uploadName(up), start, err, nil)
	}()

	img, err := decode(up)
	if err != nil {
		return nil, err
	}
	processed := image.Preprocess(img)
	quality := image.Quality(processed)
	if !quality.Valid() {
		s.logger.WarnTag("Caption", "image quality issues for %s: %v", up.Filename, quality.Issues)
	}

	res = &GeneralResult{Objects: []string{}, Colors: []string{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		captioned, err := s.captionImage(gctx, caption.TypeGeneral, processed)
		if err != nil {
			return err
		}
		res.Description = captioned.Caption
		return nil
	})
	g.Go(func() error {
		vis, err := visionImage(processed)
		if err != nil {
			return err
		}
		out, err := s.llm.GenerateWithImage(gctx, text.ObjectsPrompt(), vis)
		if err != nil {
			s.logger.ErrorTag("LLM", "object listing failed: %v", err)
			return nil
		}
		if objects := text.ParseList(out); len(objects) > 0 {
			res.Objects = objects
		}
		return nil
	})
	g.Go(func() error {
		for _, c := range image.DominantColors(processed, s.colors) {
			res.Colors = append(res.Colors, c.Hex)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

type AnalyzerResult struct {
	AltText string `json:"alt_text"`
	Context string `json:"context"`
}

// ImageAnalyzer captions the upload and enriches the caption.
func (s *Service) ImageAnalyzer(ctx context.Context, up *image.Upload) (res *AnalyzerResult, err error) {
	ctx, end := observability.StartSpan(ctx, "analysis", "image_analyzer")
	start := s.now()
	defer func() {
		end(err)
		s.track(ctx, "image_analyzer", uploadName(up), start, err, nil)
	}()

	alt, _, err := s.altText(ctx, up)
	if err != nil {
		return nil, err
	}
	enhanced, err := s.generate(ctx, "llm.enhance", text.EnhancePrompt(alt))
	if err != nil {
		return nil, err
	}
	return &AnalyzerResult{AltText: alt, Context: text.Clean(enhanced)}, nil
}

// SocialAnalyze reads the upload with the vision model instead of the
// captioner and writes an expanded caption with hashtags.
func (s *Service) SocialAnalyze(ctx context.Context, up *image.Upload) (res *SocialResult, err error) {
	ctx, end := observability.StartSpan(ctx, "analysis", "social_analyze")
	start := s.now()
	defer func() {
		end(err)
		s.track(ctx, "social_analyze", uploadName(up), start, err, nil)
	}()

	img, err := decode(up)
	if err != nil {
		return nil, err
	}
	vis, err := visionImage(img)
	if err != nil {
		return nil, err
	}
	described, err := s.llm.GenerateWithImage(ctx, text.VisionContextPrompt(), vis)
	if err != nil {
		return nil, errors.Wrap(errors.KindLLM, "llm.vision_context", "image context generation failed", err)
	}
	alt := text.EnsureMinWords(ctx, s.llm, strings.TrimSpace(described), s.minWords)

	enhanced, err := s.generate(ctx, "llm.deep_analysis", text.DeepAnalysisPrompt(alt))
	if err != nil {
		return nil, err
	}
	enhanced = strings.TrimSpace(enhanced)

	hashtags := text.ExtractHashtags("")
	if out, err := s.llm.Generate(ctx, text.HashtagPrompt(enhanced)); err != nil {
		s.logger.ErrorTag("LLM", "hashtag generation failed: %v", err)
	} else {
		hashtags = text.ExtractHashtags(out)
	}
	return &SocialResult{AltText: alt, Caption: enhanced, Hashtags: hashtags}, nil
}

type MedicalResult struct {
	Analysis    text.MedicalReport `json:"analysis"`
	RawResponse string             `json:"raw_response"`
}

// Medical asks the vision model for a sectioned report on the upload.
func (s *Service) Medical(ctx context.Context, up *image.Upload) (res *MedicalResult, err error) {
	ctx, end := observability.StartSpan(ctx, "analysis", "medical")
	start := s.now()
	defer func() {
		end(err)
		s.track(ctx, "medical", uploadName(up), start, err, nil)
	}()

	img, err := decode(up)
	if err != nil {
		return nil, err
	}
	vis, err := visionImage(img)
	if err != nil {
		return nil, err
	}
	report, err := s.llm.GenerateWithImage(ctx, text.MedicalPrompt(""), vis)
	if err != nil {
		return nil, errors.Wrap(errors.KindLLM, "llm.medical", "medical analysis failed", err)
	}
	report = strings.TrimSpace(report)
	return &MedicalResult{Analysis: text.ParseMedical(report), RawResponse: report}, nil
}

type ColorAnalysis struct {
	Histogram        string    `json:"histogram"`
	PieChart         string    `json:"pie_chart"`
	DominantColors   [][3]int  `json:"dominant_colors"`
	ColorPercentages []float64 `json:"color_percentages"`
}

type SentimentScore struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

type AdvancedResult struct {
	Description   string         `json:"description"`
	ColorAnalysis ColorAnalysis  `json:"color_analysis"`
	Sentiment     SentimentScore `json:"sentiment"`
}

// Advanced combines a deep description, color charts and a sentiment
// verdict. An unusable sentiment answer falls back to Neutral 0.5.
func (s *Service) Advanced(ctx context.Context, up *image.Upload) (res *AdvancedResult, err error) {
	ctx, end := observability.StartSpan(ctx, "analysis", "advanced")
	start := s.now()
	defer func() {
		end(err)
		s.track(ctx, "advanced", uploadName(up), start, err, nil)
	}()

	alt, img, err := s.altText(ctx, up)
	if err != nil {
		return nil, err
	}
	scene, err := s.generate(ctx, "llm.context", text.ContextPrompt(alt))
	if err != nil {
		return nil, err
	}

	res = &AdvancedResult{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.generate(gctx, "llm.deep_analysis", text.DeepAnalysisPrompt(text.Clean(scene)))
		if err != nil {
			return err
		}
		res.Description = strings.TrimSpace(out)
		return nil
	})
	g.Go(func() error {
		colors := image.DominantColors(img, s.colors)
		hist, err := image.ChannelChart(image.ChannelMeans(img))
		if err != nil {
			return errors.Wrap(errors.KindDomain, "image.chart", "failed to render histogram", err)
		}
		pie, err := image.PieChart(colors)
		if err != nil {
			return errors.Wrap(errors.KindDomain, "image.chart", "failed to render pie chart", err)
		}
		ca := ColorAnalysis{Histogram: hist, PieChart: pie, DominantColors: [][3]int{}, ColorPercentages: []float64{}}
		for _, c := range colors {
			ca.DominantColors = append(ca.DominantColors, c.RGB())
			ca.ColorPercentages = append(ca.ColorPercentages, c.Percentage)
		}
		res.ColorAnalysis = ca
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sentiment := text.NeutralSentiment
	if out, err := s.llm.Generate(ctx, text.SentimentPrompt(res.Description)); err != nil {
		s.logger.ErrorTag("LLM", "sentiment analysis failed: %v", err)
	} else {
		sentiment = text.ParseSentiment(out)
	}
	res.Sentiment = SentimentScore{Score: sentiment.Score, Label: sentiment.Category}
	return res, nil
}
