package analysis

import (
	"bytes"
	"context"
	"errors"
	stdimage "image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alttext-server-go/internal/domain/caption"
	"alttext-server-go/internal/domain/eventbus"
	"alttext-server-go/internal/domain/image"
	"alttext-server-go/internal/domain/llm"
	"alttext-server-go/internal/domain/vectorstore"
	perrors "alttext-server-go/internal/platform/errors"
)

type fakeCaptioner struct {
	out string
	err error
}

func (f fakeCaptioner) Caption(_ context.Context, imageType string, img caption.Image) (*caption.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if img.Format != "jpeg" || len(img.Data) == 0 {
		return nil, errors.New("captioner expects jpeg bytes")
	}
	return &caption.Result{Caption: f.out, ImageType: caption.NormalizeType(imageType), Provider: "fake"}, nil
}

// fakeLLM answers by prompt prefix.
type fakeLLM struct {
	mu        sync.Mutex
	answers   map[string]string
	failures  map[string]error
	vision    string
	visionErr error
	embedding []float32
	embedErr  error
	prompts   []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	for prefix, err := range f.failures {
		if strings.HasPrefix(prompt, prefix) {
			return "", err
		}
	}
	for prefix, out := range f.answers {
		if strings.HasPrefix(prompt, prefix) {
			return out, nil
		}
	}
	return "Gemini says hi", nil
}

func (f *fakeLLM) GenerateWithImage(_ context.Context, prompt string, img llm.Image) (string, error) {
	if img.Format != "jpeg" {
		return "", errors.New("vision expects jpeg")
	}
	if f.visionErr != nil {
		return "", f.visionErr
	}
	if strings.HasPrefix(prompt, "List the distinct objects") {
		return "cat, Sofa, cat, - lamp", nil
	}
	return f.vision, nil
}

func (f *fakeLLM) Embed(context.Context, string) ([]float32, error) {
	return f.embedding, f.embedErr
}

func (f *fakeLLM) Name() string { return "fake" }
func (f *fakeLLM) Close() error { return nil }

type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) PublishAsync(_ string, args ...any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, args...)
	return true
}

func (r *recorder) analysis() []eventbus.AnalysisCompleted {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []eventbus.AnalysisCompleted
	for _, e := range r.events {
		if ev, ok := e.(eventbus.AnalysisCompleted); ok {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) stored() []eventbus.CaptionStored {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []eventbus.CaptionStored
	for _, e := range r.events {
		if ev, ok := e.(eventbus.CaptionStored); ok {
			out = append(out, ev)
		}
	}
	return out
}

func pngUpload(t *testing.T, name string) *image.Upload {
	t.Helper()
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			c := color.NRGBA{R: 220, G: 40, B: 40, A: 255}
			if x >= 32 {
				c = color.NRGBA{R: 30, G: 60, B: 200, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &image.Upload{Filename: name, Data: buf.Bytes(), Format: "png", ContentType: "image/png"}
}

type fixture struct {
	svc     *Service
	llm     *fakeLLM
	vectors vectorstore.Store
	events  *recorder
}

func newFixture(t *testing.T, captionText string) *fixture {
	t.Helper()
	fl := &fakeLLM{
		answers: map[string]string{
			"Write a clear, concise description":     "A cat cat resting indoors.",
			"This image description is too short":    "a small cat sitting on a wooden chair",
			"Write an engaging social media caption": "Cozy cat vibes",
			"Suggest 8 to 10":                        "Try these: #cat #cozy",
			"Write SEO content":                      "Meta Title: Cat Print\nMeta Description: A calm cat.\nKeywords: cat, pet",
			"Produce social media variations":        "Instagram:\nInsta one\nTwitter:\nTweet one\nFacebook:\nFB post\nHashtags:\n#cat #pet",
			"Rewrite this description":               "A richly detailed cat.",
			"Expand on this image description":       "  A deep analysis of a cat.  ",
			"Classify the sentiment":                 "```json\n{\"category\":\"Positive\",\"score\":0.9,\"indicators\":[\"warm\"]}\n```",
		},
		failures:  map[string]error{},
		vision:    "A detailed view of a cat on a red and blue blanket near a window.",
		embedding: []float32{3, 4, 0, 0, 9, 9},
	}
	vectors := vectorstore.NewMemory(vectorstore.Config{Dimension: 4, Index: "test"})
	rec := &recorder{}
	svc, err := NewService(Options{
		Captioner: fakeCaptioner{out: captionText},
		LLM:       fl,
		Vectors:   vectors,
		Events:    rec,
		Dimension: 4,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, llm: fl, vectors: vectors, events: rec}
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(Options{})
	require.Error(t, err)
	assert.True(t, perrors.IsKind(err, perrors.KindConfig))
}

func TestGenerateCaption_StoresFittedVector(t *testing.T) {
	f := newFixture(t, "a dog on grass")
	ctx := WithRequestID(context.Background(), "req-42")

	res, err := f.svc.GenerateCaption(ctx, pngUpload(t, "My Dog.PNG"), "SPORTS")
	require.NoError(t, err)
	assert.Equal(t, "a dog on grass", res.Caption)
	assert.Equal(t, "Gemini says hi", res.GeminiResponse)
	assert.Equal(t, "sports", res.ImageType)
	assert.Equal(t, 4, res.VectorDim)
	assert.Contains(t, f.llm.prompts, "a dog on grass")

	matches, err := f.vectors.Query(context.Background(), []float32{0.6, 0.8, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "My Dog.PNG", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)

	stored := f.events.stored()
	require.Len(t, stored, 1)
	assert.Equal(t, "req-42", stored[0].RequestID)
	assert.Equal(t, "image/png", stored[0].ContentType)

	done := f.events.analysis()
	require.Len(t, done, 1)
	assert.True(t, done[0].Success)
	assert.Equal(t, "caption", done[0].Kind)
}

func TestGenerateCaption_Failures(t *testing.T) {
	t.Run("undecodable", func(t *testing.T) {
		f := newFixture(t, "a dog")
		_, err := f.svc.GenerateCaption(context.Background(), &image.Upload{Filename: "x.png", Data: []byte("nope")}, "")
		require.Error(t, err)
		done := f.events.analysis()
		require.Len(t, done, 1)
		assert.False(t, done[0].Success)
		assert.Empty(t, f.events.stored())
	})
	t.Run("short embedding", func(t *testing.T) {
		f := newFixture(t, "a dog")
		f.llm.embedding = []float32{1, 2}
		_, err := f.svc.GenerateCaption(context.Background(), pngUpload(t, "a.png"), "")
		require.Error(t, err)
		assert.True(t, perrors.IsKind(err, perrors.KindVector))
		stats, err := f.vectors.Stats(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 0, stats["total"])
	})
	t.Run("captioner error", func(t *testing.T) {
		f := newFixture(t, "")
		f.svc.captioner = fakeCaptioner{err: errors.New("model offline")}
		_, err := f.svc.GenerateCaption(context.Background(), pngUpload(t, "a.png"), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model offline")
	})
	t.Run("embed error", func(t *testing.T) {
		f := newFixture(t, "a dog")
		f.llm.embedErr = errors.New("quota")
		_, err := f.svc.GenerateCaption(context.Background(), pngUpload(t, "a.png"), "")
		require.Error(t, err)
		assert.True(t, perrors.IsKind(err, perrors.KindLLM))
	})
}

func TestSimilar(t *testing.T) {
	f := newFixture(t, "a dog on grass")
	_, err := f.svc.GenerateCaption(context.Background(), pngUpload(t, "dog.png"), "")
	require.NoError(t, err)

	matches, err := f.svc.Similar(context.Background(), "dog", 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "dog.png", matches[0].ID)

	_, err = f.svc.Similar(context.Background(), "  ", 3)
	assert.True(t, perrors.IsKind(err, perrors.KindValidation))
}

func TestSocialMedia(t *testing.T) {
	f := newFixture(t, "a cat")
	res, err := f.svc.SocialMedia(context.Background(), pngUpload(t, "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, "a small cat sitting on a wooden chair", res.AltText)
	assert.Equal(t, "Cozy cat vibes", res.Caption)
	assert.Equal(t, []string{"#cat", "#cozy"}, res.Hashtags)
}

func TestSocialMedia_HashtagFailureYieldsEmptyList(t *testing.T) {
	f := newFixture(t, "a cat sitting on a sunny windowsill today")
	f.llm.failures["Suggest 8 to 10"] = errors.New("quota")
	res, err := f.svc.SocialMedia(context.Background(), pngUpload(t, "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, []string{}, res.Hashtags)
	assert.Equal(t, "a cat sitting on a sunny windowsill today", res.AltText)
}

func TestSocialMedia_CaptionFailureFails(t *testing.T) {
	f := newFixture(t, "a cat")
	f.llm.failures["Write an engaging social media caption"] = errors.New("blocked")
	_, err := f.svc.SocialMedia(context.Background(), pngUpload(t, "cat.png"))
	require.Error(t, err)
}

func TestSEO(t *testing.T) {
	f := newFixture(t, "a cat")
	res, err := f.svc.SEO(context.Background(), pngUpload(t, "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, "Cat Print", res.MetaTitle)
	assert.Equal(t, "A calm cat.", res.MetaDescription)
	assert.Equal(t, []string{"cat", "pet"}, res.Keywords)
	assert.Equal(t, []string{"Insta one"}, res.InstagramCaptions)
	assert.Equal(t, "FB post", res.FacebookPost)
	assert.Equal(t, []string{"cat", "pet"}, res.Hashtags)
}

func TestGeneral(t *testing.T) {
	f := newFixture(t, "a cat on a blanket")
	res, err := f.svc.General(context.Background(), pngUpload(t, "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, "a cat on a blanket", res.Description)
	assert.Equal(t, []string{"cat", "Sofa", "lamp"}, res.Objects)
	require.NotEmpty(t, res.Colors)
	for _, c := range res.Colors {
		assert.Regexp(t, `^#[0-9a-f]{6}$`, c)
	}
}

func TestGeneral_ObjectFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, "a cat")
	f.llm.visionErr = errors.New("vision down")
	res, err := f.svc.General(context.Background(), pngUpload(t, "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, []string{}, res.Objects)
}

func TestImageAnalyzer(t *testing.T) {
	f := newFixture(t, "a cat")
	res, err := f.svc.ImageAnalyzer(context.Background(), pngUpload(t, "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, "a cat", res.AltText)
	assert.Equal(t, "A richly detailed cat.", res.Context)
}

func TestSocialAnalyze(t *testing.T) {
	f := newFixture(t, "unused")
	res, err := f.svc.SocialAnalyze(context.Background(), pngUpload(t, "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, f.llm.vision, res.AltText)
	assert.Equal(t, "A deep analysis of a cat.", res.Caption)
	assert.Equal(t, []string{"#cat", "#cozy"}, res.Hashtags)

	f.llm.visionErr = errors.New("vision down")
	_, err = f.svc.SocialAnalyze(context.Background(), pngUpload(t, "cat.png"))
	require.Error(t, err)
}

func TestMedical(t *testing.T) {
	f := newFixture(t, "unused")
	f.llm.vision = "Technical Assessment\nSharp image.\nNotable Findings\nNone."
	res, err := f.svc.Medical(context.Background(), pngUpload(t, "scan.png"))
	require.NoError(t, err)
	assert.Equal(t, "Sharp image.", res.Analysis.TechnicalAssessment)
	assert.Equal(t, "None.", res.Analysis.NotableFindings)
	assert.Equal(t, f.llm.vision, res.RawResponse)

	_, err = f.svc.Medical(context.Background(), &image.Upload{Filename: "scan.dcm", Data: []byte("DICM")})
	require.Error(t, err)
}

func TestAdvanced(t *testing.T) {
	f := newFixture(t, "a cat")
	res, err := f.svc.Advanced(context.Background(), pngUpload(t, "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, "A deep analysis of a cat.", res.Description)
	assert.Equal(t, SentimentScore{Score: 0.9, Label: "Positive"}, res.Sentiment)

	ca := res.ColorAnalysis
	assert.NotEmpty(t, ca.Histogram)
	assert.NotEmpty(t, ca.PieChart)
	require.Len(t, ca.DominantColors, len(ca.ColorPercentages))
	total := 0.0
	for _, p := range ca.ColorPercentages {
		total += p
	}
	assert.InDelta(t, 100, total, 0.5)
}

func TestAdvanced_SentimentFallback(t *testing.T) {
	f := newFixture(t, "a cat")
	f.llm.failures["Classify the sentiment"] = errors.New("quota")
	res, err := f.svc.Advanced(context.Background(), pngUpload(t, "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, SentimentScore{Score: 0.5, Label: "Neutral"}, res.Sentiment)
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, "abc", RequestID(WithRequestID(context.Background(), "abc")))
	assert.Len(t, RequestID(context.Background()), 36)
}
