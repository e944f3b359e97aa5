package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"alttext-server-go/internal/platform/config"
	"alttext-server-go/internal/platform/errors"
	"alttext-server-go/internal/platform/logging"
	"alttext-server-go/internal/platform/observability"
)

// Gemini talks to the Gemini API through the generative-ai-go SDK.
type Gemini struct {
	client *genai.Client
	cfg    config.LLMConfig
	logger *logging.Logger
	text   *genai.GenerativeModel
	vision *genai.GenerativeModel
	embed  *genai.EmbeddingModel
}

func NewGemini(ctx context.Context, cfg config.LLMConfig, logger *logging.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.KindConfig, "llm.gemini", "GEMINI_API_KEY is not set")
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.KindLLM, "llm.gemini", "failed to create gemini client", err)
	}

	g := &Gemini{client: client, cfg: cfg, logger: logger}
	g.text = g.model(cfg.TextModel)
	g.vision = g.model(cfg.VisionModel)
	g.embed = client.EmbeddingModel(cfg.EmbeddingModel)
	return g, nil
}

func (g *Gemini) model(name string) *genai.GenerativeModel {
	m := g.client.GenerativeModel(name)
	m.SetTemperature(g.cfg.Temperature)
	if g.cfg.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(int32(g.cfg.MaxOutputTokens))
	}
	return m
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, prompt string) (text string, err error) {
	ctx, end := observability.StartSpan(ctx, "llm", "gemini.generate")
	defer func() { end(err) }()

	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	resp, err := g.text.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", errors.Wrap(errors.KindLLM, "llm.gemini.generate", "gemini request failed", err)
	}
	return responseText(resp)
}

func (g *Gemini) GenerateWithImage(ctx context.Context, prompt string, img Image) (text string, err error) {
	ctx, end := observability.StartSpan(ctx, "llm", "gemini.vision")
	defer func() { end(err) }()

	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	resp, err := g.vision.GenerateContent(ctx, genai.Text(prompt), genai.ImageData(mimeFormat(img.Format), img.Data))
	if err != nil {
		return "", errors.Wrap(errors.KindLLM, "llm.gemini.vision", "gemini vision request failed", err)
	}
	return responseText(resp)
}

func (g *Gemini) Embed(ctx context.Context, text string) (values []float32, err error) {
	ctx, end := observability.StartSpan(ctx, "llm", "gemini.embed")
	defer func() { end(err) }()

	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	res, err := g.embed.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, errors.Wrap(errors.KindLLM, "llm.gemini.embed", "gemini embedding failed", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return res.Embedding.Values, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
