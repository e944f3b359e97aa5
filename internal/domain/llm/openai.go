package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"alttext-server-go/internal/platform/config"
	"alttext-server-go/internal/platform/errors"
	"alttext-server-go/internal/platform/logging"
	"alttext-server-go/internal/platform/observability"
)

// OpenAI talks to any OpenAI compatible endpoint.
type OpenAI struct {
	client *openai.Client
	cfg    config.LLMConfig
	logger *logging.Logger
}

func NewOpenAI(cfg config.LLMConfig, logger *logging.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.KindConfig, "llm.openai", "missing OpenAI API key")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientConfig), cfg: cfg, logger: logger}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) complete(ctx context.Context, model string, msg openai.ChatCompletionMessage) (string, error) {
	ctx, cancel := withTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    []openai.ChatCompletionMessage{msg},
		MaxTokens:   o.cfg.MaxOutputTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return "", errors.Wrap(errors.KindLLM, "llm.openai.complete", "openai request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	out := stripThinking(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func (o *OpenAI) Generate(ctx context.Context, prompt string) (text string, err error) {
	ctx, end := observability.StartSpan(ctx, "llm", "openai.generate")
	defer func() { end(err) }()

	return o.complete(ctx, o.cfg.TextModel, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

func (o *OpenAI) GenerateWithImage(ctx context.Context, prompt string, img Image) (text string, err error) {
	ctx, end := observability.StartSpan(ctx, "llm", "openai.vision")
	defer func() { end(err) }()

	o.logger.DebugTag("LLM", "vision request model=%s format=%s bytes=%d", o.cfg.VisionModel, img.Format, len(img.Data))
	return o.complete(ctx, o.cfg.VisionModel, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:image/%s;base64,%s", mimeFormat(img.Format), base64.StdEncoding.EncodeToString(img.Data)),
				},
			},
		},
	})
}

func (o *OpenAI) Embed(ctx context.Context, text string) (values []float32, err error) {
	ctx, end := observability.StartSpan(ctx, "llm", "openai.embed")
	defer func() { end(err) }()

	ctx, cancel := withTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(o.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindLLM, "llm.openai.embed", "openai embedding failed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Data[0].Embedding, nil
}

func (o *OpenAI) Close() error { return nil }
