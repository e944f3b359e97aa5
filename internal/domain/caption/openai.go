package caption

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"alttext-server-go/internal/platform/observability"
)

type OpenAIConfig struct {
	Name    string
	BaseURL string
	Model   string
	APIKey  string
	Prompt  string
	Timeout time.Duration
}

// OpenAI captions through an OpenAI compatible vision endpoint.
type OpenAI struct {
	cfg    OpenAIConfig
	client *openai.Client
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai captioner %q has no api key", cfg.Name)
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAI{cfg: cfg, client: openai.NewClientWithConfig(clientConfig)}, nil
}

func (o *OpenAI) Name() string { return o.cfg.Name }

func (o *OpenAI) Caption(ctx context.Context, img Image) (caption string, err error) {
	ctx, end := observability.StartSpan(ctx, "caption", "openai")
	defer func() { end(err) }()

	ctx, cancel := withTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	dataURL := fmt.Sprintf("data:image/%s;base64,%s", mimeFormat(img.Format), base64.StdEncoding.EncodeToString(img.Data))
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.cfg.Model,
		MaxTokens: 120,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: o.cfg.Prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailLow}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai caption: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai caption: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
