package caption

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"alttext-server-go/internal/platform/observability"
)

type OllamaConfig struct {
	Name    string
	BaseURL string
	Model   string
	Prompt  string
	Timeout time.Duration
}

// Ollama captions with a local multimodal model such as llava.
type Ollama struct {
	cfg    OllamaConfig
	client *api.Client
}

func NewOllama(cfg OllamaConfig, httpClient *http.Client) (*Ollama, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llava"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Name == "" {
		cfg.Name = "ollama"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid ollama url %q", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Ollama{cfg: cfg, client: api.NewClient(base, httpClient)}, nil
}

func (o *Ollama) Name() string { return o.cfg.Name }

func (o *Ollama) Caption(ctx context.Context, img Image) (caption string, err error) {
	ctx, end := observability.StartSpan(ctx, "caption", "ollama")
	defer func() { end(err) }()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	stream := false
	req := &api.ChatRequest{
		Model: o.cfg.Model,
		Messages: []api.Message{{
			Role:    "user",
			Content: o.cfg.Prompt,
			Images:  []api.ImageData{api.ImageData(img.Data)},
		}},
		Stream: &stream,
	}

	var b strings.Builder
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return b.String(), nil
}
