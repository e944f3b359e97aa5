// Package llm wraps the text, vision and embedding models used to enrich
// captions.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"alttext-server-go/internal/platform/config"
	"alttext-server-go/internal/platform/errors"
	"alttext-server-go/internal/platform/logging"
)

// Image is an encoded image handed to a vision model.
type Image struct {
	Data   []byte
	Format string
}

// Client is a text, vision and embedding model.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateWithImage(ctx context.Context, prompt string, img Image) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
	Close() error
}

// ErrEmptyResponse is returned when the model answers without content.
var ErrEmptyResponse = errors.New(errors.KindLLM, "llm.response", "empty response")

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, logger *logging.Logger) (Client, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		return NewGemini(ctx, cfg, logger)
	case "openai":
		return NewOpenAI(cfg, logger)
	default:
		return nil, errors.New(errors.KindConfig, "llm.new", fmt.Sprintf("unsupported llm provider: %s", cfg.Provider))
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThinking removes reasoning blocks some models emit before the answer.
func stripThinking(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}

func mimeFormat(format string) string {
	switch strings.ToLower(format) {
	case "", "jpg":
		return "jpeg"
	}
	return strings.ToLower(format)
}
