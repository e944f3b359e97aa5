// Package caption turns images into short captions through pluggable
// image-to-text models.
package caption

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"alttext-server-go/internal/domain/text"
	"alttext-server-go/internal/platform/config"
	"alttext-server-go/internal/platform/errors"
	"alttext-server-go/internal/platform/logging"
)

// Image types accepted by the upload form.
const (
	TypeGeneral = "general"
	TypeMedical = "medical"
	TypeSports  = "sports"
)

// Types lists the image types in form order.
var Types = []string{TypeGeneral, TypeMedical, TypeSports}

// Image is an encoded image to caption.
type Image struct {
	Data   []byte
	Format string
}

// Captioner is an image-to-text model client.
type Captioner interface {
	Caption(ctx context.Context, img Image) (string, error)
	Name() string
}

// NormalizeType lowercases imageType, falling back to general for unknown
// or empty values.
func NormalizeType(imageType string) string {
	t := strings.ToLower(strings.TrimSpace(imageType))
	for _, known := range Types {
		if t == known {
			return t
		}
	}
	return TypeGeneral
}

// Router picks a captioner per image type. A type without a dedicated
// captioner uses the general one.
type Router struct {
	general Captioner
	byType  map[string]Captioner
	logger  *logging.Logger
}

func NewRouter(general Captioner, byType map[string]Captioner, logger *logging.Logger) (*Router, error) {
	if general == nil {
		return nil, errors.New(errors.KindConfig, "caption.router", "general captioner is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	routes := make(map[string]Captioner, len(byType))
	for t, c := range byType {
		if c != nil {
			routes[NormalizeType(t)] = c
		}
	}
	return &Router{general: general, byType: routes, logger: logger}, nil
}

// Route returns the normalised image type and its captioner.
func (r *Router) Route(imageType string) (string, Captioner) {
	t := NormalizeType(imageType)
	if c, ok := r.byType[t]; ok {
		return t, c
	}
	return t, r.general
}

// Routes reports which captioner serves each image type.
func (r *Router) Routes() map[string]string {
	out := make(map[string]string, len(Types))
	for _, t := range Types {
		_, c := r.Route(t)
		out[t] = c.Name()
	}
	return out
}

// Result is a cleaned caption and where it came from.
type Result struct {
	Caption   string
	ImageType string
	Provider  string
}

// Caption routes img by type, captions it and cleans the output.
func (r *Router) Caption(ctx context.Context, imageType string, img Image) (*Result, error) {
	t, c := r.Route(imageType)
	start := time.Now()
	raw, err := c.Caption(ctx, img)
	if err != nil {
		return nil, errors.Wrap(errors.KindCaption, "caption."+c.Name(), "captioning failed", err)
	}
	out := strings.TrimSpace(text.Clean(raw))
	if out == "" {
		return nil, errors.New(errors.KindCaption, "caption."+c.Name(), "captioner returned an empty caption")
	}
	r.logger.DebugTag("Caption", "type=%s provider=%s took=%s caption=%q", t, c.Name(), time.Since(start), out)
	return &Result{Caption: out, ImageType: t, Provider: c.Name()}, nil
}

// FromConfig builds every configured captioner and wires the routes.
func FromConfig(cfg config.CaptionerConfig, logger *logging.Logger) (*Router, error) {
	built := make(map[string]Captioner, len(cfg.Providers))
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c, err := newProvider(name, cfg.Providers[name], cfg.Timeout)
		if err != nil {
			return nil, err
		}
		built[name] = c
	}

	general, ok := built[cfg.Provider]
	if !ok {
		return nil, errors.New(errors.KindConfig, "caption.from_config", fmt.Sprintf("captioner %q is not defined", cfg.Provider))
	}
	byType := make(map[string]Captioner, len(cfg.Routes))
	for imageType, name := range cfg.Routes {
		c, ok := built[name]
		if !ok {
			return nil, errors.New(errors.KindConfig, "caption.from_config", fmt.Sprintf("route %q points at unknown captioner %q", imageType, name))
		}
		byType[imageType] = c
	}
	return NewRouter(general, byType, logger)
}

func newProvider(name string, p config.CaptionProvider, timeout time.Duration) (Captioner, error) {
	switch p.Type {
	case "huggingface":
		return NewHuggingFace(HuggingFaceConfig{
			Name:    name,
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Token:   p.APIKey,
			Timeout: timeout,
		}, nil), nil
	case "ollama":
		return NewOllama(OllamaConfig{Name: name, BaseURL: p.BaseURL, Model: p.Model, Prompt: p.Prompt, Timeout: timeout}, nil)
	case "openai":
		return NewOpenAI(OpenAIConfig{Name: name, BaseURL: p.BaseURL, Model: p.Model, APIKey: p.APIKey, Prompt: p.Prompt, Timeout: timeout})
	default:
		return nil, errors.New(errors.KindConfig, "caption.provider", fmt.Sprintf("captioner %q has unsupported type %q", name, p.Type))
	}
}

// DefaultPrompt is sent to chat style vision models.
const DefaultPrompt = "Write one short, factual sentence describing this image for use as alt text."

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func mimeFormat(format string) string {
	switch strings.ToLower(format) {
	case "", "jpg":
		return "jpeg"
	}
	return strings.ToLower(format)
}
