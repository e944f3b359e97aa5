package caption

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"alttext-server-go/internal/platform/config"
	"alttext-server-go/internal/platform/observability"
)

type HuggingFaceConfig struct {
	Name    string
	BaseURL string
	Model   string
	Token   string
	Timeout time.Duration
	// MaxLoadWait caps the pause before retrying a model that is still loading.
	MaxLoadWait time.Duration
}

// HuggingFace calls the hosted inference API with the raw image bytes.
type HuggingFace struct {
	cfg    HuggingFaceConfig
	client *resty.Client
}

func NewHuggingFace(cfg HuggingFaceConfig, httpClient *http.Client) *HuggingFace {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultHFEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultBLIPModel
	}
	if cfg.Name == "" {
		cfg.Name = "huggingface"
	}
	if cfg.MaxLoadWait <= 0 {
		cfg.MaxLoadWait = 20 * time.Second
	}

	var c *resty.Client
	if httpClient != nil {
		c = resty.NewWithClient(httpClient)
	} else {
		c = resty.New()
	}
	c.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}
	return &HuggingFace{cfg: cfg, client: c}
}

func (h *HuggingFace) Name() string { return h.cfg.Name }

type hfError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

func (h *HuggingFace) Caption(ctx context.Context, img Image) (caption string, err error) {
	ctx, end := observability.StartSpan(ctx, "caption", "huggingface")
	defer func() { end(err) }()

	caption, wait, err := h.request(ctx, img)
	if err == nil || wait <= 0 {
		return caption, err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(wait):
	}
	caption, _, err = h.request(ctx, img)
	return caption, err
}

// request performs one call. A positive wait means the model is loading
// and the call may be retried after it.
func (h *HuggingFace) request(ctx context.Context, img Image) (string, time.Duration, error) {
	var apiErr hfError
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "image/"+mimeFormat(img.Format)).
		SetHeader("Accept", "application/json").
		SetBody(img.Data).
		SetError(&apiErr).
		Post("/" + strings.TrimLeft(h.cfg.Model, "/"))
	if err != nil {
		return "", 0, fmt.Errorf("huggingface request: %w", err)
	}

	if resp.StatusCode() == http.StatusServiceUnavailable && apiErr.EstimatedTime > 0 {
		wait := time.Duration(math.Min(apiErr.EstimatedTime, h.cfg.MaxLoadWait.Seconds()) * float64(time.Second))
		return "", wait, fmt.Errorf("huggingface model loading: %s", apiErr.Error)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return "", 0, fmt.Errorf("huggingface status %d: %s", resp.StatusCode(), msg)
	}

	out, err := parseHFCaption(resp.Body())
	return out, 0, err
}

type hfCaption struct {
	GeneratedText    string `json:"generated_text"`
	GeneratedCaption string `json:"generated_caption"`
}

func (c hfCaption) text() string {
	if c.GeneratedText != "" {
		return c.GeneratedText
	}
	return c.GeneratedCaption
}

func parseHFCaption(body []byte) (string, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var list []hfCaption
		if err := sonic.UnmarshalString(trimmed, &list); err != nil {
			return "", fmt.Errorf("decode huggingface response: %w", err)
		}
		for _, item := range list {
			if t := item.text(); t != "" {
				return t, nil
			}
		}
		return "", fmt.Errorf("huggingface response has no caption")
	}
	var single hfCaption
	if err := sonic.UnmarshalString(trimmed, &single); err != nil {
		return "", fmt.Errorf("decode huggingface response: %w", err)
	}
	if t := single.text(); t != "" {
		return t, nil
	}
	return "", fmt.Errorf("huggingface response has no caption")
}
