package vectorstore

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

const pineconeAPIVersion = "2024-07"

type pineconeStore struct {
	control   *resty.Client
	data      *resty.Client
	index     string
	namespace string
	dim       int
	host      string
}

type pineconeIndex struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type pineconeError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

func (e *pineconeError) text() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}
	return e.Message
}

func newPineconeClient(base, apiKey string, timeout time.Duration, httpClient *http.Client) *resty.Client {
	var c *resty.Client
	if httpClient != nil {
		c = resty.NewWithClient(httpClient)
	} else {
		c = resty.New()
	}
	return c.
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(timeout).
		SetHeader("Api-Key", apiKey).
		SetHeader("X-Pinecone-API-Version", pineconeAPIVersion).
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
}

// NewPinecone connects to the configured index. When no data plane host is
// configured the control plane is asked for it and the index is created
// (serverless, cosine) when missing.
func NewPinecone(ctx context.Context, cfg Config, httpClient *http.Client) (Store, error) {
	if cfg.Pinecone == nil || cfg.Pinecone.APIKey == "" {
		return nil, fmt.Errorf("pinecone api key required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("pinecone index name required")
	}
	pc := cfg.Pinecone
	timeout := pc.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	metric := cfg.Metric
	if metric == "" {
		metric = "cosine"
	}

	s := &pineconeStore{
		control:   newPineconeClient(pc.ControlURL, pc.APIKey, timeout, httpClient),
		index:     cfg.Index,
		namespace: cfg.Namespace,
		dim:       cfg.Dimension,
		host:      pc.Host,
	}

	if s.host == "" {
		host, err := s.ensureIndex(ctx, metric, pc)
		if err != nil {
			return nil, err
		}
		s.host = host
	}
	if !strings.Contains(s.host, "://") {
		s.host = "https://" + s.host
	}
	s.data = newPineconeClient(s.host, pc.APIKey, timeout, httpClient)
	return s, nil
}

func (s *pineconeStore) ensureIndex(ctx context.Context, metric string, pc *PineconeConfig) (string, error) {
	var list struct {
		Indexes []pineconeIndex `json:"indexes"`
	}
	if err := s.call(ctx, s.control, http.MethodGet, "/indexes", nil, &list); err != nil {
		return "", fmt.Errorf("list pinecone indexes: %w", err)
	}
	for _, idx := range list.Indexes {
		if idx.Name == s.index {
			if s.dim > 0 && idx.Dimension != 0 && idx.Dimension != s.dim {
				return "", fmt.Errorf("pinecone index %s has dimension %d, expected %d", s.index, idx.Dimension, s.dim)
			}
			return idx.Host, nil
		}
	}

	body := map[string]any{
		"name":      s.index,
		"dimension": s.dim,
		"metric":    metric,
		"spec": map[string]any{
			"serverless": map[string]string{"cloud": pc.Cloud, "region": pc.Region},
		},
	}
	var created pineconeIndex
	if err := s.call(ctx, s.control, http.MethodPost, "/indexes", body, &created); err != nil {
		return "", fmt.Errorf("create pinecone index %s: %w", s.index, err)
	}
	if created.Host != "" && created.Status.Ready {
		return created.Host, nil
	}
	return s.waitReady(ctx, pc.ReadyPoll)
}

func (s *pineconeStore) waitReady(ctx context.Context, budget time.Duration) (string, error) {
	if budget <= 0 {
		budget = 60 * time.Second
	}
	deadline := time.Now().Add(budget)
	interval := 500 * time.Millisecond
	for {
		var idx pineconeIndex
		if err := s.call(ctx, s.control, http.MethodGet, "/indexes/"+s.index, nil, &idx); err != nil {
			return "", err
		}
		if idx.Host != "" && idx.Status.Ready {
			return idx.Host, nil
		}
		if time.Now().After(deadline) {
			if idx.Host != "" {
				return idx.Host, nil
			}
			return "", fmt.Errorf("pinecone index %s not ready after %s", s.index, budget)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (s *pineconeStore) call(ctx context.Context, c *resty.Client, method, path string, body, out any) error {
	var apiErr pineconeError
	req := c.R().SetContext(ctx).SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		msg := apiErr.text()
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return fmt.Errorf("pinecone %s %s: status %d: %s", method, path, resp.StatusCode(), msg)
	}
	return nil
}

func (s *pineconeStore) Upsert(ctx context.Context, vectors []Vector) error {
	if err := validate(vectors, s.dim); err != nil {
		return err
	}
	body := map[string]any{"vectors": vectors}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	var out struct {
		UpsertedCount int `json:"upsertedCount"`
	}
	return s.call(ctx, s.data, http.MethodPost, "/vectors/upsert", body, &out)
}

func (s *pineconeStore) Query(ctx context.Context, values []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 10
	}
	body := map[string]any{
		"vector":          values,
		"topK":            topK,
		"includeMetadata": true,
	}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	var out struct {
		Matches []Match `json:"matches"`
	}
	if err := s.call(ctx, s.data, http.MethodPost, "/query", body, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

func (s *pineconeStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"ids": ids}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	return s.call(ctx, s.data, http.MethodPost, "/vectors/delete", body, nil)
}

func (s *pineconeStore) Stats(ctx context.Context) (map[string]any, error) {
	var out struct {
		Dimension        int     `json:"dimension"`
		TotalVectorCount int64   `json:"totalVectorCount"`
		IndexFullness    float64 `json:"indexFullness"`
	}
	if err := s.call(ctx, s.data, http.MethodPost, "/describe_index_stats", map[string]any{}, &out); err != nil {
		return nil, err
	}
	return map[string]any{
		"type":      DriverPinecone,
		"index":     s.index,
		"host":      s.host,
		"dimension": out.Dimension,
		"total":     out.TotalVectorCount,
	}, nil
}

func (s *pineconeStore) Close(context.Context) error { return nil }
