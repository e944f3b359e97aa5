// Package vectorstore keeps caption embeddings keyed by upload filename.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// Vector is one stored embedding.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Match is a query hit.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Store defines the behaviour required by the caption service.
type Store interface {
	Upsert(ctx context.Context, vectors []Vector) error
	Query(ctx context.Context, values []float32, topK int) ([]Match, error)
	Delete(ctx context.Context, ids ...string) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the index and the backend serving it.
type Config struct {
	Driver    string
	Index     string
	Dimension int
	Metric    string
	Namespace string
	Redis     *RedisConfig
	Pinecone  *PineconeConfig
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

type PineconeConfig struct {
	APIKey     string
	ControlURL string
	Host       string
	Cloud      string
	Region     string
	Timeout    time.Duration
	// ReadyPoll bounds how long a freshly created index is polled for a host.
	ReadyPoll time.Duration
}

// Fit adapts an embedding to the index dimension: longer vectors are
// truncated and every vector is L2-normalised. dim 0 leaves values as is.
func Fit(values []float32, dim int) ([]float32, error) {
	if dim <= 0 {
		return values, nil
	}
	if len(values) < dim {
		return nil, fmt.Errorf("embedding has %d dimensions, index expects %d", len(values), dim)
	}
	out := make([]float32, dim)
	copy(out, values[:dim])

	var sum float64
	for _, v := range out {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return out, nil
	}
	norm := math.Sqrt(sum)
	for i, v := range out {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}

// Cosine returns the cosine similarity of a and b, 0 for mismatched or
// zero vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func validate(vectors []Vector, dim int) error {
	for _, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("vector id required")
		}
		if dim > 0 && len(v.Values) != dim {
			return fmt.Errorf("vector %q has %d dimensions, index expects %d", v.ID, len(v.Values), dim)
		}
	}
	return nil
}

// topMatches orders matches by descending score then id and keeps k.
func topMatches(matches []Match, k int) []Match {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
