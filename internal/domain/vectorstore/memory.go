package vectorstore

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu    sync.RWMutex
	items map[string]Vector
	dim   int
	index string
}

// NewMemory builds an in-process store scanned with cosine similarity.
func NewMemory(cfg Config) Store {
	return &memoryStore{items: make(map[string]Vector), dim: cfg.Dimension, index: cfg.Index}
}

func (s *memoryStore) Upsert(_ context.Context, vectors []Vector) error {
	if err := validate(vectors, s.dim); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		v.Values = append([]float32(nil), v.Values...)
		s.items[v.ID] = v
	}
	return nil
}

func (s *memoryStore) Query(_ context.Context, values []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	matches := make([]Match, 0, len(s.items))
	for _, v := range s.items {
		matches = append(matches, Match{ID: v.ID, Score: Cosine(values, v.Values), Metadata: v.Metadata})
	}
	s.mu.RUnlock()
	return topMatches(matches, topK), nil
}

func (s *memoryStore) Delete(_ context.Context, ids ...string) error {
	s.mu.Lock()
	for _, id := range ids {
		delete(s.items, id)
	}
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Stats(context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"type":      DriverMemory,
		"index":     s.index,
		"dimension": s.dim,
		"total":     len(s.items),
	}, nil
}

func (s *memoryStore) Close(context.Context) error { return nil }
