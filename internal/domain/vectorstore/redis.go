package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const redisScanBatch = 100

type redisStore struct {
	client *redis.Client
	prefix string
	dim    int
	index  string
}

// NewRedis constructs a redis-backed store. Each vector is one JSON value
// under prefix+namespace+id; queries scan the prefix.
func NewRedis(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "alttext:vector:"
	}
	if cfg.Namespace != "" {
		prefix += cfg.Namespace + ":"
	}
	return &redisStore{client: client, prefix: prefix, dim: cfg.Dimension, index: cfg.Index}, nil
}

func (s *redisStore) key(id string) string {
	return s.prefix + id
}

func (s *redisStore) Upsert(ctx context.Context, vectors []Vector) error {
	if err := validate(vectors, s.dim); err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	for _, v := range vectors {
		data, err := sonic.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode vector %q: %w", v.ID, err)
		}
		pipe.Set(ctx, s.key(v.ID), data, 0)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisStore) scanKeys(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", redisScanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *redisStore) Query(ctx context.Context, values []float32, topK int) ([]Match, error) {
	// SCAN may return a key more than once.
	byID := make(map[string]Match)
	err := s.scanKeys(ctx, func(keys []string) error {
		raws, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
		for i, raw := range raws {
			str, ok := raw.(string)
			if !ok {
				continue
			}
			var v Vector
			if err := sonic.UnmarshalString(str, &v); err != nil {
				return fmt.Errorf("decode %s: %w", keys[i], err)
			}
			byID[v.ID] = Match{ID: v.ID, Score: Cosine(values, v.Values), Metadata: v.Metadata}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(byID))
	for _, m := range byID {
		matches = append(matches, m)
	}
	return topMatches(matches, topK), nil
}

func (s *redisStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	seen := make(map[string]struct{})
	err := s.scanKeys(ctx, func(keys []string) error {
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":      DriverRedis,
		"index":     s.index,
		"dimension": s.dim,
		"prefix":    strings.TrimSuffix(s.prefix, ":"),
		"total":     len(seen),
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
