package vectorstore

import (
	"context"
	"fmt"
	"net/http"
)

// Driver identifiers supported by the vector index.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPinecone = "pinecone"
)

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	HTTPClient *http.Client
}

// New creates a vector store based on the provided configuration.
func New(ctx context.Context, cfg Config, deps Dependencies) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg), nil
	case DriverRedis:
		return NewRedis(ctx, cfg)
	case DriverPinecone:
		return NewPinecone(ctx, cfg, deps.HTTPClient)
	default:
		return nil, fmt.Errorf("unsupported vector store driver: %s", driver)
	}
}
