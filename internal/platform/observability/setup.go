package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Config captures observability toggles. Enabled turns on per-span debug
// logging; span statistics are always collected.
type Config struct {
	Enabled bool
}

// ShutdownFunc tears down observability state.
type ShutdownFunc func(context.Context) error

var (
	loggerMu             sync.RWMutex
	instrumentationLog   *slog.Logger
	instrumentationState Config
)

func currentLogger() (*slog.Logger, Config) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return instrumentationLog, instrumentationState
}

// Setup installs the logger used by spans and metrics.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	loggerMu.Lock()
	instrumentationLog = logger
	instrumentationState = cfg
	loggerMu.Unlock()

	if logger != nil {
		if cfg.Enabled {
			logger.InfoContext(ctx, "[OBSERVABILITY] span logging enabled")
		} else {
			logger.InfoContext(ctx, "[OBSERVABILITY] span logging disabled")
		}
	}

	return func(context.Context) error {
		loggerMu.Lock()
		instrumentationLog = nil
		instrumentationState = Config{}
		loggerMu.Unlock()
		return nil
	}, nil
}
