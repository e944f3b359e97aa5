package observability

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Enabled reports whether span logging has been toggled on.
func Enabled() bool {
	_, cfg := currentLogger()
	return cfg.Enabled
}

// SpanStats aggregates finished spans of one component/operation pair.
type SpanStats struct {
	Name       string        `json:"name"`
	Count      int64         `json:"count"`
	Errors     int64         `json:"errors"`
	Total      time.Duration `json:"-"`
	Max        time.Duration `json:"-"`
	AvgMillis  float64       `json:"avg_ms"`
	MaxMillis  float64       `json:"max_ms"`
	LastFailed bool          `json:"last_failed"`
}

var (
	statsMu sync.Mutex
	stats   = map[string]*SpanStats{}
)

// StartSpan times an operation. The returned func must be called exactly
// once with the operation's error.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	logger, cfg := currentLogger()
	start := time.Now()

	if logger != nil && cfg.Enabled {
		logger.LogAttrs(ctx, slog.LevelDebug, "obs span start",
			slog.String("component", component),
			slog.String("operation", operation),
		)
	}

	return ctx, func(err error) {
		elapsed := time.Since(start)
		record(component+"."+operation, elapsed, err)

		if logger == nil {
			return
		}
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelError
		} else if !cfg.Enabled {
			return
		}

		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, "obs span end", attrs...)
	}
}

func record(name string, elapsed time.Duration, err error) {
	statsMu.Lock()
	defer statsMu.Unlock()

	s, ok := stats[name]
	if !ok {
		s = &SpanStats{Name: name}
		stats[name] = s
	}
	s.Count++
	s.Total += elapsed
	if elapsed > s.Max {
		s.Max = elapsed
	}
	s.LastFailed = err != nil
	if err != nil {
		s.Errors++
	}
}

// Snapshot returns a copy of the span statistics sorted by name.
func Snapshot() []SpanStats {
	statsMu.Lock()
	defer statsMu.Unlock()

	out := make([]SpanStats, 0, len(stats))
	for _, s := range stats {
		c := *s
		if c.Count > 0 {
			c.AvgMillis = float64(c.Total.Microseconds()) / 1000 / float64(c.Count)
		}
		c.MaxMillis = float64(c.Max.Microseconds()) / 1000
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset clears collected statistics.
func Reset() {
	statsMu.Lock()
	stats = map[string]*SpanStats{}
	statsMu.Unlock()
}

// RecordMetric emits a metric datapoint via the configured logger.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	logger, cfg := currentLogger()
	if logger == nil || !cfg.Enabled {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, labels[k]))
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "obs metric", attrs...)
}
