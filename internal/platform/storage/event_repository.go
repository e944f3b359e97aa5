package storage

import (
	"context"

	"gorm.io/gorm"

	"alttext-server-go/internal/platform/errors"
)

// EventRepository records one row per analysis request.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Record(ctx context.Context, ev *AnalysisEvent) error {
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "event_repository.record", "failed to record analysis event", err)
	}
	return nil
}

// Recent returns the newest events, optionally filtered by kind.
func (r *EventRepository) Recent(ctx context.Context, kind string, limit int) ([]AnalysisEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var events []AnalysisEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "event_repository.recent", "failed to list analysis events", err)
	}
	return events, nil
}

// KindStats counts requests and failures for one analysis kind.
type KindStats struct {
	Kind     string `json:"kind"`
	Total    int64  `json:"total"`
	Failures int64  `json:"failures"`
}

func (r *EventRepository) Stats(ctx context.Context) ([]KindStats, error) {
	var out []KindStats
	err := r.db.WithContext(ctx).Model(&AnalysisEvent{}).
		Select("kind, COUNT(*) AS total, SUM(CASE WHEN success THEN 0 ELSE 1 END) AS failures").
		Group("kind").Order("kind").
		Scan(&out).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "event_repository.stats", "failed to aggregate analysis events", err)
	}
	return out, nil
}
