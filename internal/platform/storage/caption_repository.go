package storage

import (
	"context"
	stdErrors "errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alttext-server-go/internal/platform/errors"
)

// ErrNotFound is returned when a filename has no caption record.
var ErrNotFound = stdErrors.New("caption record not found")

// CaptionRepository persists caption history keyed by upload filename.
type CaptionRepository struct {
	db *gorm.DB
}

func NewCaptionRepository(db *gorm.DB) *CaptionRepository {
	return &CaptionRepository{db: db}
}

// Save inserts the record or overwrites the existing row for the same
// filename. The stored row is written back into rec.
func (r *CaptionRepository) Save(ctx context.Context, rec *CaptionRecord) error {
	if rec == nil || strings.TrimSpace(rec.Filename) == "" {
		return errors.New(errors.KindValidation, "caption_repository.save", "filename is required")
	}
	if rec.ImageType == "" {
		rec.ImageType = "general"
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "filename"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"image_type", "caption", "llm_response", "provider", "vector_dim", "metadata", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "caption_repository.save", "failed to upsert caption record", err)
	}

	stored, err := r.Get(ctx, rec.Filename)
	if err != nil {
		return err
	}
	*rec = *stored
	return nil
}

// Get returns the record for filename or ErrNotFound.
func (r *CaptionRepository) Get(ctx context.Context, filename string) (*CaptionRecord, error) {
	var rec CaptionRecord
	err := r.db.WithContext(ctx).Where("filename = ?", filename).First(&rec).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "caption_repository.get", "failed to load caption record", err)
	}
	return &rec, nil
}

// List returns records newest first.
func (r *CaptionRepository) List(ctx context.Context, limit, offset int) ([]CaptionRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var recs []CaptionRecord
	err := r.db.WithContext(ctx).
		Order("updated_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "caption_repository.list", "failed to list caption records", err)
	}
	return recs, nil
}

func (r *CaptionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&CaptionRecord{}).Count(&n).Error; err != nil {
		return 0, errors.Wrap(errors.KindStorage, "caption_repository.count", "failed to count caption records", err)
	}
	return n, nil
}
