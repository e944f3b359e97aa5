package migrations

import (
	"gorm.io/gorm"
)

// Migration001CaptionRecords creates the caption history table.
type Migration001CaptionRecords struct{}

func (m *Migration001CaptionRecords) Version() string {
	return "001_caption_records"
}

func (m *Migration001CaptionRecords) Description() string {
	return "Create caption_records keyed by uploaded filename"
}

func (m *Migration001CaptionRecords) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS caption_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename VARCHAR(512) NOT NULL UNIQUE,
			image_type VARCHAR(32) NOT NULL DEFAULT 'general',
			caption TEXT NOT NULL,
			llm_response TEXT,
			provider VARCHAR(64),
			vector_dim INTEGER NOT NULL DEFAULT 0,
			metadata JSON,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_caption_records_created_at ON caption_records(created_at)`).Error
}

func (m *Migration001CaptionRecords) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS caption_records`).Error
}
