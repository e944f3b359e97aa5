package migrations

import (
	"gorm.io/gorm"
)

// Migration002AnalysisEvents creates the per-request analysis log.
type Migration002AnalysisEvents struct{}

func (m *Migration002AnalysisEvents) Version() string {
	return "002_analysis_events"
}

func (m *Migration002AnalysisEvents) Description() string {
	return "Create analysis_events for every analysis route"
}

func (m *Migration002AnalysisEvents) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id VARCHAR(64) NOT NULL,
			kind VARCHAR(64) NOT NULL,
			filename VARCHAR(512),
			success BOOLEAN NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			data JSON,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_analysis_events_kind ON analysis_events(kind)`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_analysis_events_created_at ON analysis_events(created_at)`).Error
}

func (m *Migration002AnalysisEvents) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS analysis_events`).Error
}
