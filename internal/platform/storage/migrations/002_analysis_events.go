package migrations

import "gorm.io/gorm"

// Migration002AnalysisEvents adds the audit trail of published events.
type Migration002AnalysisEvents struct{}

func (m *Migration002AnalysisEvents) Version() string { return "002_analysis_events" }

func (m *Migration002AnalysisEvents) Description() string {
	return "Create analysis_events audit table"
}

func (m *Migration002AnalysisEvents) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type VARCHAR(64) NOT NULL,
			analysis_id VARCHAR(64),
			data JSON,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_analysis_events_event_type ON analysis_events(event_type)`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_analysis_events_analysis_id ON analysis_events(analysis_id)`).Error
}

func (m *Migration002AnalysisEvents) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS analysis_events`).Error
}
