package migrations

import "gorm.io/gorm"

// Migration001Analyses creates the analyses table.
type Migration001Analyses struct{}

func (m *Migration001Analyses) Version() string { return "001_analyses" }

func (m *Migration001Analyses) Description() string {
	return "Create analyses table for persisted scan reports"
}

func (m *Migration001Analyses) Up(db *gorm.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id VARCHAR(64) PRIMARY KEY,
			file_name VARCHAR(512) NOT NULL,
			status VARCHAR(32) NOT NULL,
			scan_type VARCHAR(64),
			body_part VARCHAR(64),
			severity VARCHAR(32) NOT NULL,
			confidence INTEGER NOT NULL,
			payload JSON NOT NULL,
			uploaded_at DATETIME NOT NULL,
			expires_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_severity ON analyses(severity)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_uploaded_at ON analyses(uploaded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_expires_at ON analyses(expires_at)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration001Analyses) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS analyses`).Error
}
