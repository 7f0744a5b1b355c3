package migrations

import (
	"gorm.io/gorm"
)

// Migration002InteractionLogs creates the append-only interaction log.
type Migration002InteractionLogs struct{}

func (m *Migration002InteractionLogs) Version() string {
	return "002_interaction_logs"
}

func (m *Migration002InteractionLogs) Description() string {
	return "Create interaction_logs table"
}

func (m *Migration002InteractionLogs) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS interaction_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subject_id VARCHAR(255),
			session_id VARCHAR(255),
			category VARCHAR(64),
			response_text TEXT,
			audio_duration_seconds REAL,
			voice VARCHAR(64),
			model VARCHAR(64),
			language VARCHAR(16),
			cache_key VARCHAR(64),
			cache_hit BOOLEAN NOT NULL DEFAULT 0,
			lip_sync_produced BOOLEAN NOT NULL DEFAULT 0,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			outcome VARCHAR(16),
			error_kind VARCHAR(32),
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_interaction_logs_subject_id ON interaction_logs(subject_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_logs_session_id ON interaction_logs(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_logs_outcome ON interaction_logs(outcome)`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_logs_created_at ON interaction_logs(created_at)`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration002InteractionLogs) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS interaction_logs`).Error
}
