package migrations

import (
	"gorm.io/gorm"
)

// Migration001VoiceCache creates the content-addressed speech artifact table.
type Migration001VoiceCache struct{}

func (m *Migration001VoiceCache) Version() string {
	return "001_voice_cache"
}

func (m *Migration001VoiceCache) Description() string {
	return "Create voice_cache table for synthesized speech and lip-sync cues"
}

func (m *Migration001VoiceCache) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS voice_cache (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cache_key VARCHAR(64) NOT NULL UNIQUE,
			original_text TEXT NOT NULL,
			normalized_text TEXT NOT NULL,
			voice VARCHAR(64) NOT NULL,
			model VARCHAR(64) NOT NULL,
			language VARCHAR(16),
			format VARCHAR(16),
			audio BLOB NOT NULL,
			duration_seconds REAL NOT NULL DEFAULT 0,
			cues JSON NOT NULL,
			lip_sync_degraded BOOLEAN NOT NULL DEFAULT 0,
			times_used INTEGER NOT NULL DEFAULT 1,
			last_used_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}

	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_voice_cache_expires_at ON voice_cache(expires_at)`).Error
}

func (m *Migration001VoiceCache) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS voice_cache`).Error
}
