package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/storage/migrations"
)

// Open opens (creating if needed) the SQLite database at path and applies all
// migrations. A DSN starting with "file:" is passed through untouched.
func Open(path string) (*gorm.DB, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(errors.KindStorage, "storage.open.mkdir", "failed to create data directory", err)
			}
		}
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to open database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open.pool", "failed to access connection pool", err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY under load.
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a private in-memory database, mainly for tests and one-shot CLI runs.
func OpenMemory(name string) (*gorm.DB, error) {
	return Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
}

// Migrate applies every pending schema migration.
func Migrate(db *gorm.DB) error {
	m, err := newSchemaMigrator(db)
	if err != nil {
		return err
	}
	_, err = m.Apply(context.Background())
	return err
}

func newSchemaMigrator(db *gorm.DB) (*Migrator, error) {
	m := NewMigrator(db)
	if err := m.Register(
		&migrations.Migration001VoiceCache{},
		&migrations.Migration002InteractionLogs{},
	); err != nil {
		return nil, err
	}
	return m, nil
}

// Ping checks that the database answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
