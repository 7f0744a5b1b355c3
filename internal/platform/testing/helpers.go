package testing

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"tutor-voice-server/internal/platform/config"
	"tutor-voice-server/internal/platform/logging"
	"tutor-voice-server/internal/platform/storage"
)

var dbSeq atomic.Int64

// SetupTestConfig returns the default configuration pointed at temporary
// directories and an in-memory cache.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.Server.IP = "127.0.0.1"
	cfg.Log.Level = "debug"
	cfg.Log.Dir = dir
	cfg.Log.File = "test.log"
	cfg.Log.Console = false
	cfg.Database.Path = dir + "/test.db"
	cfg.Cache.Driver = "memory"
	cfg.LipSync.TempDir = dir
	cfg.Transcription.TempDir = dir
	cfg.OpenAI.APIKey = "sk-test"

	return cfg
}

// SetupTestLogger returns a debug logger writing into the test's temp dir.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	cfg := SetupTestConfig(t)
	logger, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: cfg.Log.File,
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })

	return logger
}

// OpenTestDB opens a migrated in-memory SQLite database unique to the test.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := storage.OpenMemory(fmt.Sprintf("testdb_%d_%p", dbSeq.Add(1), t))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close(db) })

	return db
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}
