// Package store persists speech artifacts behind interchangeable drivers.
package store

import (
	"context"
	stderrors "errors"
	"time"

	"tutor-voice-server/internal/domain/voicecache/model"
)

// ErrNotFound is returned when a key is absent or its artifact has expired.
var ErrNotFound = stderrors.New("artifact not found")

// Store defines the behaviour required by the voice cache. Get, Put and
// Touch on one key are linearizable within a driver.
type Store interface {
	Get(ctx context.Context, key string) (*model.Artifact, error)
	// Put inserts or replaces artifact content. Usage counters of a live
	// entry are kept; an artifact already past its expiry is ignored.
	Put(ctx context.Context, artifact *model.Artifact) error
	// Touch increments times_used, sets last_used_at and returns the result.
	Touch(ctx context.Context, key string) (*model.Artifact, error)
	Count(ctx context.Context) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Driver() string
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	Redis  *RedisConfig
	Memory *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

type clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
