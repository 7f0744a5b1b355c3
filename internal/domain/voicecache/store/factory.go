package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"tutor-voice-server/internal/platform/errors"
)

// Driver identifiers accepted by New.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Dependencies are handles owned by the caller; the sqlite driver shares the
// application database instead of opening its own.
type Dependencies struct {
	SQLiteDB *gorm.DB
}

// New opens the store named by cfg.Driver, memory when empty. Driver names
// are case-insensitive.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	switch driver {
	case "", DriverMemory:
		return NewMemory(cfg), nil
	case DriverSQLite:
		if deps.SQLiteDB == nil {
			return nil, errors.New(errors.KindConfig, "voicecache.store.new", "the sqlite cache shares the application database, but none was provided")
		}
		return NewSQLite(deps.SQLiteDB)
	case DriverRedis:
		return NewRedis(cfg)
	}
	return nil, errors.New(errors.KindConfig, "voicecache.store.new",
		fmt.Sprintf("unknown cache driver %q (want %s, %s or %s)", cfg.Driver, DriverMemory, DriverSQLite, DriverRedis))
}
