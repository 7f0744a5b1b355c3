package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"tutor-voice-server/internal/platform/errors"
)

// Migration 数据库迁移接口
type Migration interface {
	Version() string
	Description() string
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// AppliedMigration is one row of schema_migrations.
type AppliedMigration struct {
	ID          uint      `gorm:"primaryKey"`
	Version     string    `gorm:"uniqueIndex;not null"`
	Description string    `gorm:"not null"`
	AppliedAt   time.Time `gorm:"not null"`
}

func (AppliedMigration) TableName() string { return "schema_migrations" }

// Migrator applies migrations in version order, each once, each in its own
// transaction. Versions sort lexically, so they carry a zero-padded prefix.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
	now        func() time.Time
}

func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Register adds migrations. A duplicate version is a programming error and is
// reported here rather than at apply time.
func (m *Migrator) Register(migrations ...Migration) error {
	for _, mig := range migrations {
		for _, existing := range m.migrations {
			if existing.Version() == mig.Version() {
				return errors.New(errors.KindStorage, "migration.register", fmt.Sprintf("duplicate migration %s", mig.Version()))
			}
		}
		m.migrations = append(m.migrations, mig)
	}
	sort.SliceStable(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version() < m.migrations[j].Version()
	})
	return nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&AppliedMigration{}); err != nil {
		return errors.Wrap(errors.KindStorage, "migration.ensure_table", "failed to create schema_migrations", err)
	}
	return nil
}

// Pending lists registered versions not yet applied, in apply order.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, mig := range m.migrations {
		if !applied[mig.Version()] {
			pending = append(pending, mig.Version())
		}
	}
	return pending, nil
}

// Apply runs every pending migration and returns how many ran.
func (m *Migrator) Apply(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range m.migrations {
		if applied[mig.Version()] {
			continue
		}
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := mig.Up(tx); err != nil {
				return errors.Wrap(errors.KindStorage, "migration.up", fmt.Sprintf("migration %s failed", mig.Version()), err)
			}
			row := &AppliedMigration{Version: mig.Version(), Description: mig.Description(), AppliedAt: m.now()}
			if err := tx.Create(row).Error; err != nil {
				return errors.Wrap(errors.KindStorage, "migration.record", fmt.Sprintf("cannot record migration %s", mig.Version()), err)
			}
			return nil
		})
		if err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

// Rollback reverts the most recently applied migration and returns its
// version, or "" when nothing is applied.
func (m *Migrator) Rollback(ctx context.Context) (string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return "", err
	}
	var last AppliedMigration
	res := m.db.WithContext(ctx).Order("version DESC").Limit(1).Find(&last)
	if res.Error != nil {
		return "", errors.Wrap(errors.KindStorage, "migration.rollback", "failed to read schema_migrations", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", nil
	}

	var target Migration
	for _, mig := range m.migrations {
		if mig.Version() == last.Version {
			target = mig
			break
		}
	}
	if target == nil {
		return "", errors.New(errors.KindStorage, "migration.rollback", fmt.Sprintf("migration %s is applied but not registered", last.Version))
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := target.Down(tx); err != nil {
			return errors.Wrap(errors.KindStorage, "migration.down", fmt.Sprintf("rollback of %s failed", last.Version), err)
		}
		return tx.Delete(&AppliedMigration{}, last.ID).Error
	})
	if err != nil {
		return "", err
	}
	return last.Version, nil
}

// History lists applied migrations, newest first.
func (m *Migrator) History(ctx context.Context) ([]AppliedMigration, error) {
	var rows []AppliedMigration
	if err := m.db.WithContext(ctx).Order("version DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "migration.history", "failed to read schema_migrations", err)
	}
	return rows, nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]bool, error) {
	var versions []string
	if err := m.db.WithContext(ctx).Model(&AppliedMigration{}).Pluck("version", &versions).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "migration.applied", "failed to read schema_migrations", err)
	}
	set := make(map[string]bool, len(versions))
	for _, v := range versions {
		set[v] = true
	}
	return set, nil
}
