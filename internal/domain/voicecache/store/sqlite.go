package store

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tutor-voice-server/internal/domain/lipsync"
	"tutor-voice-server/internal/domain/voicecache/model"
	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/storage"
)

// contentColumns are rewritten on conflict; usage columns are not.
var contentColumns = []string{
	"original_text", "normalized_text", "voice", "model", "language", "format",
	"audio", "duration_seconds", "cues", "lip_sync_degraded", "expires_at",
}

type sqliteStore struct {
	db  *gorm.DB
	now clock
}

// NewSQLite builds a SQLite-backed store on the voice_cache table.
func NewSQLite(db *gorm.DB) (Store, error) {
	if db == nil {
		return nil, errors.New(errors.KindConfig, "voicecache.sqlite.new", "sqlite store requires database handle")
	}
	return &sqliteStore{db: db, now: utcNow}, nil
}

func (s *sqliteStore) Driver() string { return DriverSQLite }

func (s *sqliteStore) Get(ctx context.Context, key string) (*model.Artifact, error) {
	var entry storage.VoiceCacheEntry
	err := s.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", key, s.now()).
		First(&entry).Error
	if err != nil {
		return nil, translate("voicecache.sqlite.get", err)
	}
	return fromEntry(&entry)
}

func (s *sqliteStore) Put(ctx context.Context, artifact *model.Artifact) error {
	if artifact == nil || artifact.Key == "" {
		return fmt.Errorf("artifact key required")
	}
	now := s.now()
	next := artifact.Prepared(now)
	if next.Expired(now) {
		return nil
	}
	entry, err := toEntry(next)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// An expired row is logically absent; the new insert starts fresh usage.
		if err := tx.Where("cache_key = ? AND expires_at <= ?", next.Key, now).
			Delete(&storage.VoiceCacheEntry{}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns(contentColumns),
		}).Create(entry).Error
	})
	if err != nil {
		return errors.Wrap(errors.KindStorage, "voicecache.sqlite.put", "failed to store artifact", err)
	}
	return nil
}

func (s *sqliteStore) Touch(ctx context.Context, key string) (*model.Artifact, error) {
	now := s.now()
	var entry storage.VoiceCacheEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&storage.VoiceCacheEntry{}).
			Where("cache_key = ? AND expires_at > ?", key, now).
			Updates(map[string]interface{}{
				"times_used":   gorm.Expr("times_used + 1"),
				"last_used_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("cache_key = ?", key).First(&entry).Error
	})
	if err != nil {
		return nil, translate("voicecache.sqlite.touch", err)
	}
	return fromEntry(&entry)
}

func (s *sqliteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&storage.VoiceCacheEntry{}).
		Where("expires_at > ?", s.now()).
		Count(&n).Error
	if err != nil {
		return 0, errors.Wrap(errors.KindStorage, "voicecache.sqlite.count", "failed to count artifacts", err)
	}
	return n, nil
}

func (s *sqliteStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&storage.VoiceCacheEntry{})
	if res.Error != nil {
		return 0, errors.Wrap(errors.KindStorage, "voicecache.sqlite.purge", "failed to purge artifacts", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	return storage.Ping(ctx, s.db)
}

// Close leaves the shared database handle open; its owner closes it.
func (s *sqliteStore) Close(context.Context) error { return nil }

func translate(op string, err error) error {
	if stderrors.Is(err, ErrNotFound) || stderrors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(errors.KindStorage, op, "voice cache query failed", err)
}

func toEntry(a *model.Artifact) (*storage.VoiceCacheEntry, error) {
	cues := a.Cues
	if cues == nil {
		cues = []lipsync.Cue{}
	}
	raw, err := sonic.Marshal(cues)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "voicecache.sqlite.encode", "failed to encode cues", err)
	}
	return &storage.VoiceCacheEntry{
		CacheKey:        a.Key,
		OriginalText:    a.OriginalText,
		NormalizedText:  a.NormalizedText,
		Voice:           a.Voice,
		Model:           a.Model,
		Language:        a.Language,
		Format:          a.Format,
		Audio:           a.Audio,
		DurationSeconds: a.DurationSeconds,
		Cues:            datatypes.JSON(raw),
		LipSyncDegraded: a.LipSyncDegraded,
		TimesUsed:       a.TimesUsed,
		LastUsedAt:      a.LastUsedAt,
		CreatedAt:       a.CreatedAt,
		ExpiresAt:       a.ExpiresAt,
	}, nil
}

func fromEntry(e *storage.VoiceCacheEntry) (*model.Artifact, error) {
	cues := []lipsync.Cue{}
	if len(e.Cues) > 0 {
		if err := sonic.Unmarshal(e.Cues, &cues); err != nil {
			return nil, errors.Wrap(errors.KindStorage, "voicecache.sqlite.decode", "failed to decode cues", err)
		}
	}
	return &model.Artifact{
		Key:             e.CacheKey,
		OriginalText:    e.OriginalText,
		NormalizedText:  e.NormalizedText,
		Voice:           e.Voice,
		Model:           e.Model,
		Language:        e.Language,
		Format:          e.Format,
		Audio:           e.Audio,
		DurationSeconds: e.DurationSeconds,
		Cues:            cues,
		LipSyncDegraded: e.LipSyncDegraded,
		TimesUsed:       e.TimesUsed,
		LastUsedAt:      e.LastUsedAt.UTC(),
		CreatedAt:       e.CreatedAt.UTC(),
		ExpiresAt:       e.ExpiresAt.UTC(),
	}, nil
}
