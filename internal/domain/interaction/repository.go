package interaction

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/storage"
)

const maxRecentLimit = 500

// Repository is the gorm-backed interaction log.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository 创建交互记录仓库
func NewRepository(db *gorm.DB) (*Repository, error) {
	if db == nil {
		return nil, errors.New(errors.KindStorage, "interaction.new", "database is nil")
	}
	return &Repository{db: db, now: time.Now}, nil
}

// Record appends one row. Existing rows are never updated.
func (r *Repository) Record(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	row := toLog(rec)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "interaction.record", "failed to append interaction", err)
	}
	return nil
}

// Recent returns the newest records first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	var rows []storage.InteractionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "interaction.recent", "failed to list interactions", err)
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromLog(row))
	}
	return out, nil
}

// Summary aggregates outcomes, cache hits and latency.
func (r *Repository) Summary(ctx context.Context) (Summary, error) {
	var agg struct {
		Total      int64
		Completed  int64
		Failed     int64
		CacheHits  int64
		AvgLatency float64
	}
	err := r.db.WithContext(ctx).
		Model(&storage.InteractionLog{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS failed,
			COALESCE(SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END), 0) AS cache_hits,
			COALESCE(AVG(latency_ms), 0) AS avg_latency`, OutcomeCompleted, OutcomeFailed).
		Scan(&agg).Error
	if err != nil {
		return Summary{}, errors.Wrap(errors.KindStorage, "interaction.summary", "failed to summarize interactions", err)
	}

	s := Summary{
		Total:        agg.Total,
		Completed:    agg.Completed,
		Failed:       agg.Failed,
		CacheHits:    agg.CacheHits,
		AvgLatencyMs: agg.AvgLatency,
	}
	if agg.Completed > 0 {
		s.CacheHitRate = float64(agg.CacheHits) / float64(agg.Completed)
	}
	return s, nil
}

func toLog(rec Record) storage.InteractionLog {
	return storage.InteractionLog{
		SubjectID:            rec.SubjectID,
		SessionID:            rec.SessionID,
		Category:             rec.Category,
		ResponseText:         rec.ResponseText,
		AudioDurationSeconds: rec.AudioDurationSeconds,
		Voice:                rec.Voice,
		Model:                rec.Model,
		Language:             rec.Language,
		CacheKey:             rec.CacheKey,
		CacheHit:             rec.CacheHit,
		LipSyncProduced:      rec.LipSyncProduced,
		LatencyMs:            rec.LatencyMs,
		Outcome:              rec.Outcome,
		ErrorKind:            rec.ErrorKind,
		CreatedAt:            rec.CreatedAt.UTC(),
	}
}

func fromLog(row storage.InteractionLog) Record {
	return Record{
		SubjectID:            row.SubjectID,
		SessionID:            row.SessionID,
		Category:             row.Category,
		ResponseText:         row.ResponseText,
		AudioDurationSeconds: row.AudioDurationSeconds,
		Voice:                row.Voice,
		Model:                row.Model,
		Language:             row.Language,
		CacheKey:             row.CacheKey,
		CacheHit:             row.CacheHit,
		LipSyncProduced:      row.LipSyncProduced,
		LatencyMs:            row.LatencyMs,
		Outcome:              row.Outcome,
		ErrorKind:            row.ErrorKind,
		CreatedAt:            row.CreatedAt,
	}
}
