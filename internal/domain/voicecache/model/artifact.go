package model

import (
	"time"

	"tutor-voice-server/internal/domain/lipsync"
)

// DefaultTTL applies when an artifact reaches a store without an expiry.
const DefaultTTL = 30 * 24 * time.Hour

// DefaultDegradedTTL bounds how long an artifact without lip-sync cues is served.
const DefaultDegradedTTL = time.Hour

// Artifact is one cached speech response. Values handed out by a store are
// copies; callers must not expect mutations to reach the store.
type Artifact struct {
	Key             string        `json:"key"`
	OriginalText    string        `json:"original_text"`
	NormalizedText  string        `json:"normalized_text"`
	Voice           string        `json:"voice"`
	Model           string        `json:"model"`
	Language        string        `json:"language"`
	Format          string        `json:"format"`
	Audio           []byte        `json:"audio"`
	DurationSeconds float64       `json:"duration_seconds"`
	Cues            []lipsync.Cue `json:"cues"`
	LipSyncDegraded bool          `json:"lip_sync_degraded"`
	TimesUsed       int64         `json:"times_used"`
	LastUsedAt      time.Time     `json:"last_used_at"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       time.Time     `json:"expires_at"`
}

// Clone returns a deep copy.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	c := *a
	c.Audio = append([]byte(nil), a.Audio...)
	c.Cues = append([]lipsync.Cue{}, a.Cues...)
	return &c
}

// Expired reports whether the artifact is past its expiry at now.
func (a *Artifact) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt)
}

// Prepared returns a copy with usage metadata initialised for a first insert
// at now. Fields already set are kept.
func (a *Artifact) Prepared(now time.Time) *Artifact {
	c := a.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.LastUsedAt.IsZero() {
		c.LastUsedAt = c.CreatedAt
	}
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = c.CreatedAt.Add(DefaultTTL)
	}
	if c.TimesUsed < 1 {
		c.TimesUsed = 1
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.LastUsedAt = c.LastUsedAt.UTC()
	c.ExpiresAt = c.ExpiresAt.UTC()
	return c
}
