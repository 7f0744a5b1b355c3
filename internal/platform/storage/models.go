package storage

import (
	"time"

	"gorm.io/datatypes"
)

// VoiceCacheEntry is one synthesized speech artifact keyed by its content hash.
type VoiceCacheEntry struct {
	ID              uint           `gorm:"primaryKey"`
	CacheKey        string         `gorm:"type:varchar(64);uniqueIndex;not null"`
	OriginalText    string         `gorm:"type:text;not null"`
	NormalizedText  string         `gorm:"type:text;not null"`
	Voice           string         `gorm:"type:varchar(64);not null"`
	Model           string         `gorm:"type:varchar(64);not null"`
	Language        string         `gorm:"type:varchar(16)"`
	Format          string         `gorm:"type:varchar(16)"`
	Audio           []byte         `gorm:"not null"`
	DurationSeconds float64        `gorm:"not null;default:0"`
	Cues            datatypes.JSON `gorm:"not null"`
	LipSyncDegraded bool           `gorm:"not null;default:false"`
	TimesUsed       int64          `gorm:"not null;default:1"`
	LastUsedAt      time.Time      `gorm:"not null"`
	CreatedAt       time.Time      `gorm:"not null"`
	ExpiresAt       time.Time      `gorm:"index;not null"`
}

func (VoiceCacheEntry) TableName() string {
	return "voice_cache"
}

// InteractionLog 交互记录，只追加不修改
type InteractionLog struct {
	ID                   uint   `gorm:"primaryKey"`
	SubjectID            string `gorm:"index"`
	SessionID            string `gorm:"index"`
	Category             string `gorm:"type:varchar(64)"`
	ResponseText         string `gorm:"type:text"`
	AudioDurationSeconds float64
	Voice                string
	Model                string
	Language             string
	CacheKey             string `gorm:"type:varchar(64)"`
	CacheHit             bool
	LipSyncProduced      bool
	LatencyMs            int64
	Outcome              string    `gorm:"type:varchar(16);index"`
	ErrorKind            string    `gorm:"type:varchar(32)"`
	CreatedAt            time.Time `gorm:"index"`
}

func (InteractionLog) TableName() string {
	return "interaction_logs"
}
