package interaction

import (
	"context"
	"time"
)

// Outcome of a recorded invocation.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Record is one voice response attempt.
type Record struct {
	SubjectID            string    `json:"subject_id,omitempty"`
	SessionID            string    `json:"session_id,omitempty"`
	Category             string    `json:"category,omitempty"`
	ResponseText         string    `json:"response_text"`
	AudioDurationSeconds float64   `json:"audio_duration_seconds"`
	Voice                string    `json:"voice"`
	Model                string    `json:"model"`
	Language             string    `json:"language,omitempty"`
	CacheKey             string    `json:"cache_key,omitempty"`
	CacheHit             bool      `json:"cache_hit"`
	LipSyncProduced      bool      `json:"lip_sync_produced"`
	LatencyMs            int64     `json:"latency_ms"`
	Outcome              string    `json:"outcome"`
	ErrorKind            string    `json:"error_kind,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// Recorder persists interaction records.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Summary aggregates the interaction log for diagnostics.
type Summary struct {
	Total        int64   `json:"total"`
	Completed    int64   `json:"completed"`
	Failed       int64   `json:"failed"`
	CacheHits    int64   `json:"cache_hits"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, rec Record) error

func (f RecorderFunc) Record(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// Discard drops every record.
var Discard Recorder = RecorderFunc(func(context.Context, Record) error { return nil })
