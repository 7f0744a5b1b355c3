package lipsync

import (
	"context"
	"fmt"
	"time"

	"tutor-voice-server/internal/platform/logging"
	"tutor-voice-server/internal/platform/observability"
	"tutor-voice-server/internal/util/audio"
)

// Result is the outcome of Generate. Degraded means cues could not be
// produced and the sequence is empty.
type Result struct {
	Sequence Sequence
	Degraded bool
	Reason   string
}

// Service wraps an Analyzer with the degrade-not-fail policy.
type Service struct {
	analyzer Analyzer
	enabled  bool
	logger   *logging.Logger
}

func NewService(analyzer Analyzer, enabled bool, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{analyzer: analyzer, enabled: enabled && analyzer != nil, logger: logger}
}

// Available reports whether the underlying tool can run.
func (s *Service) Available() bool {
	return s != nil && s.enabled && s.analyzer.Available()
}

// Generate never fails. The duration comes from the audio itself so a
// degraded result still reports how long the clip plays.
func (s *Service) Generate(ctx context.Context, data []byte, format string) Result {
	ctx, finish := observability.StartSpan(ctx, "lipsync", "generate")
	start := time.Now()

	decoded, durErr := audio.Duration(data, format)

	if !s.enabled {
		finish(nil)
		return s.degraded(data, format, decoded, durErr, "lip-sync disabled")
	}

	seq, err := s.analyzer.Analyze(ctx, data, format)
	finish(err)
	if err != nil {
		s.logger.WarnTag("LipSync", "analysis failed, returning empty cues: %v", err)
		return s.degraded(data, format, decoded, durErr, err.Error())
	}

	switch {
	case durErr == nil && decoded > 0:
		seq.Duration = decoded
	case seq.Duration <= 0:
		seq.Duration = seq.LastEnd()
	}
	if seq.Cues == nil {
		seq.Cues = []Cue{}
	}

	observability.RecordMetric(ctx, "lipsync.duration_ms", float64(time.Since(start).Milliseconds()), nil)
	return Result{Sequence: seq}
}

func (s *Service) degraded(data []byte, format string, decoded float64, durErr error, reason string) Result {
	duration := decoded
	if durErr != nil || decoded <= 0 {
		duration = audio.Estimate(data, format)
		s.logger.DebugTag("LipSync", "audio duration not decodable (%v), estimated %.2fs", durErr, duration)
	}
	return Result{
		Sequence: Empty(duration),
		Degraded: true,
		Reason:   fmt.Sprintf("lip-sync degraded: %s", reason),
	}
}
