package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Config captures observability toggles.
type Config struct {
	Enabled bool
	// SlowSpan promotes spans at least this long to warn level. Zero disables it.
	SlowSpan time.Duration
}

// ShutdownFunc tears down the installed recorder.
type ShutdownFunc func(context.Context) error

type recorder struct {
	cfg    Config
	logger *slog.Logger
	series *registry
}

var active atomic.Pointer[recorder]

func current() *recorder {
	r := active.Load()
	if r == nil || !r.cfg.Enabled {
		return nil
	}
	return r
}

// Setup installs the recorder used by StartSpan and RecordMetric. When cfg is
// disabled both are no-ops and Snapshot is empty.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &recorder{cfg: cfg, logger: logger, series: newRegistry()}
	active.Store(r)

	if cfg.Enabled {
		logger.InfoContext(ctx, "[Observability] spans and metrics enabled", slog.Duration("slow_span", cfg.SlowSpan))
	} else {
		logger.InfoContext(ctx, "[Observability] disabled")
	}

	return func(ctx context.Context) error {
		if cfg.Enabled {
			logger.InfoContext(ctx, "[Observability] recorder stopped", slog.Int("series", r.series.len()))
		}
		// a later Setup may already have replaced r
		active.CompareAndSwap(r, nil)
		return nil
	}, nil
}
