package observability

import (
	"context"
	"log/slog"
	"time"
)

// Enabled reports whether spans and metrics are being recorded.
func Enabled() bool {
	return current() != nil
}

// StartSpan times an operation. The returned func must be called once with the
// operation's error, if any. Durations are aggregated under
// "<component>.<operation>.ms" with an "outcome" label.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	r := current()
	if r == nil {
		return ctx, func(error) {}
	}

	start := time.Now()
	r.logger.LogAttrs(ctx, slog.LevelDebug, "span start",
		slog.String("component", component),
		slog.String("operation", operation),
	)

	return ctx, func(err error) {
		elapsed := time.Since(start)
		outcome := "ok"
		level := slog.LevelDebug
		if err != nil {
			outcome = "error"
			level = slog.LevelWarn
		} else if r.cfg.SlowSpan > 0 && elapsed >= r.cfg.SlowSpan {
			level = slog.LevelWarn
		}

		r.series.observe(component+"."+operation+".ms", map[string]string{"outcome": outcome},
			float64(elapsed.Microseconds())/1000)

		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}
		r.logger.LogAttrs(ctx, level, "span end", attrs...)
	}
}

// RecordMetric adds a datapoint to the named series and echoes it at debug level.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	r := current()
	if r == nil {
		return
	}
	r.series.observe(name, labels, value)

	attrs := make([]slog.Attr, 0, len(labels)+2)
	attrs = append(attrs, slog.String("metric", name), slog.Float64("value", value))
	for k, v := range labels {
		attrs = append(attrs, slog.String(k, v))
	}
	r.logger.LogAttrs(ctx, slog.LevelDebug, "metric", attrs...)
}

// Snapshot returns the aggregated series sorted by name and labels.
func Snapshot() []Series {
	r := current()
	if r == nil {
		return nil
	}
	return r.series.snapshot()
}
