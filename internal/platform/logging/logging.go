package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config captures logging configuration options.
type Config struct {
	Level      string
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Console toggles the coloured console sink.
	Console bool
	NoColor bool
	// ConsoleWriter overrides os.Stdout for the console sink.
	ConsoleWriter io.Writer
}

// Logger writes JSON records to a rotated file and human readable records to the console.
type Logger struct {
	level   slog.Level
	file    *slog.Logger
	console *slog.Logger
	sink    *lumberjack.Logger
	mu      sync.RWMutex
	closed  bool
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// Default returns the process-wide logger, falling back to a no-op logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if defaultLogger == nil {
		return NewNop()
	}
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// ParseLevel maps a config level string to a slog level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	level := ParseLevel(cfg.Level)
	l := &Logger{level: level}

	if cfg.Filename != "" {
		if cfg.Dir != "" {
			if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		maxAge := cfg.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 7
		}
		l.sink = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, cfg.Filename),
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     maxAge,
			LocalTime:  true,
		}
		l.file = slog.New(slog.NewJSONHandler(l.sink, &slog.HandlerOptions{Level: level}))
	}

	if cfg.Console {
		w := cfg.ConsoleWriter
		if w == nil {
			w = os.Stdout
		}
		l.console = slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05.000",
			NoColor:    cfg.NoColor,
		}))
	}

	return l, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{level: slog.LevelError + 1}
}

// Close flushes and closes the file sink.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

// Slog exposes a structured logger that fans out to every configured sink.
func (l *Logger) Slog() *slog.Logger {
	if l == nil {
		return slog.New(fanout{})
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	var handlers []slog.Handler
	if l.file != nil {
		handlers = append(handlers, l.file.Handler())
	}
	if l.console != nil {
		handlers = append(handlers, l.console.Handler())
	}
	return slog.New(fanout(handlers))
}

func (l *Logger) log(level slog.Level, msg string, fields ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	var attrs []slog.Attr
	if len(fields) > 0 && fields[0] != nil {
		if fieldsMap, ok := fields[0].(map[string]interface{}); ok {
			keys := make([]string, 0, len(fieldsMap))
			for k := range fieldsMap {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				attrs = append(attrs, slog.Any(k, fieldsMap[k]))
			}
		} else {
			attrs = append(attrs, slog.Any("fields", fields))
		}
	}

	ctx := context.Background()
	if l.file != nil {
		l.file.LogAttrs(ctx, level, msg, attrs...)
	}
	if l.console != nil {
		l.console.LogAttrs(ctx, level, msg, attrs...)
	}
}

func containsFormatPlaceholders(s string) bool {
	return strings.Contains(s, "%")
}

func (l *Logger) logf(level slog.Level, msg string, args ...interface{}) {
	if len(args) > 0 && containsFormatPlaceholders(msg) {
		l.log(level, fmt.Sprintf(msg, args...))
		return
	}
	l.log(level, msg, args...)
}

// Debug logs at debug level. A message containing '%' is treated as a format string.
func (l *Logger) Debug(msg string, args ...interface{}) { l.logf(slog.LevelDebug, msg, args...) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...interface{}) { l.logf(slog.LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...interface{}) { l.logf(slog.LevelWarn, msg, args...) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...interface{}) { l.logf(slog.LevelError, msg, args...) }

// InfoFields logs msg verbatim with fields as structured attributes.
func (l *Logger) InfoFields(msg string, fields map[string]interface{}) {
	l.log(slog.LevelInfo, msg, fields)
}

// WarnFields logs msg verbatim with fields as structured attributes.
func (l *Logger) WarnFields(msg string, fields map[string]interface{}) {
	l.log(slog.LevelWarn, msg, fields)
}

// ErrorFields logs msg verbatim with fields as structured attributes.
func (l *Logger) ErrorFields(msg string, fields map[string]interface{}) {
	l.log(slog.LevelError, msg, fields)
}

// FormatLog builds a message with a single category tag: FormatLog("Cache", "hit") -> "[Cache] hit".
// A message that already starts with "[" is returned unchanged.
func FormatLog(tag, message string) string {
	tag = strings.TrimSpace(tag)
	message = strings.TrimSpace(message)
	if tag == "" {
		return message
	}
	if strings.HasPrefix(message, "[") {
		return message
	}
	return fmt.Sprintf("[%s] %s", tag, message)
}

func (l *Logger) DebugTag(tag, msg string, args ...interface{}) {
	l.logf(slog.LevelDebug, FormatLog(tag, msg), args...)
}

func (l *Logger) InfoTag(tag, msg string, args ...interface{}) {
	l.logf(slog.LevelInfo, FormatLog(tag, msg), args...)
}

func (l *Logger) WarnTag(tag, msg string, args ...interface{}) {
	l.logf(slog.LevelWarn, FormatLog(tag, msg), args...)
}

func (l *Logger) ErrorTag(tag, msg string, args ...interface{}) {
	l.logf(slog.LevelError, FormatLog(tag, msg), args...)
}

// fanout dispatches records to several handlers.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
