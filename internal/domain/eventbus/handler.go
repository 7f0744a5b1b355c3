package eventbus

import (
	"tutor-voice-server/internal/platform/logging"
)

// LogHandler writes pipeline events to the structured log.
type LogHandler struct {
	logger *logging.Logger
}

// NewLogHandler 创建日志事件处理器
func NewLogHandler(logger *logging.Logger) *LogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogHandler{logger: logger}
}

// Register subscribes the handler to every voice topic.
func (h *LogHandler) Register(bus *AsyncEventBus) error {
	subscriptions := map[string]interface{}{
		EventSpeakCompleted:   h.handleSpeakCompleted,
		EventSpeakFailed:      h.handleSpeakFailed,
		EventLipSyncDegraded:  h.handleLipSyncDegraded,
		EventCacheWriteFailed: h.handleCacheWriteFailed,
		EventListenCompleted:  h.handleListenCompleted,
	}
	for topic, fn := range subscriptions {
		if err := bus.Subscribe(topic, fn); err != nil {
			return err
		}
	}
	return nil
}

func (h *LogHandler) handleSpeakCompleted(data SpeakEventData) {
	h.logger.InfoFields("[Event] speak completed", map[string]interface{}{
		"cache_key":  data.CacheKey,
		"cache_hit":  data.CacheHit,
		"degraded":   data.Degraded,
		"latency_ms": data.LatencyMs,
		"voice":      data.Voice,
	})
}

func (h *LogHandler) handleSpeakFailed(data SpeakEventData) {
	h.logger.WarnFields("[Event] speak failed", map[string]interface{}{
		"cache_key":  data.CacheKey,
		"error_kind": data.ErrorKind,
		"error":      data.Error,
		"latency_ms": data.LatencyMs,
	})
}

func (h *LogHandler) handleLipSyncDegraded(data SpeakEventData) {
	h.logger.WarnTag("Event", "lip-sync degraded for %s: %s", data.CacheKey, data.Error)
}

func (h *LogHandler) handleCacheWriteFailed(data CacheEventData) {
	h.logger.ErrorTag("Event", "cache write failed for %s on %s: %s", data.CacheKey, data.Driver, data.Error)
}

func (h *LogHandler) handleListenCompleted(data ListenEventData) {
	h.logger.DebugTag("Event", "listen completed bytes=%d duration=%.2fs latency=%dms", data.Bytes, data.Duration, data.LatencyMs)
}
