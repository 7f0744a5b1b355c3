package eventbus

// 事件类型定义
const (
	EventSpeakCompleted   = "voice:speak-completed"
	EventSpeakFailed      = "voice:speak-failed"
	EventLipSyncDegraded  = "voice:lipsync-degraded"
	EventCacheWriteFailed = "voice:cache-write-failed"
	EventListenCompleted  = "voice:listen-completed"
)

// SpeakEventData 语音合成结果事件
type SpeakEventData struct {
	CacheKey  string `json:"cache_key"`
	SubjectID string `json:"subject_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Voice     string `json:"voice"`
	Model     string `json:"model"`
	CacheHit  bool   `json:"cache_hit"`
	Degraded  bool   `json:"degraded"`
	LatencyMs int64  `json:"latency_ms"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CacheEventData 缓存写入失败等存储事件
type CacheEventData struct {
	CacheKey string `json:"cache_key"`
	Driver   string `json:"driver"`
	Error    string `json:"error"`
}

// ListenEventData 转写完成事件
type ListenEventData struct {
	SessionID string  `json:"session_id,omitempty"`
	Bytes     int     `json:"bytes"`
	Duration  float64 `json:"duration"`
	LatencyMs int64   `json:"latency_ms"`
}
