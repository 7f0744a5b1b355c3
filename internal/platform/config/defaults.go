package config

import "time"

const (
	// DefaultMaxTranscriptionBytes matches the upstream transcription upload limit.
	DefaultMaxTranscriptionBytes = 25 * 1024 * 1024
	DefaultMinTranscriptionBytes = 1024
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:              "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			AllowOrigins:    []string{"*"},
		},
		Log: LogConfig{
			Level:      "info",
			Dir:        "data/logs",
			File:       "server.log",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 7,
			Console:    true,
		},
		Database: DatabaseConfig{
			Path: "data/tutor-voice.db",
		},
		Cache: CacheConfig{
			Driver:        "sqlite",
			TTL:           30 * 24 * time.Hour,
			DegradedTTL:   time.Hour,
			SweepInterval: time.Hour,
			Redis: CacheRedisConfig{
				Prefix: "voice:",
			},
			Memory: CacheMemory{
				GCInterval: 5 * time.Minute,
			},
		},
		OpenAI: OpenAIConfig{
			Timeout: 30 * time.Second,
		},
		TTS: TTSConfig{
			Provider:      "openai",
			Voice:         "nova",
			Model:         "tts-1",
			Format:        "mp3",
			Speed:         1.0,
			MaxTextLength: 4096,
			Language:      "es",
		},
		LipSync: LipSyncConfig{
			Enabled:        true,
			Binary:         "rhubarb",
			Recognizer:     "phonetic",
			ExtendedShapes: "GHX",
			Converter:      "ffmpeg",
			MaxConcurrency: 4,
			Timeout:        20 * time.Second,
		},
		Transcription: TranscriptionConfig{
			Provider:        "openai",
			Model:           "whisper-1",
			MinBytes:        DefaultMinTranscriptionBytes,
			MaxBytes:        DefaultMaxTranscriptionBytes,
			DefaultLanguage: "es",
		},
		Pipeline: PipelineConfig{
			SynthesisTimeout: 30 * time.Second,
			LipSyncTimeout:   20 * time.Second,
			TotalTimeout:     60 * time.Second,
			RecorderTimeout:  2 * time.Second,
		},
		EventBus: EventBusConfig{
			Workers:   4,
			QueueSize: 1000,
		},
		Observability: ObservabilityConfig{
			Enabled:  false,
			SlowSpan: 5 * time.Second,
		},
	}
}
