package config

import (
	"time"
)

type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	OpenAI        OpenAIConfig        `yaml:"openai" mapstructure:"openai"`
	TTS           TTSConfig           `yaml:"tts" mapstructure:"tts"`
	LipSync       LipSyncConfig       `yaml:"lipsync" mapstructure:"lipsync"`
	Transcription TranscriptionConfig `yaml:"transcription" mapstructure:"transcription"`
	Pipeline      PipelineConfig      `yaml:"pipeline" mapstructure:"pipeline"`
	EventBus      EventBusConfig      `yaml:"eventbus" mapstructure:"eventbus"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

type ServerConfig struct {
	IP              string        `yaml:"ip" mapstructure:"ip"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `yaml:"allow_origins" mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level      string `yaml:"log_level" mapstructure:"log_level"`
	Dir        string `yaml:"log_dir" mapstructure:"log_dir"`
	File       string `yaml:"log_file" mapstructure:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Console    bool   `yaml:"console" mapstructure:"console"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig selects and tunes the voice artifact store.
type CacheConfig struct {
	Driver        string           `yaml:"driver" mapstructure:"driver"`
	TTL           time.Duration    `yaml:"ttl" mapstructure:"ttl"`
	DegradedTTL   time.Duration    `yaml:"degraded_ttl" mapstructure:"degraded_ttl"`
	SweepInterval time.Duration    `yaml:"sweep_interval" mapstructure:"sweep_interval"`
	Redis         CacheRedisConfig `yaml:"redis,omitempty" mapstructure:"redis"`
	Memory        CacheMemory      `yaml:"memory,omitempty" mapstructure:"memory"`
}

type CacheRedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Username string `yaml:"username,omitempty" mapstructure:"username"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `yaml:"db,omitempty" mapstructure:"db"`
	Prefix   string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}

type CacheMemory struct {
	GCInterval time.Duration `yaml:"gc_interval" mapstructure:"gc_interval"`
}

// OpenAIConfig is shared by the speech and transcription providers.
type OpenAIConfig struct {
	APIKey       string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	Organization string        `yaml:"organization" mapstructure:"organization"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type TTSConfig struct {
	Provider      string  `yaml:"provider" mapstructure:"provider"`
	Voice         string  `yaml:"voice" mapstructure:"voice"`
	Model         string  `yaml:"model" mapstructure:"model"`
	Format        string  `yaml:"format" mapstructure:"format"`
	Speed         float64 `yaml:"speed" mapstructure:"speed"`
	MaxTextLength int     `yaml:"max_text_length" mapstructure:"max_text_length"`
	// Language is the default language tag passed through to cache keys and records.
	Language string `yaml:"language" mapstructure:"language"`
}

type LipSyncConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Binary         string        `yaml:"binary" mapstructure:"binary"`
	Recognizer     string        `yaml:"recognizer" mapstructure:"recognizer"`
	ExtendedShapes string        `yaml:"extended_shapes" mapstructure:"extended_shapes"`
	Converter      string        `yaml:"converter" mapstructure:"converter"`
	TempDir        string        `yaml:"temp_dir" mapstructure:"temp_dir"`
	MaxConcurrency int           `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type TranscriptionConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"`
	Model           string `yaml:"model" mapstructure:"model"`
	MinBytes        int    `yaml:"min_bytes" mapstructure:"min_bytes"`
	MaxBytes        int    `yaml:"max_bytes" mapstructure:"max_bytes"`
	TempDir         string `yaml:"temp_dir" mapstructure:"temp_dir"`
	DefaultLanguage string `yaml:"default_language" mapstructure:"default_language"`
}

type PipelineConfig struct {
	SynthesisTimeout time.Duration `yaml:"synthesis_timeout" mapstructure:"synthesis_timeout"`
	LipSyncTimeout   time.Duration `yaml:"lipsync_timeout" mapstructure:"lipsync_timeout"`
	TotalTimeout     time.Duration `yaml:"total_timeout" mapstructure:"total_timeout"`
	RecorderTimeout  time.Duration `yaml:"recorder_timeout" mapstructure:"recorder_timeout"`
}

type EventBusConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
}

type ObservabilityConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	SlowSpan time.Duration `yaml:"slow_span" mapstructure:"slow_span"`
}
