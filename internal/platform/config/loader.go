package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tutor-voice-server/internal/platform/errors"
)

// DefaultPath is used when no explicit config path is given.
const DefaultPath = "config.yaml"

// Loader reads configuration from a YAML file layered over DefaultConfig,
// then applies environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader for the default path with .env support enabled.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      DefaultPath,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the YAML path. An empty path keeps the current one.
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// WithEnv overrides the environment lookup (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads the configuration. A missing file at the default path is not an
// error; defaults and environment values are used instead.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	origin := "defaults"

	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.load.parse", fmt.Sprintf("failed to parse %s", l.path), err)
		}
		origin = l.path
	case os.IsNotExist(err) && l.path == DefaultPath:
	default:
		return nil, errors.Wrap(errors.KindConfig, "config.load.read", fmt.Sprintf("failed to read %s", l.path), err)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: origin}, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.env("OPENAI_API_KEY"); ok {
		cfg.OpenAI.APIKey = v
	}
	if v, ok := l.env("OPENAI_BASE_URL"); ok {
		cfg.OpenAI.BaseURL = v
	}
	if v, ok := l.env("TUTOR_VOICE_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.KindConfig, "config.env.port", "TUTOR_VOICE_PORT must be an integer", err)
		}
		cfg.Server.Port = port
	}
	if v, ok := l.env("TUTOR_VOICE_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := l.env("TUTOR_VOICE_CACHE_DRIVER"); ok {
		cfg.Cache.Driver = v
	}
	if v, ok := l.env("TUTOR_VOICE_REDIS_ADDR"); ok {
		cfg.Cache.Redis.Addr = v
	}
	if v, ok := l.env("TUTOR_VOICE_DB_PATH"); ok {
		cfg.Database.Path = v
	}
	return nil
}

func (l *Loader) env(key string) (string, bool) {
	v, ok := l.lookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Validate checks the values the server cannot start without.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.KindConfig, "config.validate", "config is nil")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New(errors.KindConfig, "config.validate", fmt.Sprintf("invalid server port %d", cfg.Server.Port))
	}
	switch cfg.Cache.Driver {
	case "memory", "sqlite":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			return errors.New(errors.KindConfig, "config.validate", "cache.redis.addr is required for the redis driver")
		}
	default:
		return errors.New(errors.KindConfig, "config.validate", fmt.Sprintf("unsupported cache driver %q", cfg.Cache.Driver))
	}
	if cfg.Cache.TTL <= 0 || cfg.Cache.DegradedTTL < 0 {
		return errors.New(errors.KindConfig, "config.validate", "cache ttl values must be positive")
	}
	switch cfg.TTS.Provider {
	case "openai", "edge":
	default:
		return errors.New(errors.KindConfig, "config.validate", fmt.Sprintf("unsupported tts provider %q", cfg.TTS.Provider))
	}
	if cfg.TTS.MaxTextLength <= 0 {
		return errors.New(errors.KindConfig, "config.validate", "tts.max_text_length must be positive")
	}
	if cfg.Transcription.MinBytes < 0 || cfg.Transcription.MaxBytes <= cfg.Transcription.MinBytes {
		return errors.New(errors.KindConfig, "config.validate", "transcription byte limits are inconsistent")
	}
	p := cfg.Pipeline
	if p.SynthesisTimeout <= 0 || p.LipSyncTimeout <= 0 || p.TotalTimeout <= 0 {
		return errors.New(errors.KindConfig, "config.validate", "pipeline timeouts must be positive")
	}
	if p.SynthesisTimeout > p.TotalTimeout || p.LipSyncTimeout > p.TotalTimeout {
		return errors.New(errors.KindConfig, "config.validate", "stage timeouts must not exceed pipeline.total_timeout")
	}
	return nil
}
