// Package providers builds the external speech collaborators from config.
package providers

import (
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"tutor-voice-server/internal/domain/asr"
	asradapters "tutor-voice-server/internal/domain/asr/infrastructure/adapters"
	"tutor-voice-server/internal/domain/lipsync"
	"tutor-voice-server/internal/domain/tts"
	ttsinfra "tutor-voice-server/internal/domain/tts/infrastructure"
	"tutor-voice-server/internal/platform/config"
	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/logging"
)

// Set groups the provider instances shared by every request.
type Set struct {
	OpenAI      *goopenai.Client
	Synthesizer tts.Synthesizer
	Transcriber asr.Transcriber
	LipSync     *lipsync.Service
}

// NewOpenAIClient builds the client shared by the speech and transcription adapters.
func NewOpenAIClient(cfg config.OpenAIConfig) *goopenai.Client {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	if cfg.Organization != "" {
		clientCfg.OrgID = cfg.Organization
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return goopenai.NewClientWithConfig(clientCfg)
}

// Build creates every provider named in cfg. A missing API key is not fatal
// for an edge speech setup, but is logged because transcription needs it.
func Build(cfg *config.Config, registry *asradapters.Registry, logger *logging.Logger) (*Set, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "providers.build", "config is nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if registry == nil {
		registry = asradapters.NewRegistry()
	}

	if cfg.OpenAI.APIKey == "" {
		logger.WarnTag("Providers", "openai api key is empty, openai calls will be rejected")
	}
	client := NewOpenAIClient(cfg.OpenAI)

	synth, err := ttsinfra.NewSynthesizer(cfg.TTS, client, logger)
	if err != nil {
		return nil, err
	}

	transcriber, err := registry.Create(asradapters.Dependencies{
		Config: cfg.Transcription,
		OpenAI: client,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	analyzer := lipsync.NewRhubarbAnalyzer(lipsync.RhubarbConfig{
		Binary:         cfg.LipSync.Binary,
		Recognizer:     cfg.LipSync.Recognizer,
		ExtendedShapes: cfg.LipSync.ExtendedShapes,
		Converter:      cfg.LipSync.Converter,
		TempDir:        cfg.LipSync.TempDir,
		MaxConcurrency: cfg.LipSync.MaxConcurrency,
		Timeout:        cfg.LipSync.Timeout,
	}, logger)
	ls := lipsync.NewService(analyzer, cfg.LipSync.Enabled, logger)
	if cfg.LipSync.Enabled && !analyzer.Available() {
		logger.WarnTag("Providers", "lip-sync binary %q not found, responses will carry empty cues", cfg.LipSync.Binary)
	}

	logger.InfoTag("Providers", "speech=%s transcription=%s lipsync=%t", synth.Name(), transcriber.Name(), ls.Available())

	return &Set{
		OpenAI:      client,
		Synthesizer: synth,
		Transcriber: transcriber,
		LipSync:     ls,
	}, nil
}
