package providers

import (
	"testing"

	asradapters "tutor-voice-server/internal/domain/asr/infrastructure/adapters"
	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/logging"
	testutil "tutor-voice-server/internal/platform/testing"
)

func TestBuildDefaults(t *testing.T) {
	cfg := testutil.SetupTestConfig(t)
	cfg.LipSync.Binary = "rhubarb-not-installed-here"

	set, err := Build(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if set.OpenAI == nil || set.Synthesizer == nil || set.Transcriber == nil || set.LipSync == nil {
		t.Fatalf("incomplete provider set: %+v", set)
	}
	if set.Synthesizer.Name() != "openai" || set.Transcriber.Name() != "openai" {
		t.Fatalf("unexpected providers %s / %s", set.Synthesizer.Name(), set.Transcriber.Name())
	}
	if set.LipSync.Available() {
		t.Fatalf("lip-sync must be unavailable without the binary")
	}
}

func TestBuildEdgeSpeech(t *testing.T) {
	cfg := testutil.SetupTestConfig(t)
	cfg.TTS.Provider = "edge"
	cfg.TTS.Voice = "es-MX-JorgeNeural"
	cfg.LipSync.Enabled = false

	set, err := Build(cfg, asradapters.NewRegistry(), logging.NewNop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if set.Synthesizer.Name() != "edge" || set.Synthesizer.Defaults().Voice != "es-MX-JorgeNeural" {
		t.Fatalf("unexpected synthesizer %s %+v", set.Synthesizer.Name(), set.Synthesizer.Defaults())
	}
}

func TestBuildRejectsUnknownProviders(t *testing.T) {
	cfg := testutil.SetupTestConfig(t)
	cfg.TTS.Provider = "festival"
	if _, err := Build(cfg, nil, logging.NewNop()); !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}

	cfg = testutil.SetupTestConfig(t)
	cfg.Transcription.Provider = "vosk"
	if _, err := Build(cfg, nil, logging.NewNop()); !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}

	if _, err := Build(nil, nil, nil); !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error for nil config")
	}
}

func TestNewOpenAIClient(t *testing.T) {
	cfg := testutil.SetupTestConfig(t)
	cfg.OpenAI.BaseURL = "http://localhost:9999/v1/"
	if NewOpenAIClient(cfg.OpenAI) == nil {
		t.Fatalf("expected client")
	}
}
