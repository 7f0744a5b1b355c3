package openai

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"tutor-voice-server/internal/domain/tts"
	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/logging"
)

const providerName = "openai"

// Config OpenAI 语音合成配置
type Config struct {
	Voice         string
	Model         string
	Format        string
	Speed         float64
	MaxTextLength int
}

// Provider synthesizes speech through the OpenAI audio/speech endpoint.
type Provider struct {
	client   *openai.Client
	defaults tts.Options
	maxLen   int
	logger   *logging.Logger
}

// NewProvider 创建 OpenAI TTS 提供者
func NewProvider(client *openai.Client, cfg Config, logger *logging.Logger) (*Provider, error) {
	if client == nil {
		return nil, errors.New(errors.KindConfig, "tts.openai.new", "openai client is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	defaults := tts.Options{
		Voice:  cfg.Voice,
		Model:  cfg.Model,
		Format: cfg.Format,
		Speed:  cfg.Speed,
	}
	if defaults.Voice == "" {
		defaults.Voice = string(openai.VoiceNova)
	}
	if defaults.Model == "" {
		defaults.Model = string(openai.TTSModel1)
	}
	if defaults.Format == "" {
		defaults.Format = string(openai.SpeechResponseFormatMp3)
	}

	return &Provider{
		client:   client,
		defaults: defaults,
		maxLen:   cfg.MaxTextLength,
		logger:   logger,
	}, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Defaults() tts.Options { return p.defaults }

// Synthesize 合成语音，一次调用，不重试
func (p *Provider) Synthesize(ctx context.Context, text string, opts tts.Options) (*tts.Result, error) {
	if err := tts.ValidateText(text, p.maxLen); err != nil {
		return nil, err
	}
	opts = tts.Merge(opts, p.defaults)

	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(opts.Model),
		Input:          strings.TrimSpace(text),
		Voice:          openai.SpeechVoice(opts.Voice),
		ResponseFormat: openai.SpeechResponseFormat(opts.Format),
	}
	if opts.Speed > 0 {
		req.Speed = opts.Speed
	}

	start := time.Now()
	resp, err := p.client.CreateSpeech(ctx, req)
	if err != nil {
		return nil, tts.Unavailable(providerName, "tts.openai.synthesize", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, tts.Unavailable(providerName, "tts.openai.read", err)
	}
	if len(audio) == 0 {
		return nil, errors.New(errors.KindDependency, "tts.openai.synthesize", "speech provider openai returned no audio")
	}

	p.logger.DebugTag("OpenAITTS", "合成完成 voice=%s model=%s bytes=%d elapsed=%s",
		opts.Voice, opts.Model, len(audio), time.Since(start))

	return &tts.Result{
		Audio:    audio,
		Voice:    opts.Voice,
		Model:    opts.Model,
		Format:   opts.Format,
		Provider: providerName,
	}, nil
}

// HealthCheck lists models as a cheap authenticated round trip.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return tts.Unavailable(providerName, "tts.openai.health", err)
	}
	return nil
}
