package openai

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"tutor-voice-server/internal/domain/asr"
	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/logging"
	"tutor-voice-server/internal/util/tempfile"
)

const providerName = "openai"

// Config Whisper 转写配置
type Config struct {
	Model           string
	TempDir         string
	DefaultLanguage string
	// Limits 上传大小限制，零值只拒绝空音频
	Limits asr.Limits
}

// Provider transcribes uploads with the OpenAI audio/transcriptions endpoint.
type Provider struct {
	client *openai.Client
	cfg    Config
	logger *logging.Logger
}

func NewProvider(client *openai.Client, cfg Config, logger *logging.Logger) (*Provider, error) {
	if client == nil {
		return nil, errors.New(errors.KindConfig, "asr.openai.new", "openai client is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Provider{client: client, cfg: cfg, logger: logger}, nil
}

func (p *Provider) Name() string { return providerName }

// Transcribe 写入临时文件后调用一次转写接口，临时文件在所有路径上删除
func (p *Provider) Transcribe(ctx context.Context, audio []byte, opts asr.Options) (*asr.Result, error) {
	if err := asr.Validate(audio, p.cfg.Limits); err != nil {
		return nil, err
	}
	ext := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if ext == "" {
		ext = "webm"
	}
	file, err := tempfile.Write(p.cfg.TempDir, ext, audio)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "asr.openai.tempfile", "failed to stage audio", err)
	}
	defer func() {
		if rmErr := file.Remove(); rmErr != nil {
			p.logger.WarnTag("Whisper", "failed to remove %s: %v", file.Path, rmErr)
		}
	}()

	language := opts.Language
	if language == "" {
		language = p.cfg.DefaultLanguage
	}

	start := time.Now()
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.cfg.Model,
		FilePath: file.Path,
		Language: language,
		Prompt:   opts.Prompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, asr.Unavailable(providerName, "asr.openai.transcribe", err)
	}

	result := &asr.Result{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: make([]asr.Segment, 0, len(resp.Segments)),
	}
	if result.Language == "" {
		result.Language = language
	}
	for _, seg := range resp.Segments {
		result.Segments = append(result.Segments, asr.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	p.logger.DebugTag("Whisper", "转写完成 bytes=%d chars=%d elapsed=%s", len(audio), len(result.Text), time.Since(start))
	return result, nil
}
