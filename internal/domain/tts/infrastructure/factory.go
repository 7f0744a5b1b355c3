package infrastructure

import (
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"tutor-voice-server/internal/domain/tts"
	"tutor-voice-server/internal/domain/tts/infrastructure/adapters/edge"
	"tutor-voice-server/internal/domain/tts/infrastructure/adapters/openai"
	"tutor-voice-server/internal/platform/config"
	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/logging"
)

// NewSynthesizer 根据配置创建语音合成提供者。client 只在 openai 提供者时需要
func NewSynthesizer(cfg config.TTSConfig, client *goopenai.Client, logger *logging.Logger) (tts.Synthesizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		p, err := openai.NewProvider(client, openai.Config{
			Voice:         cfg.Voice,
			Model:         cfg.Model,
			Format:        cfg.Format,
			Speed:         cfg.Speed,
			MaxTextLength: cfg.MaxTextLength,
		}, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "edge":
		return edge.NewProvider(edge.Config{
			Voice:         cfg.Voice,
			MaxTextLength: cfg.MaxTextLength,
		}, logger), nil
	default:
		return nil, errors.New(errors.KindConfig, "tts.factory", fmt.Sprintf("unsupported tts provider %q", cfg.Provider))
	}
}
