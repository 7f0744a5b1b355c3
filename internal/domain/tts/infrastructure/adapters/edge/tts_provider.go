package edge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"tutor-voice-server/internal/domain/tts"
	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/logging"
)

const (
	providerName = "edge"
	// edge 不区分模型，用固定名称参与缓存键
	modelName    = "edge-tts"
	defaultVoice = "es-MX-DaliaNeural"
)

// Config Edge TTS配置
type Config struct {
	Voice         string
	MaxTextLength int
	// MaxFailures 连续失败多少次后熔断
	MaxFailures int
	RetryAfter  time.Duration
}

type speakFunc func(voice, text string) ([]byte, error)

// Provider Edge TTS提供者
type Provider struct {
	defaults tts.Options
	maxLen   int
	logger   *logging.Logger
	speak    speakFunc
	breaker  *circuitBreaker
}

// NewProvider 创建Edge TTS提供者
func NewProvider(cfg Config, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Default()
	}
	voice := cfg.Voice
	if voice == "" {
		voice = defaultVoice
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = 30 * time.Second
	}

	return &Provider{
		defaults: tts.Options{Voice: voice, Model: modelName, Format: "mp3"},
		maxLen:   cfg.MaxTextLength,
		logger:   logger,
		speak:    communicate,
		breaker:  &circuitBreaker{maxFailures: cfg.MaxFailures, retryAfter: cfg.RetryAfter},
	}
}

func communicate(voice, text string) ([]byte, error) {
	c, err := edge_tts.NewCommunicate(text, edge_tts.SetVoice(voice))
	if err != nil {
		return nil, fmt.Errorf("failed to create Edge TTS communicator: %w", err)
	}
	return c.Stream()
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Defaults() tts.Options { return p.defaults }

// Synthesize 合成音频。底层库不接受 context，超时由调用方的 ctx 控制
func (p *Provider) Synthesize(ctx context.Context, text string, opts tts.Options) (*tts.Result, error) {
	if err := tts.ValidateText(text, p.maxLen); err != nil {
		return nil, err
	}
	if p.breaker.isOpen() {
		return nil, errors.New(errors.KindDependency, "tts.edge.synthesize", "speech provider edge unavailable: circuit breaker is open")
	}
	opts = tts.Merge(opts, p.defaults)
	// edge 只输出 mp3
	opts.Model = modelName
	opts.Format = "mp3"

	type outcome struct {
		audio []byte
		err   error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		audio, err := p.speak(opts.Voice, strings.TrimSpace(text))
		done <- outcome{audio: audio, err: err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		p.breaker.recordFailure()
		return nil, tts.Unavailable(providerName, "tts.edge.synthesize", ctx.Err())
	case out = <-done:
	}

	if out.err == nil && len(out.audio) == 0 {
		out.err = fmt.Errorf("empty audio")
	}
	if out.err != nil {
		p.breaker.recordFailure()
		p.logger.ErrorTag("EdgeTTS", "语音合成失败: %v", out.err)
		return nil, tts.Unavailable(providerName, "tts.edge.synthesize", out.err)
	}
	p.breaker.recordSuccess()

	p.logger.DebugTag("EdgeTTS", "语音合成耗时: %v, voice=%s bytes=%d", time.Since(start), opts.Voice, len(out.audio))
	return &tts.Result{
		Audio:    out.audio,
		Voice:    opts.Voice,
		Model:    opts.Model,
		Format:   opts.Format,
		Provider: providerName,
	}, nil
}

// HealthCheck 只检查熔断器状态，避免为探活发起真实合成
func (p *Provider) HealthCheck(context.Context) error {
	if p.breaker.isOpen() {
		return errors.New(errors.KindDependency, "tts.edge.health", "speech provider edge unavailable: circuit breaker is open")
	}
	return nil
}

const (
	stateClosed = iota
	stateOpen
	stateHalfOpen
)

// circuitBreaker 熔断器实现
type circuitBreaker struct {
	mu          sync.Mutex
	maxFailures int
	failures    int
	lastFailure time.Time
	state       int
	retryAfter  time.Duration
	now         func() time.Time
}

func (cb *circuitBreaker) clock() time.Time {
	if cb.now != nil {
		return cb.now()
	}
	return time.Now()
}

// isOpen 检查熔断器是否打开，冷却结束后进入半开状态放行一次
func (cb *circuitBreaker) isOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == stateOpen {
		if cb.clock().Sub(cb.lastFailure) > cb.retryAfter {
			cb.state = stateHalfOpen
			return false
		}
		return true
	}
	return false
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = stateClosed
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.clock()
	if cb.failures >= cb.maxFailures || cb.state == stateHalfOpen {
		cb.state = stateOpen
	}
}
