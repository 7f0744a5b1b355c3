package adapters

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	goopenai "github.com/sashabaranov/go-openai"

	"tutor-voice-server/internal/domain/asr"
	"tutor-voice-server/internal/domain/asr/infrastructure/adapters/openai"
	"tutor-voice-server/internal/platform/config"
	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/logging"
)

// Dependencies are the shared resources a transcription factory may use.
type Dependencies struct {
	Config config.TranscriptionConfig
	OpenAI *goopenai.Client
	Logger *logging.Logger
}

// Factory builds a transcriber from dependencies.
type Factory func(deps Dependencies) (asr.Transcriber, error)

// Registry ASR提供者注册器
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry 创建注册器并注册内置提供者
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.factories["openai"] = newOpenAI
	return r
}

func newOpenAI(deps Dependencies) (asr.Transcriber, error) {
	p, err := openai.NewProvider(deps.OpenAI, openai.Config{
		Model:           deps.Config.Model,
		TempDir:         deps.Config.TempDir,
		DefaultLanguage: deps.Config.DefaultLanguage,
		Limits:          asr.Limits{MinBytes: deps.Config.MinBytes, MaxBytes: deps.Config.MaxBytes},
	}, deps.Logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Register 注册提供者工厂，名称重复时报错
func (r *Registry) Register(name string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}
	name = strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("ASR provider factory '%s' already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Names 列出所有已注册的工厂
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create 按配置的提供者名称创建实例
func (r *Registry) Create(deps Dependencies) (asr.Transcriber, error) {
	name := strings.ToLower(strings.TrimSpace(deps.Config.Provider))
	if name == "" {
		name = "openai"
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.KindConfig, "asr.registry.create", fmt.Sprintf("ASR provider factory '%s' not found", name))
	}
	return factory(deps)
}
