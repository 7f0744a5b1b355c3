package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"tutor-voice-server/internal/app/health"
	"tutor-voice-server/internal/app/pipeline"
	"tutor-voice-server/internal/domain/asr"
	"tutor-voice-server/internal/domain/eventbus"
	"tutor-voice-server/internal/domain/interaction"
	"tutor-voice-server/internal/domain/providers"
	"tutor-voice-server/internal/domain/voicecache"
	"tutor-voice-server/internal/domain/voicecache/store"
	platformconfig "tutor-voice-server/internal/platform/config"
	platformerrors "tutor-voice-server/internal/platform/errors"
	platformlogging "tutor-voice-server/internal/platform/logging"
	platformobservability "tutor-voice-server/internal/platform/observability"
	platformstorage "tutor-voice-server/internal/platform/storage"
	httptransport "tutor-voice-server/internal/transport/http"
	httpvoice "tutor-voice-server/internal/transport/http/voice"
)

const healthCheckTimeout = 3 * time.Second

// Options selects where configuration comes from.
type Options struct {
	ConfigPath string
	// SkipDotEnv disables loading a .env file.
	SkipDotEnv bool
	// LookupEnv replaces os.LookupEnv, mainly for tests.
	LookupEnv func(string) (string, bool)
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts                  Options
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	bus                   *eventbus.AsyncEventBus
	cache                 *voicecache.Cache
	providers             *providers.Set
	interactions          *interaction.Repository
	pipeline              *pipeline.Orchestrator
	probe                 *health.Probe
}

// App is a fully initialised voice service.
type App struct {
	state *appState
	steps []initStep
}

// Build runs the init graph. The caller owns the returned App and must Close it.
func Build(ctx context.Context, opts Options) (*App, error) {
	state := &appState{opts: opts}
	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		closeState(context.Background(), state)
		return nil, err
	}
	return &App{state: state, steps: steps}, nil
}

func (a *App) Config() *platformconfig.Config        { return a.state.config }
func (a *App) Logger() *platformlogging.Logger       { return a.state.logger }
func (a *App) Cache() *voicecache.Cache              { return a.state.cache }
func (a *App) Pipeline() *pipeline.Orchestrator      { return a.state.pipeline }
func (a *App) Probe() *health.Probe                  { return a.state.probe }
func (a *App) Interactions() *interaction.Repository { return a.state.interactions }

// Handler builds the HTTP handler with every route registered.
func (a *App) Handler() (http.Handler, error) {
	s := a.state
	router, err := httptransport.Build(httptransport.Options{Config: s.config, Logger: s.logger})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build router", err)
	}
	httptransport.RegisterDocs(router, s.logger)
	httpvoice.NewHandler(httpvoice.Options{
		Pipeline:      s.pipeline,
		Health:        s.probe,
		Cache:         s.cache,
		Interactions:  s.interactions,
		MaxAudioBytes: s.config.Transcription.MaxBytes,
		Logger:        s.logger,
	}).RegisterRoutes(router)
	return router.Engine, nil
}

// Close releases everything Build acquired, in reverse order.
func (a *App) Close(ctx context.Context) {
	closeState(ctx, a.state)
}

func closeState(ctx context.Context, s *appState) {
	if s == nil {
		return
	}
	logger := s.logger
	if logger == nil {
		logger = platformlogging.Default()
	}
	if s.bus != nil {
		s.bus.Stop()
		if dropped := s.bus.Dropped(); dropped > 0 {
			logger.WarnTag("引导", "event bus dropped %d events", dropped)
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(ctx); err != nil {
			logger.WarnTag("引导", "cache store did not close cleanly: %v", err)
		}
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil {
			logger.WarnTag("引导", "database did not close cleanly: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := s.observabilityShutdown(shutdownCtx); err != nil {
			logger.WarnTag("引导", "可观测性未正常关闭: %v", err)
		}
		cancel()
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// Run 启动整个服务生命周期，负责加载配置、初始化依赖和优雅关停。
func Run(ctx context.Context, opts Options) error {
	app, err := Build(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	logger := app.state.logger
	logBootstrapGraph(app.steps, logger)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Serve(signalCtx)
}

// Serve runs the HTTP server and the cache sweeper until ctx is done, then
// shuts both down.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.state.config

	handler, err := a.Handler()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(cfg.Server.IP, strconv.Itoa(cfg.Server.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindTransport, "http:listen", fmt.Sprintf("cannot listen on %s", addr), err)
	}
	return a.serveOn(ctx, listener, handler)
}

func (a *App) serveOn(ctx context.Context, listener net.Listener, handler http.Handler) error {
	cfg := a.state.config
	logger := a.state.logger

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoTag("HTTP", "Gin 服务已启动，访问地址 http://%s", listener.Addr())
		logger.InfoTag("HTTP", "在线文档入口: http://%s/docs", listener.Addr())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return platformerrors.Wrap(platformerrors.KindTransport, "http:serve", "http server failed", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.InfoTag("引导", "收到停止信号 %v，正在进行资源清理", context.Cause(groupCtx))

		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorTag("HTTP", "HTTP 服务关闭失败: %v", err)
			return err
		}
		logger.InfoTag("HTTP", "HTTP 服务已优雅关闭")
		return nil
	})

	g.Go(func() error {
		return a.state.cache.RunSweeper(groupCtx, cfg.Cache.SweepInterval)
	})

	if err := g.Wait(); err != nil {
		logger.ErrorTag("引导", "服务关闭过程中出现错误: %v", err)
		return err
	}
	logger.InfoTag("引导", "所有服务已成功关闭")
	return nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("引导", "初始化依赖关系概览")
	for _, step := range steps {
		deps := "-"
		if len(step.DependsOn) > 0 {
			deps = strings.Join(step.DependsOn, ", ")
		}
		logger.InfoTag("引导", "%s (%s) <- %s", step.ID, step.Title, deps)
	}
	logger.InfoTag("引导", "启动服务")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the init steps in execution order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Start event bus",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "cache:init-store",
			Title:     "Open artifact cache",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initCacheStep,
		},
		{
			ID:        "providers:init",
			Title:     "Build speech providers",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindDependency,
			Execute:   initProvidersStep,
		},
		{
			ID:        "pipeline:init",
			Title:     "Assemble voice pipeline",
			DependsOn: []string{"storage:init-database", "eventbus:init", "cache:init-store", "providers:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initPipelineStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := platformconfig.NewLoader().
		WithDotEnv(!state.opts.SkipDotEnv).
		WithPath(state.opts.ConfigPath).
		WithEnv(state.opts.LookupEnv)
	res, err := loader.Load()
	if err != nil {
		return err
	}
	state.config = res.Config
	state.configPath = res.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "logging:init-provider", "config not loaded")
	}

	c := state.config.Log
	logger, err := platformlogging.New(platformlogging.Config{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Console:    c.Console,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logger = logger
	platformlogging.SetDefault(logger)
	logger.InfoTag("引导", "日志模块就绪 [%s] %s", c.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	cfg := platformobservability.Config{
		Enabled:  state.config.Observability.Enabled || strings.EqualFold(state.config.Log.Level, "debug"),
		SlowSpan: state.config.Observability.SlowSpan,
	}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	db, err := platformstorage.Open(state.config.Database.Path)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-database", "failed to initialize database", err)
	}
	state.db = db
	state.logger.InfoTag("引导", "数据库就绪 %s", state.config.Database.Path)
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	c := state.config.EventBus
	bus := eventbus.NewAsyncEventBus(c.Workers, c.QueueSize, state.logger)
	if err := eventbus.NewLogHandler(state.logger).Register(bus); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "eventbus:init", "failed to subscribe event handlers", err)
	}
	bus.Start()
	state.bus = bus
	return nil
}

func initCacheStep(_ context.Context, state *appState) error {
	c := state.config.Cache
	s, err := store.New(store.Config{
		Driver: c.Driver,
		Redis: &store.RedisConfig{
			Addr:     c.Redis.Addr,
			Username: c.Redis.Username,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		},
		Memory: &store.MemoryConfig{GCInterval: c.Memory.GCInterval},
	}, store.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return err
	}
	state.cache = voicecache.New(s, c.TTL, state.logger).WithDegradedTTL(c.DegradedTTL)
	state.logger.InfoTag("引导", "语音缓存就绪 driver=%s ttl=%s degraded_ttl=%s", s.Driver(), c.TTL, c.DegradedTTL)
	return nil
}

func initProvidersStep(_ context.Context, state *appState) error {
	set, err := providers.Build(state.config, nil, state.logger)
	if err != nil {
		return err
	}
	state.providers = set
	return nil
}

func initPipelineStep(_ context.Context, state *appState) error {
	cfg := state.config

	repo, err := interaction.NewRepository(state.db)
	if err != nil {
		return err
	}

	orch, err := pipeline.New(pipeline.Config{
		Language:         cfg.TTS.Language,
		MaxTextLength:    cfg.TTS.MaxTextLength,
		SynthesisTimeout: cfg.Pipeline.SynthesisTimeout,
		LipSyncTimeout:   cfg.Pipeline.LipSyncTimeout,
		TotalTimeout:     cfg.Pipeline.TotalTimeout,
		RecorderTimeout:  cfg.Pipeline.RecorderTimeout,
		ListenLanguage:   cfg.Transcription.DefaultLanguage,
		ListenLimits:     asr.Limits{MinBytes: cfg.Transcription.MinBytes, MaxBytes: cfg.Transcription.MaxBytes},
	}, pipeline.Dependencies{
		Synthesizer: state.providers.Synthesizer,
		LipSync:     state.providers.LipSync,
		Transcriber: state.providers.Transcriber,
		Cache:       state.cache,
		Coordinator: pipeline.NewCoordinator(cfg.Pipeline.TotalTimeout),
		Recorder:    repo,
		Events:      state.bus,
		Logger:      state.logger,
	})
	if err != nil {
		return err
	}

	state.interactions = repo
	state.pipeline = orch
	state.probe = health.NewProbe(orch, state.cache, healthCheckTimeout, state.logger)
	return nil
}
