package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	platformerrors "tutor-voice-server/internal/platform/errors"
	platformlogging "tutor-voice-server/internal/platform/logging"
)

var wantSteps = []string{
	"config:load",
	"logging:init-provider",
	"observability:setup-hooks",
	"storage:init-database",
	"eventbus:init",
	"cache:init-store",
	"providers:init",
	"pipeline:init",
}

func noEnv(string) (string, bool) { return "", false }

func writeTestConfig(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
server:
  ip: 127.0.0.1
  port: 18080
  shutdown_timeout: 2s
log:
  log_level: info
  log_dir: %q
  log_file: server.log
  console: false
database:
  path: %q
cache:
  driver: memory
  sweep_interval: 50ms
lipsync:
  enabled: true
  binary: %q
`, filepath.Join(dir, "logs"), filepath.Join(dir, "voice.db"), filepath.Join(dir, "no-such-rhubarb"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return Options{ConfigPath: path, SkipDotEnv: true, LookupEnv: noEnv}
}

func buildTestApp(t *testing.T) *App {
	t.Helper()
	app, err := Build(context.Background(), writeTestConfig(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { app.Close(context.Background()) })
	return app
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	if len(steps) != len(wantSteps) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(wantSteps))
	}
	for i, step := range steps {
		if step.ID != wantSteps[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, wantSteps[i])
		}
	}
}

func TestExecuteInitStepsRejectsUnsatisfiedDependency(t *testing.T) {
	steps := []initStep{{
		ID:        "pipeline:init",
		DependsOn: []string{"cache:init-store"},
		Execute:   func(context.Context, *appState) error { return nil },
	}}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindBootstrap) {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
}

func TestExecuteInitStepsWrapsWithStepKind(t *testing.T) {
	steps := []initStep{{
		ID:      "cache:init-store",
		Kind:    platformerrors.KindStorage,
		Execute: func(context.Context, *appState) error { return fmt.Errorf("disk full") },
	}}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestBuildWiresComponents(t *testing.T) {
	app := buildTestApp(t)

	if app.Config() == nil || app.Logger() == nil {
		t.Fatal("config or logger missing")
	}
	if app.Pipeline() == nil || app.Probe() == nil || app.Interactions() == nil {
		t.Fatal("pipeline components missing")
	}
	if got := app.Cache().Driver(); got != "memory" {
		t.Fatalf("expected memory cache, got %s", got)
	}
	if app.state.observabilityShutdown == nil {
		t.Fatal("observability shutdown hook not set")
	}
	if app.Pipeline().LipSyncAvailable() {
		t.Fatal("lip-sync should be unavailable without the binary")
	}
}

func TestBuildFailsOnBadConfig(t *testing.T) {
	_, err := Build(context.Background(), Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		SkipDotEnv: true,
		LookupEnv:  noEnv,
	})
	if !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestHandlerServesRoutes(t *testing.T) {
	app := buildTestApp(t)
	handler, err := app.Handler()
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}

	for _, path := range []string{"/api/voice/cache/stats", "/api/voice/interactions", "/openapi.json"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d body %s", path, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/voice/speak", strings.NewReader(`{"text":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank text: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	app := buildTestApp(t)
	handler, err := app.Handler()
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serveOn(ctx, listener, handler) }()

	url := "http://" + listener.Addr().String() + "/openapi.json"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	tmp := t.TempDir()
	logger, err := platformlogging.New(platformlogging.Config{Level: "info", Dir: tmp, Filename: "graph.log"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logBootstrapGraph(InitGraph(), logger)
	logger.Close()

	data, err := os.ReadFile(filepath.Join(tmp, "graph.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "初始化依赖关系概览") {
		t.Fatalf("graph header missing in log output: %s", content)
	}
	for _, id := range wantSteps {
		if !strings.Contains(content, id) {
			t.Fatalf("expected graph output to contain %q, got: %s", id, content)
		}
	}
}
