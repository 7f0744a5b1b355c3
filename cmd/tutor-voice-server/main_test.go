package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{{"serve"}, {"health"}, {"cache", "stats"}, {"cache", "sweep"}} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Fatalf("command %v not registered: %v", path, err)
		}
	}
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Fatal("--config flag missing")
	}
}

func TestCacheStatsCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
log:
  log_dir: %q
  console: false
database:
  path: %q
cache:
  driver: sqlite
`, filepath.Join(dir, "logs"), filepath.Join(dir, "voice.db"))
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfg, "--no-dotenv", "cache", "stats"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		cfgFile, noDotEnv = "", false
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "driver:  sqlite") || !strings.Contains(out.String(), "entries: 0") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
