package lipsync

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"tutor-voice-server/internal/platform/logging"
)

const fakeRhubarbOutput = `{"metadata":{"duration":0.5},"mouthCues":[{"start":0.0,"end":0.2,"value":"X"},{"start":0.2,"end":0.5,"value":"B"}]}`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
}

// fakeRhubarb checks that its last argument is an existing .wav file and
// prints a canned cue list.
func fakeRhubarb(t *testing.T, dir string) string {
	return writeScript(t, dir, "rhubarb", `for last; do :; done
case "$last" in *.wav|*.ogg) ;; *) echo "unsupported $last" >&2; exit 2;; esac
[ -f "$last" ] || { echo "missing $last" >&2; exit 3; }
echo '`+fakeRhubarbOutput+`'`)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRhubarbAnalyzeWAV(t *testing.T) {
	skipWithoutShell(t)
	bin := t.TempDir()
	scratch := t.TempDir()

	a := NewRhubarbAnalyzer(RhubarbConfig{
		Binary:         fakeRhubarb(t, bin),
		ExtendedShapes: "GHX",
		TempDir:        scratch,
	}, logging.NewNop())

	if !a.Available() {
		t.Fatalf("expected analyzer to be available")
	}
	seq, err := a.Analyze(context.Background(), []byte("RIFF....WAVEfmt "), "wav")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(seq.Cues) != 2 || seq.Cues[1].Value != "B" || seq.Duration != 0.5 {
		t.Fatalf("unexpected sequence %+v", seq)
	}
	if left := listDir(t, scratch); len(left) != 0 {
		t.Fatalf("temp files left behind: %v", left)
	}
}

func TestRhubarbConvertsCompressedAudio(t *testing.T) {
	skipWithoutShell(t)
	bin := t.TempDir()
	scratch := t.TempDir()
	converter := writeScript(t, bin, "ffmpeg", `cp "$5" "$6"`)

	a := NewRhubarbAnalyzer(RhubarbConfig{
		Binary:    fakeRhubarb(t, bin),
		Converter: converter,
		TempDir:   scratch,
	}, logging.NewNop())

	seq, err := a.Analyze(context.Background(), []byte("ID3 fake mp3 payload"), "mp3")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(seq.Cues) != 2 {
		t.Fatalf("unexpected sequence %+v", seq)
	}
	if left := listDir(t, scratch); len(left) != 0 {
		t.Fatalf("temp files left behind: %v", left)
	}
}

func TestRhubarbFailures(t *testing.T) {
	skipWithoutShell(t)
	bin := t.TempDir()

	t.Run("missing binary", func(t *testing.T) {
		a := NewRhubarbAnalyzer(RhubarbConfig{Binary: filepath.Join(bin, "nope")}, logging.NewNop())
		if a.Available() {
			t.Fatalf("expected unavailable analyzer")
		}
		_, err := a.Analyze(context.Background(), []byte("RIFF"), "wav")
		if !stderrors.Is(err, ErrToolUnavailable) {
			t.Fatalf("expected ErrToolUnavailable, got %v", err)
		}
	})

	t.Run("non-zero exit", func(t *testing.T) {
		scratch := t.TempDir()
		a := NewRhubarbAnalyzer(RhubarbConfig{
			Binary:  writeScript(t, bin, "broken", `echo "boom" >&2; exit 1`),
			TempDir: scratch,
		}, logging.NewNop())
		_, err := a.Analyze(context.Background(), []byte("RIFF"), "wav")
		if err == nil || !strings.Contains(err.Error(), "boom") {
			t.Fatalf("expected stderr in error, got %v", err)
		}
		if left := listDir(t, scratch); len(left) != 0 {
			t.Fatalf("temp files left behind: %v", left)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		a := NewRhubarbAnalyzer(RhubarbConfig{
			Binary:  writeScript(t, bin, "slow", `exec sleep 5`),
			TempDir: t.TempDir(),
			Timeout: 100 * time.Millisecond,
		}, logging.NewNop())
		start := time.Now()
		_, err := a.Analyze(context.Background(), []byte("RIFF"), "wav")
		if err == nil || !strings.Contains(err.Error(), "timed out") {
			t.Fatalf("expected timeout error, got %v", err)
		}
		if time.Since(start) > 3*time.Second {
			t.Fatalf("timeout not enforced")
		}
	})

	t.Run("compressed without converter", func(t *testing.T) {
		a := NewRhubarbAnalyzer(RhubarbConfig{Binary: fakeRhubarb(t, bin), TempDir: t.TempDir()}, logging.NewNop())
		_, err := a.Analyze(context.Background(), []byte("ID3"), "mp3")
		if !stderrors.Is(err, ErrToolUnavailable) {
			t.Fatalf("expected ErrToolUnavailable, got %v", err)
		}
	})

	t.Run("garbage output", func(t *testing.T) {
		a := NewRhubarbAnalyzer(RhubarbConfig{
			Binary:  writeScript(t, bin, "garbage", `echo "not json"`),
			TempDir: t.TempDir(),
		}, logging.NewNop())
		if _, err := a.Analyze(context.Background(), []byte("RIFF"), "wav"); err == nil {
			t.Fatalf("expected parse error")
		}
	})
}

func TestContainerOf(t *testing.T) {
	tests := []struct {
		data   string
		format string
		want   string
	}{
		{format: "MP3", want: "mp3"},
		{format: "mpeg", want: "mp3"},
		{format: ".wav", want: "wav"},
		{data: "OggS", want: "ogg"},
		{data: "??", want: "bin"},
	}
	for _, tt := range tests {
		if got := containerOf([]byte(tt.data), tt.format); got != tt.want {
			t.Fatalf("containerOf(%q, %q) = %q, want %q", tt.data, tt.format, got, tt.want)
		}
	}
}
