package lipsync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/semaphore"

	"tutor-voice-server/internal/platform/logging"
	"tutor-voice-server/internal/util/audio"
	"tutor-voice-server/internal/util/tempfile"
)

// RhubarbConfig configures the Rhubarb Lip Sync command line analyzer.
type RhubarbConfig struct {
	Binary         string
	Recognizer     string
	ExtendedShapes string
	// Converter turns non WAV/OGG input into WAV; ffmpeg compatible arguments.
	Converter      string
	TempDir        string
	MaxConcurrency int
	Timeout        time.Duration
}

// RhubarbAnalyzer shells out to rhubarb for every call.
type RhubarbAnalyzer struct {
	cfg    RhubarbConfig
	sem    *semaphore.Weighted
	logger *logging.Logger
}

type rhubarbOutput struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	MouthCues []Cue `json:"mouthCues"`
}

func NewRhubarbAnalyzer(cfg RhubarbConfig, logger *logging.Logger) *RhubarbAnalyzer {
	if cfg.Binary == "" {
		cfg.Binary = "rhubarb"
	}
	if cfg.Recognizer == "" {
		cfg.Recognizer = "phonetic"
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RhubarbAnalyzer{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		logger: logger,
	}
}

// Available reports whether the rhubarb binary resolves.
func (r *RhubarbAnalyzer) Available() bool {
	_, err := exec.LookPath(r.cfg.Binary)
	return err == nil
}

// Analyze writes audio to a scoped temp file, converts it when rhubarb cannot
// read the container, and parses the JSON cue output.
func (r *RhubarbAnalyzer) Analyze(ctx context.Context, data []byte, format string) (Sequence, error) {
	binary, err := exec.LookPath(r.cfg.Binary)
	if err != nil {
		return Sequence{}, fmt.Errorf("%w: %s: %v", ErrToolUnavailable, r.cfg.Binary, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return Sequence{}, fmt.Errorf("waiting for lip-sync slot: %w", err)
	}
	defer r.sem.Release(1)

	ext := containerOf(data, format)
	input, err := tempfile.Write(r.cfg.TempDir, ext, data)
	if err != nil {
		return Sequence{}, err
	}
	defer input.Remove()

	soundFile := input.Path
	if ext != "wav" && ext != "ogg" {
		converted := &tempfile.File{Path: input.Sibling("wav")}
		defer converted.Remove()
		if err := r.convert(ctx, input.Path, converted.Path); err != nil {
			return Sequence{}, err
		}
		soundFile = converted.Path
	}

	args := []string{"-q", "-f", "json", "-r", r.cfg.Recognizer}
	if r.cfg.ExtendedShapes != "" {
		args = append(args, "--extendedShapes", r.cfg.ExtendedShapes)
	}
	args = append(args, soundFile)

	start := time.Now()
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Child processes that inherit the pipes must not hold Wait past the deadline.
	cmd.WaitDelay = 2 * time.Second
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Sequence{}, fmt.Errorf("rhubarb timed out after %s: %w", r.cfg.Timeout, ctx.Err())
		}
		return Sequence{}, fmt.Errorf("rhubarb failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	seq, err := parseRhubarb(stdout.Bytes())
	if err != nil {
		return Sequence{}, err
	}
	r.logger.DebugTag("LipSync", "rhubarb produced %d cues in %s", len(seq.Cues), time.Since(start))
	return seq, nil
}

func (r *RhubarbAnalyzer) convert(ctx context.Context, in, out string) error {
	if r.cfg.Converter == "" {
		return fmt.Errorf("%w: no converter configured for compressed audio", ErrToolUnavailable)
	}
	converter, err := exec.LookPath(r.cfg.Converter)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrToolUnavailable, r.cfg.Converter, err)
	}

	cmd := exec.CommandContext(ctx, converter, "-y", "-loglevel", "error", "-i", in, out)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio conversion failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		return fmt.Errorf("audio conversion produced no output")
	}
	return nil
}

func parseRhubarb(raw []byte) (Sequence, error) {
	var out rhubarbOutput
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return Sequence{}, fmt.Errorf("parse rhubarb output: %w", err)
	}
	cues, err := Normalize(out.MouthCues)
	if err != nil {
		return Sequence{}, err
	}
	seq := Sequence{Duration: out.Metadata.Duration, Cues: cues}
	if seq.Duration < seq.LastEnd() {
		seq.Duration = seq.LastEnd()
	}
	return seq, nil
}

func containerOf(data []byte, format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	switch f {
	case "mpeg":
		return "mp3"
	case "wave", "x-wav":
		return "wav"
	case "":
		if sniffed := audio.Sniff(data); sniffed != "" {
			return sniffed
		}
		return "bin"
	}
	return f
}
