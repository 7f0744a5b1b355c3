// Package tts defines the speech synthesis contract used by the voice pipeline.
package tts

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"tutor-voice-server/internal/platform/errors"
)

var (
	// ErrEmptyText is returned for text that is empty after trimming.
	ErrEmptyText = stderrors.New("text is empty")
	// ErrTextTooLong is returned when text exceeds the configured rune limit.
	ErrTextTooLong = stderrors.New("text exceeds maximum length")
)

// DefaultMaxTextLength is used when a provider is built without a limit.
const DefaultMaxTextLength = 4096

// Options selects the voice parameters for one synthesis call. Empty fields
// fall back to the provider defaults.
type Options struct {
	Voice  string
	Model  string
	Format string
	Speed  float64
}

// Result is the synthesized audio along with the parameters that actually
// produced it.
type Result struct {
	Audio    []byte
	Voice    string
	Model    string
	Format   string
	Provider string
}

// Synthesizer turns text into speech audio. Implementations make exactly one
// outbound call per Synthesize and never retry internally.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts Options) (*Result, error)
	// Defaults returns the voice, model and format used when Options leaves them empty.
	Defaults() Options
	HealthCheck(ctx context.Context) error
	Name() string
}

// ValidateText rejects empty text and text longer than maxRunes. Text made
// only of whitespace, control characters or invalid bytes counts as empty.
func ValidateText(text string, maxRunes int) error {
	if strings.TrimFunc(text, unspeakable) == "" {
		return errors.Wrap(errors.KindValidation, "tts.validate", "text must not be empty", ErrEmptyText)
	}
	if maxRunes <= 0 {
		maxRunes = DefaultMaxTextLength
	}
	if n := utf8.RuneCountInString(text); n > maxRunes {
		return errors.Wrap(errors.KindValidation, "tts.validate",
			fmt.Sprintf("text has %d characters, maximum is %d", n, maxRunes), ErrTextTooLong)
	}
	return nil
}

// unspeakable matches the runes dropped by cache key normalization.
func unspeakable(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r) || r == utf8.RuneError
}

// Merge fills the empty fields of opts from defaults.
func Merge(opts, defaults Options) Options {
	if opts.Voice == "" {
		opts.Voice = defaults.Voice
	}
	if opts.Model == "" {
		opts.Model = defaults.Model
	}
	if opts.Format == "" {
		opts.Format = defaults.Format
	}
	if opts.Speed == 0 {
		opts.Speed = defaults.Speed
	}
	return opts
}

// Unavailable wraps a provider failure as a dependency error naming the provider.
func Unavailable(provider, op string, err error) error {
	return errors.WrapAs(errors.KindDependency, op, fmt.Sprintf("speech provider %s unavailable", provider), err)
}
