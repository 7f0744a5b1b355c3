// Package asr defines speech transcription for recorded student answers.
package asr

import (
	"context"
	stderrors "errors"
	"fmt"

	"tutor-voice-server/internal/platform/errors"
)

var (
	// ErrEmptyAudio is returned for recordings below Limits.MinBytes.
	ErrEmptyAudio = stderrors.New("audio is empty or too short")
	// ErrPayloadTooLarge is returned for recordings above Limits.MaxBytes.
	ErrPayloadTooLarge = stderrors.New("audio exceeds maximum size")
)

// Limits bounds accepted upload sizes in bytes. MaxBytes itself is accepted.
type Limits struct {
	MinBytes int
	MaxBytes int
}

// Options tune a single transcription request.
type Options struct {
	// Language is an ISO-639-1 hint; empty lets the provider detect it.
	Language string
	// Format is the container of the upload (webm, mp3, wav...).
	Format string
	Prompt string
}

// Segment is a timed slice of the transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is a transcript. Duration is zero when the provider did not report it.
type Result struct {
	Text     string
	Language string
	Duration float64
	Segments []Segment
}

// Transcriber converts recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, opts Options) (*Result, error)
	Name() string
}

// Validate enforces limits before any provider sees the payload.
func Validate(audio []byte, limits Limits) error {
	if len(audio) == 0 || len(audio) < limits.MinBytes {
		return errors.Wrap(errors.KindValidation, "asr.validate",
			fmt.Sprintf("audio must be at least %d bytes", limits.MinBytes), ErrEmptyAudio)
	}
	if limits.MaxBytes > 0 && len(audio) > limits.MaxBytes {
		return errors.Wrap(errors.KindValidation, "asr.validate",
			fmt.Sprintf("audio must not exceed %d bytes", limits.MaxBytes), ErrPayloadTooLarge)
	}
	return nil
}

// Unavailable wraps a provider failure as a dependency error naming the provider.
func Unavailable(provider, op string, err error) error {
	return errors.WrapAs(errors.KindDependency, op, fmt.Sprintf("transcription provider %s unavailable", provider), err)
}
