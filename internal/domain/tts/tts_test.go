package tts

import (
	stderrors "errors"
	"strings"
	"testing"

	"tutor-voice-server/internal/platform/errors"
)

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		max     int
		wantErr error
	}{
		{name: "too long", text: "¡Muy bien, lo lograste!", max: 10, wantErr: ErrTextTooLong},
		{name: "fits", text: "¡Muy bien!", max: 10},
		{name: "empty", text: "", max: 10, wantErr: ErrEmptyText},
		{name: "whitespace", text: " \n\t ", max: 10, wantErr: ErrEmptyText},
		{name: "control only", text: "\x00\x01\x07", max: 10, wantErr: ErrEmptyText},
		{name: "invalid bytes", text: "\xff\xfe ", max: 10, wantErr: ErrEmptyText},
		{name: "control around words", text: "\x00hola\x01", max: 10},
		{name: "counts runes not bytes", text: strings.Repeat("ñ", 10), max: 10},
		{name: "default limit", text: strings.Repeat("a", DefaultMaxTextLength+1), max: 0, wantErr: ErrTextTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateText(tt.text, tt.max)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !stderrors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.IsKind(err, errors.KindValidation) {
				t.Fatalf("expected validation kind, got %s", errors.KindOf(err))
			}
		})
	}
}

func TestMerge(t *testing.T) {
	got := Merge(Options{Voice: "alloy"}, Options{Voice: "nova", Model: "tts-1", Format: "mp3", Speed: 1})
	want := Options{Voice: "alloy", Model: "tts-1", Format: "mp3", Speed: 1}
	if got != want {
		t.Fatalf("Merge() = %+v, want %+v", got, want)
	}
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := Unavailable("openai", "tts.openai.synthesize", cause)
	if !errors.IsKind(err, errors.KindDependency) {
		t.Fatalf("expected dependency kind, got %s", errors.KindOf(err))
	}
	if !stderrors.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	if !strings.Contains(err.Error(), "openai") {
		t.Fatalf("provider name missing: %v", err)
	}
}
