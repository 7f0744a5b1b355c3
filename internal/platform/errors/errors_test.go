package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindDependency, "tts.openai.synthesize", "speech provider request failed",
				errors.New("connection refused")),
			contains: []string{"[dependency:tts.openai.synthesize]", "speech provider request failed", "connection refused"},
		},
		{
			name:     "error without cause",
			err:      New(KindValidation, "tts.validate", "text is empty"),
			contains: []string{"[validation:tts.validate]", "text is empty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(KindStorage, "op", "msg", nil); err != nil {
		t.Fatalf("Wrap(nil) should be nil, got %v", err)
	}
	if err := WrapAs(KindStorage, "op", "msg", nil); err != nil {
		t.Fatalf("WrapAs(nil) should be nil, got %v", err)
	}
}

func TestWrapKeepsInnerKind(t *testing.T) {
	sentinel := errors.New("audio too small")
	inner := Wrap(KindValidation, "asr.validate", "audio payload is empty", sentinel)
	outer := Wrap(KindDependency, "pipeline.listen", "transcription failed", inner)

	if !IsKind(outer, KindValidation) {
		t.Fatalf("expected validation kind to survive, got %s", KindOf(outer))
	}
	if !errors.Is(outer, sentinel) {
		t.Fatalf("sentinel should be reachable through wrapper")
	}

	layered := WrapAs(KindDependency, "pipeline.listen", "transcription failed", inner)
	if KindOf(layered) != KindDependency {
		t.Fatalf("WrapAs should set outer kind, got %s", KindOf(layered))
	}
	if !errors.Is(layered, sentinel) {
		t.Fatalf("sentinel should be reachable through WrapAs layer")
	}
}

func TestError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(KindConfig, "test", "wrapped", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap should return the original error")
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{
			name:     "direct error kind match",
			err:      New(KindConfig, "test", "message"),
			kind:     KindConfig,
			expected: true,
		},
		{
			name:     "wrapped error kind match",
			err:      Wrap(KindDependency, "test", "message", errors.New("cause")),
			kind:     KindDependency,
			expected: true,
		},
		{
			name:     "error kind mismatch",
			err:      New(KindConfig, "test", "message"),
			kind:     KindValidation,
			expected: false,
		},
		{
			name:     "non-typed error",
			err:      errors.New("plain error"),
			kind:     KindConfig,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			kind:     KindUnknown,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsKind(tt.err, tt.kind); got != tt.expected {
				t.Fatalf("IsKind() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMessageOf(t *testing.T) {
	err := Wrap(KindValidation, "tts.validate", "text exceeds 4096 characters", errors.New("too long"))
	if got := MessageOf(err); got != "text exceeds 4096 characters" {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := MessageOf(errors.New("plain")); got != "" {
		t.Fatalf("plain error should have empty message, got %q", got)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"dependency", New(KindDependency, "tts.synthesize", "provider down"), true},
		{"validation", New(KindValidation, "tts.validate", "text is empty"), false},
		{"storage", Wrap(KindStorage, "cache.put", "write failed", errors.New("disk full")), false},
		{"reclassified", WrapAs(KindDependency, "pipeline.speak", "abandoned", New(KindStorage, "x", "y")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Fatalf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
