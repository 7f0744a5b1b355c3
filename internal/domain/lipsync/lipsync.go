// Package lipsync produces timed mouth-shape cues for synthesized speech.
package lipsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Shapes is the accepted viseme alphabet: Rhubarb's basic shapes A-F plus
// the extended G, H and X.
const Shapes = "ABCDEFGHX"

// ErrToolUnavailable is returned when the external analyzer cannot be found.
var ErrToolUnavailable = stderrors.New("lip-sync tool unavailable")

// Cue is one mouth shape held from Start to End seconds.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Value string  `json:"value"`
}

// Sequence is an ordered, non-overlapping list of cues. An empty sequence
// is valid and means no animation.
type Sequence struct {
	Duration float64 `json:"duration"`
	Cues     []Cue   `json:"cues"`
}

// Empty returns a cue-less sequence of the given duration.
func Empty(duration float64) Sequence {
	if duration < 0 {
		duration = 0
	}
	return Sequence{Duration: duration, Cues: []Cue{}}
}

// LastEnd returns the end of the final cue, or 0.
func (s Sequence) LastEnd() float64 {
	if len(s.Cues) == 0 {
		return 0
	}
	return s.Cues[len(s.Cues)-1].End
}

// Analyzer derives cues from audio bytes.
type Analyzer interface {
	Analyze(ctx context.Context, audio []byte, format string) (Sequence, error)
	// Available reports whether the analyzer can run at all.
	Available() bool
}

// Normalize validates values against Shapes, sorts by start, drops empty
// spans and clips overlaps so every cue satisfies 0 <= start < end and
// starts no earlier than the previous end.
func Normalize(cues []Cue) ([]Cue, error) {
	out := make([]Cue, 0, len(cues))
	for _, c := range cues {
		c.Value = strings.ToUpper(strings.TrimSpace(c.Value))
		if len(c.Value) != 1 || !strings.Contains(Shapes, c.Value) {
			return nil, fmt.Errorf("invalid mouth shape %q", c.Value)
		}
		if c.Start < 0 {
			c.Start = 0
		}
		if c.End <= c.Start {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })

	clipped := out[:0]
	for _, c := range out {
		if n := len(clipped); n > 0 && c.Start < clipped[n-1].End {
			c.Start = clipped[n-1].End
		}
		if c.End <= c.Start {
			continue
		}
		clipped = append(clipped, c)
	}
	return clipped, nil
}
