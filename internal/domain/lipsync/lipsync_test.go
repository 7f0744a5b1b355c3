package lipsync

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	in := []Cue{
		{Start: 0.5, End: 0.7, Value: "c"},
		{Start: 0.0, End: 0.2, Value: "X"},
		{Start: 0.15, End: 0.5, Value: "B"},
		{Start: 0.7, End: 0.7, Value: "A"},
		{Start: -0.1, End: 0.0, Value: "X"},
	}
	got, err := Normalize(in)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	want := []Cue{
		{Start: 0.0, End: 0.2, Value: "X"},
		{Start: 0.2, End: 0.5, Value: "B"},
		{Start: 0.5, End: 0.7, Value: "C"},
	}
	if len(got) != len(want) {
		t.Fatalf("Normalize() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cue %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestNormalizeDropsFullyCoveredCue(t *testing.T) {
	got, err := Normalize([]Cue{
		{Start: 0, End: 1, Value: "A"},
		{Start: 0.2, End: 0.8, Value: "B"},
		{Start: 1, End: 1.5, Value: "X"},
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(got) != 2 || got[0].Value != "A" || got[1].Value != "X" {
		t.Fatalf("unexpected cues %+v", got)
	}
}

func TestNormalizeRejectsUnknownShape(t *testing.T) {
	_, err := Normalize([]Cue{{Start: 0, End: 1, Value: "Z"}})
	if err == nil || !strings.Contains(err.Error(), "invalid mouth shape") {
		t.Fatalf("expected invalid shape error, got %v", err)
	}
}

func TestParseRhubarb(t *testing.T) {
	raw := []byte(`{
  "metadata": {"soundFile": "/tmp/a.wav", "duration": 1.20},
  "mouthCues": [
    {"start": 0.00, "end": 0.05, "value": "X"},
    {"start": 0.05, "end": 0.27, "value": "D"},
    {"start": 0.27, "end": 1.20, "value": "G"}
  ]
}`)
	seq, err := parseRhubarb(raw)
	if err != nil {
		t.Fatalf("parseRhubarb() error = %v", err)
	}
	if seq.Duration != 1.2 || len(seq.Cues) != 3 || seq.Cues[2].Value != "G" {
		t.Fatalf("unexpected sequence %+v", seq)
	}

	if _, err := parseRhubarb([]byte("not json")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEmptySequence(t *testing.T) {
	seq := Empty(-1)
	if seq.Duration != 0 || seq.Cues == nil || len(seq.Cues) != 0 {
		t.Fatalf("unexpected empty sequence %+v", seq)
	}
	if seq.LastEnd() != 0 {
		t.Fatalf("LastEnd() = %v", seq.LastEnd())
	}
}
