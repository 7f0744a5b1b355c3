package tempfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAndRemove(t *testing.T) {
	dir := t.TempDir()
	f, err := Write(dir, ".wav", []byte("RIFF"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if filepath.Dir(f.Path) != dir || !strings.HasSuffix(f.Path, ".wav") {
		t.Fatalf("unexpected path %s", f.Path)
	}
	data, err := os.ReadFile(f.Path)
	if err != nil || string(data) != "RIFF" {
		t.Fatalf("content mismatch: %q, %v", data, err)
	}

	if err := f.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(f.Path); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if err := f.Remove(); err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
}

func TestWriteNamesAreUnique(t *testing.T) {
	dir := t.TempDir()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		f, err := Write(dir, "mp3", nil)
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if seen[f.Path] {
			t.Fatalf("duplicate temp path %s", f.Path)
		}
		seen[f.Path] = true
	}
}

func TestSiblingAndDefaults(t *testing.T) {
	f, err := Write(t.TempDir(), "", []byte{1})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	defer f.Remove()

	if !strings.HasSuffix(f.Path, ".bin") {
		t.Fatalf("expected .bin default extension, got %s", f.Path)
	}
	sib := f.Sibling("wav")
	if strings.TrimSuffix(sib, ".wav") != strings.TrimSuffix(f.Path, ".bin") {
		t.Fatalf("unexpected sibling %s for %s", sib, f.Path)
	}

	var nilFile *File
	if err := nilFile.Remove(); err != nil {
		t.Fatalf("nil Remove() error = %v", err)
	}
}
