// Package tempfile writes payloads to uniquely named scratch files that are
// removed when the caller is done with them.
package tempfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// File is a scratch file owned by one call.
type File struct {
	Path string
}

// Write stores data in dir (os.TempDir when empty) under "<uuid>.<ext>".
func Write(dir, ext string, data []byte) (*File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.%s", uuid.NewString(), ext))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	return &File{Path: path}, nil
}

// Sibling returns a path next to f with another extension. The caller owns
// removal of whatever it creates there.
func (f *File) Sibling(ext string) string {
	base := strings.TrimSuffix(f.Path, filepath.Ext(f.Path))
	return base + "." + strings.TrimPrefix(ext, ".")
}

// Remove deletes the file. Missing files are not an error.
func (f *File) Remove() error {
	if f == nil || f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
