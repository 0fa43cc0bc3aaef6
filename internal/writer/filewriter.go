// Package writer exposes sinks for heap image snapshots.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer persists a copy of a heap region.
type Writer interface {
	WriteImage(image []byte) error
}

// FileWriter writes an image to a filesystem path atomically.
type FileWriter struct {
	Path string
}

// WriteImage writes image next to Path and renames it into place, so a
// reader never sees a half-written heap.
func (w *FileWriter) WriteImage(image []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(w.Path), ".fwheap-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(image); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil

	if err := os.Rename(tmpPath, w.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
