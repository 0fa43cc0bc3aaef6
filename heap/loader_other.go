//go:build !linux && !darwin

package heap

import (
	"fmt"
	"io"
	"os"
)

// New allocates size zeroed bytes on platforms without anonymous mmap.
func New(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooSmall, size)
	}
	return &Region{data: make([]byte, size), size: int64(size)}, nil
}

// Create makes (or truncates) a heap image of size bytes at path and loads it.
func Create(path string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooSmall, size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("heap: failed to size image: %w", err)
	}
	return &Region{f: f, data: make([]byte, size), size: int64(size)}, nil
}

// Open loads the heap image into memory; Sync writes it back.
func Open(path string) (*Region, error) {
	return loadImage(path, os.O_RDWR)
}

// OpenReadOnly loads the heap image for inspection. Sync and SyncRange
// return ErrReadOnly.
func OpenReadOnly(path string) (*Region, error) {
	r, err := loadImage(path, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	r.readOnly = true
	return r, nil
}

func loadImage(path string, flag int) (*Region, error) {
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	sz := st.Size()
	if sz == 0 {
		f.Close()
		return nil, fmt.Errorf("empty heap image: %s", path)
	}

	data := make([]byte, sz)
	if _, err := io.ReadFull(f, data); err != nil {
		f.Close()
		return nil, err
	}
	return &Region{f: f, data: data, size: sz}, nil
}

// Sync writes the whole buffer back to the image file.
func (r *Region) Sync() error {
	if r.data == nil {
		return ErrClosed
	}
	if r.readOnly {
		return ErrReadOnly
	}
	if r.f == nil {
		return nil
	}
	_, err := r.f.WriteAt(r.data, 0)
	return err
}

// SyncRange writes [off, off+n) back to the image file.
func (r *Region) SyncRange(off, n int) error {
	if err := r.checkRange(off, n); err != nil {
		return err
	}
	if r.readOnly {
		return ErrReadOnly
	}
	if r.f == nil || n == 0 {
		return nil
	}
	_, err := r.f.WriteAt(r.data[off:off+n], int64(off))
	return err
}

func (r *Region) Close() error {
	var err error
	if r.f != nil {
		err = r.f.Close()
		r.f = nil
	}
	r.data = nil
	return err
}
