//go:build linux || darwin

package heap

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// New returns an anonymous, private mapping of size bytes, zero-filled by the OS.
func New(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooSmall, size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("heap: anonymous mmap failed: %w", err)
	}
	return &Region{data: data, size: int64(size), mapped: true}, nil
}

// Create makes (or truncates) a heap image of size bytes at path and maps it RW.
func Create(path string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooSmall, size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("heap: failed to size image: %w", err)
	}
	return mapFile(f, int64(size))
}

// Open maps an existing heap image RW so the allocator can mutate it in place.
func Open(path string) (*Region, error) {
	f, sz, err := openImage(path, os.O_RDWR)
	if err != nil {
		return nil, err
	}
	return mapFile(f, sz)
}

// OpenReadOnly maps an existing heap image for inspection. The mapping is
// PROT_READ, so the image file only needs read permission.
func OpenReadOnly(path string) (*Region, error) {
	f, sz, err := openImage(path, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(sz), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	return &Region{f: f, data: data, size: sz, mapped: true, readOnly: true}, nil
}

func openImage(path string, flag int) (*os.File, int64, error) {
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	sz := st.Size()
	if sz == 0 {
		_ = f.Close()
		return nil, 0, fmt.Errorf("empty heap image: %s", path)
	}
	if sz > int64(^uint(0)>>1) {
		_ = f.Close()
		return nil, 0, fmt.Errorf("heap: image too large to map (%d bytes)", sz)
	}
	return f, sz, nil
}

func mapFile(f *os.File, size int64) (*Region, error) {
	data, err := unix.Mmap(
		int(f.Fd()),
		0,
		int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	return &Region{f: f, data: data, size: size, mapped: true}, nil
}

// Sync flushes the whole mapping to its backing file. It is a no-op for
// anonymous and Go-memory regions.
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
	return unix.Msync(r.data, unix.MS_SYNC)
}

// SyncRange flushes [off, off+n). The start is rounded down to a page
// boundary as msync requires.
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
	page := unix.Getpagesize()
	start := off - off%page
	return unix.Msync(r.data[start:off+n], unix.MS_SYNC)
}

func (r *Region) Close() error {
	var err error
	if r.data != nil && r.mapped {
		if unmapErr := unix.Munmap(r.data); unmapErr != nil && !errors.Is(unmapErr, unix.EINVAL) {
			err = unmapErr
		}
	}
	r.data = nil
	if r.f != nil {
		if closeErr := r.f.Close(); err == nil {
			err = closeErr
		}
		r.f = nil
	}
	return err
}
