package heap

import (
	"errors"
	"fmt"
	"os"
	"unsafe"
)

// DefaultSafetyMargin is the number of bytes kept back from the end of a
// region, mirroring the guard the firmware leaves below the stack limit.
const DefaultSafetyMargin = 1024

var (
	// ErrClosed indicates an operation on a region that was already closed.
	ErrClosed = errors.New("heap: region closed")

	// ErrTooSmall indicates a requested region size below the minimum.
	ErrTooSmall = errors.New("heap: region too small")

	// ErrReadOnly indicates a sync on a region opened with OpenReadOnly.
	ErrReadOnly = errors.New("heap: region is read-only")
)

// Region is a contiguous block of memory handed to the allocator, backed by
// an anonymous mapping, a file mapping, or plain Go memory.
type Region struct {
	f        *os.File
	data     []byte
	size     int64
	mapped   bool
	readOnly bool
}

// FromBytes wraps caller-owned memory. Close releases nothing.
func FromBytes(b []byte) *Region {
	return &Region{data: b, size: int64(len(b))}
}

func (r *Region) Bytes() []byte { return r.data }

func (r *Region) Size() int64 { return r.size }

// Mapped reports whether the region is an OS mapping.
func (r *Region) Mapped() bool { return r.mapped }

// ReadOnly reports whether the region was opened with OpenReadOnly.
func (r *Region) ReadOnly() bool { return r.readOnly }

// Addr returns the numeric address of the first byte, or 0 for an empty region.
// heapctl logs it next to the allocator's alignment loss.
func (r *Region) Addr() uintptr {
	if r == nil || len(r.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&r.data[0]))
}

// Arena returns the bytes available to the allocator: the whole region minus
// a trailing safety margin. It returns nil when the region is not larger than
// the margin.
func (r *Region) Arena(margin int) []byte {
	if r == nil || margin < 0 || len(r.data) <= margin {
		return nil
	}
	return r.data[:len(r.data)-margin]
}

// FreeBytes reports how many bytes an allocator could manage after reserving
// margin, or 0 when the region is smaller than the margin.
func (r *Region) FreeBytes(margin int) int {
	if r == nil || len(r.data) < margin {
		return 0
	}
	return len(r.data) - margin
}

func (r *Region) checkRange(off, n int) error {
	if r.data == nil {
		return ErrClosed
	}
	if off < 0 || n < 0 || off > len(r.data) || n > len(r.data)-off {
		return fmt.Errorf("heap: range [%d,+%d) outside region of %d bytes", off, n, len(r.data))
	}
	return nil
}
