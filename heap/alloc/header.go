package alloc

import (
	"fmt"

	"github.com/joshuapare/fwheap/internal/buf"
	"github.com/joshuapare/fwheap/internal/format"
)

// header decodes the chain header at off. Any decoding failure means the
// chain itself is broken, so errors are reported as ErrCorrupt.
func (a *Allocator) header(off uintptr) (format.Header, error) {
	if off > a.last {
		return format.Header{}, fmt.Errorf("%w: header at %d beyond tail %d", ErrCorrupt, off, a.last)
	}
	h, err := format.ReadHeader(a.heap, off)
	if err != nil {
		return format.Header{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return h, nil
}

// next decodes the successor of h and checks that the link moves forward
// and lands exactly where h's payload ends.
func (a *Allocator) next(h format.Header) (format.Header, error) {
	end, ok := h.End()
	if !ok || h.Next != end {
		return format.Header{}, fmt.Errorf("%w: header at %d links to %d, payload ends at %d",
			ErrCorrupt, h.Offset, h.Next, end)
	}
	return a.header(h.Next)
}

// writeHeader encodes h and reports the header bytes to the dirty tracker.
func (a *Allocator) writeHeader(h format.Header) error {
	if err := format.WriteHeader(a.heap, h); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	a.markDirty(h.Offset, format.HeaderSize)
	return nil
}

func (a *Allocator) markDirty(off, n uintptr) {
	if a.dt != nil {
		a.dt.Add(int(a.base+off), int(n))
	}
}

// headerOf recovers the header in front of payload p by fixed offset. The
// pointer must be aligned, must not name the sentinel, must sit at or before
// the tail, and the bytes in front of it must carry the canary.
func (a *Allocator) headerOf(p Ptr) (format.Header, error) {
	off, ok := buf.SubUintptr(uintptr(p), format.HeaderSize)
	if !ok || off == 0 || !format.IsAligned(off) || off > a.last {
		return format.Header{}, fmt.Errorf("%w: 0x%X", ErrBadPtr, uintptr(p))
	}
	h, err := format.ReadHeader(a.heap, off)
	if err != nil {
		return format.Header{}, fmt.Errorf("%w: %v", ErrBadPtr, err)
	}
	return h, nil
}

// tailEnd returns the offset one past the tail's payload: the start of raw space.
func (a *Allocator) tailEnd() (uintptr, format.Header, error) {
	tail, err := a.header(a.last)
	if err != nil {
		return 0, format.Header{}, err
	}
	end, ok := tail.End()
	if !ok || end > a.length {
		return 0, format.Header{}, fmt.Errorf("%w: tail at %d overruns region", ErrCorrupt, tail.Offset)
	}
	return end, tail, nil
}

// fits reports whether end+extra stays inside the region, treating overflow
// as "does not fit".
func (a *Allocator) fits(end, extra uintptr) bool {
	sum, ok := buf.AddUintptr(end, extra)
	return ok && sum <= a.length
}
