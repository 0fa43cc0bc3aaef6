package alloc

import (
	"fmt"

	"github.com/joshuapare/fwheap/internal/buf"
	"github.com/joshuapare/fwheap/internal/format"
)

// Realloc resizes the block at p to hold n bytes.
//
//   - p == Null behaves as Alloc(n)
//   - n == 0 frees p and returns Null
//   - the block is first grown in place by absorbing free neighbors, then
//     (when it is the tail) by growing into raw space; any excess is split
//     off again
//   - otherwise the contents move to a new block and p is freed
//
// On failure Null is returned and p, with its contents, remains valid.
func (a *Allocator) Realloc(p Ptr, n uintptr) Ptr {
	a.stats.ReallocCalls++
	if p == Null {
		return a.Alloc(n)
	}
	if n == 0 {
		_ = a.Free(p)
		return Null
	}
	if !a.initialized {
		return Null
	}
	need, ok := format.AlignChecked(n)
	if !ok {
		a.tracef("realloc size overflow", "ptr", uintptr(p), "n", n)
		return Null
	}

	h, err := a.headerOf(p)
	if err == nil && h.Free() {
		err = fmt.Errorf("%w: 0x%X is free", ErrBadPtr, uintptr(p))
	}
	if err == nil {
		_, err = a.findPrev(h.Offset)
	}
	if err != nil {
		a.report("realloc", p, err)
		return Null
	}
	oldSize := h.Size

	q, err := a.realloc(h, need)
	if err != nil {
		a.report("realloc", p, err)
		return Null
	}
	if q != Null {
		a.tracef("realloc", "ptr", uintptr(p), "n", n, "to", uintptr(q))
		return q
	}

	// Move.
	q = a.Alloc(n)
	if q == Null {
		return Null
	}
	copy(a.heap[q:uintptr(q)+min(oldSize, need)], a.heap[p:uintptr(p)+oldSize])
	a.markDirty(uintptr(q), min(oldSize, need))
	_ = a.Free(p)
	a.stats.ReallocMoved++
	a.tracef("realloc moved", "ptr", uintptr(p), "n", n, "to", uintptr(q))
	return q
}

// realloc tries to satisfy need without moving h. It returns Null with a nil
// error when the block must move; in that case h has been trimmed back to
// its original size.
func (a *Allocator) realloc(h format.Header, need uintptr) (Ptr, error) {
	oldSize := h.Size

	grown, err := a.coalesceForward(h)
	if err != nil {
		return Null, err
	}
	h = grown

	if h.Size < need && h.Last() {
		end, ok := h.End()
		if !ok {
			return Null, fmt.Errorf("%w: tail at %d overflows", ErrCorrupt, h.Offset)
		}
		if a.fits(end, need-h.Size) {
			h.Size = need
		}
	}

	if h.Size >= need {
		if err := a.split(&h, need); err != nil {
			return Null, err
		}
		a.stats.ReallocInPlace++
		return Ptr(h.Payload()), nil
	}

	// Give back whatever coalescing absorbed so a failed move leaves the
	// block as it was.
	if h.Size > oldSize {
		if err := a.split(&h, oldSize); err != nil {
			return Null, err
		}
	}
	return Null, nil
}

// ZeroAlloc allocates room for count elements of size bytes each and zeroes
// the whole payload. Null when either argument is zero or the product
// overflows.
func (a *Allocator) ZeroAlloc(count, size uintptr) Ptr {
	a.stats.ZeroAllocCalls++
	if count == 0 || size == 0 {
		return Null
	}
	total, ok := buf.MulUintptr(count, size)
	if !ok {
		a.tracef("zero alloc overflow", "count", count, "size", size)
		return Null
	}
	p := a.Alloc(total)
	if p == Null {
		return Null
	}
	b := a.Bytes(p)
	clear(b)
	a.markDirty(uintptr(p), uintptr(len(b)))
	return p
}
