package alloc

import (
	"fmt"

	"github.com/joshuapare/fwheap/internal/format"
)

// Free releases the block at p. Freeing Null, or freeing on an
// uninitialized heap, does nothing.
//
// The returned error is informational: ErrDoubleFree and ErrBadPtr leave the
// chain exactly as it was; ErrCorrupt means the block was released but could
// not be merged with its neighbors. Callers that treat release as
// infallible may ignore it.
func (a *Allocator) Free(p Ptr) error {
	a.stats.FreeCalls++
	if !a.initialized || p == Null {
		return nil
	}
	if err := a.free(p); err != nil {
		a.report("free", p, err)
		return err
	}
	a.tracef("free", "ptr", uintptr(p))
	return nil
}

func (a *Allocator) free(p Ptr) error {
	h, err := a.headerOf(p)
	if err != nil {
		return err
	}
	if h.Free() {
		return fmt.Errorf("%w: 0x%X released %d times", ErrDoubleFree, uintptr(p), h.FreeCount)
	}

	// Membership: the header must be linked from the chain. The walk also
	// yields the predecessor needed for backward merging.
	prev, err := a.findPrev(h.Offset)
	if err != nil {
		return err
	}

	if h.FreeCount < format.MaxFreeCount {
		h.FreeCount++
	}
	if err := a.writeHeader(h); err != nil {
		return err
	}
	a.stats.BytesFreed += int64(h.Size)

	if h, err = a.coalesceForward(h); err != nil {
		return err
	}
	return a.coalesceBackward(prev, h)
}

// findPrev walks from the sentinel to the header linking to off. A pointer
// whose header is not in the chain is reported as ErrBadPtr.
func (a *Allocator) findPrev(off uintptr) (format.Header, error) {
	h, err := a.header(0)
	if err != nil {
		return format.Header{}, err
	}
	for {
		if h.Next == off {
			return h, nil
		}
		if h.Last() || h.Next > off {
			return format.Header{}, fmt.Errorf("%w: header at %d is not linked", ErrBadPtr, off)
		}
		if h, err = a.next(h); err != nil {
			return format.Header{}, err
		}
	}
}

// coalesceForward merges the run of free blocks that follows h into h.
// When the run extends to the end of the chain, h becomes the tail with its
// size unchanged and the run's bytes turn into raw space.
//
// h itself may be in use (Realloc grows in place this way).
func (a *Allocator) coalesceForward(h format.Header) (format.Header, error) {
	if h.Last() {
		return h, nil
	}
	next, err := a.next(h)
	if err != nil {
		return h, err
	}
	if !next.Free() {
		return h, nil
	}

	run := next
	for !run.Last() {
		after, err := a.next(run)
		if err != nil {
			return h, err
		}
		if !after.Free() {
			break
		}
		run = after
	}

	if run.Last() {
		h.Next = format.TerminalLink
		if err := a.writeHeader(h); err != nil {
			return h, err
		}
		a.last = h.Offset
	} else {
		h.Size = run.Next - h.Payload()
		h.Next = run.Next
		if err := a.writeHeader(h); err != nil {
			return h, err
		}
	}
	a.stats.CoalesceForward++
	return h, nil
}

// coalesceBackward folds a free h into a free predecessor.
func (a *Allocator) coalesceBackward(prev, h format.Header) error {
	if !h.Free() || !prev.Free() || prev.Offset == 0 {
		return nil
	}
	end, ok := h.End()
	if !ok {
		return fmt.Errorf("%w: block at %d overflows", ErrCorrupt, h.Offset)
	}
	if h.Last() {
		// prev becomes the tail; h's payload stays described so the tail
		// still ends where h ended.
		a.last = prev.Offset
	}
	prev.Size = end - prev.Payload()
	prev.Next = h.Next
	if prev.FreeCount < h.FreeCount {
		prev.FreeCount = h.FreeCount
	}
	if err := a.writeHeader(prev); err != nil {
		return err
	}
	a.stats.CoalesceBackward++
	return nil
}

// Defragment walks the whole chain and merges every run of adjacent free
// blocks. Free runs reaching the end of the chain are released into raw space.
func (a *Allocator) Defragment() error {
	if !a.initialized {
		return ErrUninitialized
	}
	h, err := a.header(0)
	if err != nil {
		a.report("defragment", Null, err)
		return err
	}
	for {
		if h.Free() {
			if h, err = a.coalesceForward(h); err != nil {
				a.report("defragment", Ptr(h.Payload()), err)
				return err
			}
		}
		if h.Last() {
			return nil
		}
		if h, err = a.next(h); err != nil {
			a.report("defragment", Null, err)
			return err
		}
	}
}
