package alloc

import (
	"fmt"

	"github.com/joshuapare/fwheap/internal/buf"
	"github.com/joshuapare/fwheap/internal/format"
)

// Alloc returns an aligned block of at least n bytes, or Null when the heap
// is uninitialized, n is zero or unrepresentable after alignment, or no
// space is left.
//
// Placement order:
//  1. Tail-free fast path: reuse a free tail, growing it into raw space if needed
//  2. Tail-append fast path: carve a new header out of raw space
//  3. First-fit scan from the sentinel, coalescing free runs on the way
func (a *Allocator) Alloc(n uintptr) Ptr {
	a.stats.AllocCalls++
	if !a.initialized || n == 0 {
		a.stats.AllocFailures++
		return Null
	}
	need, ok := format.AlignChecked(n)
	if !ok {
		a.stats.AllocFailures++
		a.tracef("alloc size overflow", "n", n)
		return Null
	}

	p, err := a.alloc(need)
	if err != nil {
		a.stats.AllocFailures++
		a.report("alloc", Null, err)
		if debugAlloc {
			a.PrintStats(nil)
		}
		return Null
	}
	a.stats.BytesAllocated += int64(need)
	a.tracef("alloc", "n", n, "need", need, "ptr", uintptr(p))
	return p
}

func (a *Allocator) alloc(need uintptr) (Ptr, error) {
	end, tail, err := a.tailEnd()
	if err != nil {
		return Null, err
	}

	// Fast path 1: the tail is free.
	if tail.Free() {
		if p, ok, err := a.growTail(tail, end, need); ok || err != nil {
			if ok {
				a.stats.TailFreeHits++
			}
			return p, err
		}
	}

	// Fast path 2: append a new tail in raw space.
	if total, ok := buf.AddUintptr(format.HeaderSize, need); ok && a.fits(end, total) {
		block := format.Header{Offset: end, Size: need, Next: format.TerminalLink}
		if err := a.writeHeader(block); err != nil {
			return Null, err
		}
		tail.Next = end
		if err := a.writeHeader(tail); err != nil {
			return Null, err
		}
		a.last = end
		a.stats.TailAppends++
		return Ptr(block.Payload()), nil
	}

	// Slow path: first fit, coalescing as we go.
	return a.scan(need)
}

// growTail hands out the free tail when it already holds need bytes or when
// the raw space after it can make up the difference. The tail is resized to
// exactly need; anything it gives up becomes raw space. ok is false when
// neither holds.
func (a *Allocator) growTail(tail format.Header, end, need uintptr) (Ptr, bool, error) {
	if tail.Size < need {
		missing := need - tail.Size
		if !a.fits(end, missing) {
			return Null, false, nil
		}
	}
	tail.Size = need
	tail.FreeCount = 0
	if err := a.writeHeader(tail); err != nil {
		return Null, false, err
	}
	return Ptr(tail.Payload()), true, nil
}

func (a *Allocator) scan(need uintptr) (Ptr, error) {
	h, err := a.header(0)
	if err != nil {
		return Null, err
	}
	for {
		if h.Free() && h.Size < need && !h.Last() {
			merged, err := a.coalesceForward(h)
			if err != nil {
				return Null, err
			}
			if merged.Size != h.Size || merged.Last() != h.Last() {
				a.stats.ScanCoalesces++
			}
			h = merged

			// The run reached the end of the chain: h is now a free tail
			// backed by raw space.
			if h.Last() {
				end, ok := h.End()
				if !ok {
					return Null, fmt.Errorf("%w: tail at %d overflows", ErrCorrupt, h.Offset)
				}
				p, ok, err := a.growTail(h, end, need)
				if ok {
					a.stats.TailFreeHits++
				}
				if ok || err != nil {
					return p, err
				}
				return Null, ErrNoSpace
			}
		}

		if h.Free() && h.Size >= need {
			h.FreeCount = 0
			if err := a.split(&h, need); err != nil {
				return Null, err
			}
			a.stats.ScanHits++
			return Ptr(h.Payload()), nil
		}

		if h.Last() {
			return Null, ErrNoSpace
		}
		if h, err = a.next(h); err != nil {
			return Null, err
		}
	}
}

// split trims h to need bytes when the leftover can hold a header plus a
// minimum block; the leftover becomes a free block after h. Otherwise h keeps
// its whole size. h is written back either way.
func (a *Allocator) split(h *format.Header, need uintptr) error {
	leftover := h.Size - need
	if h.Size < need || leftover < format.HeaderSize+format.MinBlockSize {
		if h.Size > need {
			a.stats.Absorbs++
		}
		return a.writeHeader(*h)
	}

	frag := format.Header{
		Offset:    h.Payload() + need,
		Size:      leftover - format.HeaderSize,
		Next:      h.Next,
		FreeCount: 1,
	}
	if err := a.writeHeader(frag); err != nil {
		return err
	}
	h.Size = need
	h.Next = frag.Offset
	if err := a.writeHeader(*h); err != nil {
		return err
	}
	if frag.Last() {
		a.last = frag.Offset
	}
	a.stats.Splits++

	// The fragment may now sit in front of another free block.
	_, err := a.coalesceForward(frag)
	return err
}
