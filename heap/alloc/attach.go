package alloc

import (
	"fmt"

	"github.com/joshuapare/fwheap/internal/format"
)

// Attach rebuilds an allocator over mem, which must already hold a chain
// written by an allocator set up on the same bytes (for example a heap image
// mapped back from disk). The chain is walked once: every header must carry
// the canary, every link must land exactly where the previous payload ends,
// and the tail must end inside the region.
//
// The arena must have the same alignment loss it had when the chain was
// written; mmap'd and Go-allocated slices are always 8-aligned.
func Attach(mem []byte, cfg *Config) (*Allocator, error) {
	a := New(cfg)
	base, length, ok := alignArena(mem)
	if !ok {
		return nil, fmt.Errorf("%w: region of %d bytes is too small", ErrCorrupt, len(mem))
	}
	a.heap = mem[base : base+length]
	a.base = base
	a.length = length
	// header() refuses offsets past the tail; open the whole region while walking.
	a.last = length

	sentinel, err := a.header(0)
	if err != nil {
		return nil, fmt.Errorf("attach: sentinel: %w", err)
	}
	if sentinel.Size != 0 || sentinel.Free() {
		return nil, fmt.Errorf("attach: %w: sentinel size=%d free=%d",
			ErrCorrupt, sentinel.Size, sentinel.FreeCount)
	}

	h := sentinel
	prevFree := false
	for !h.Last() {
		next, err := a.next(h)
		if err != nil {
			return nil, fmt.Errorf("attach: %w", err)
		}
		if prevFree && next.Free() {
			a.log.Warn("attach: adjacent free blocks", "header", next.Offset)
		}
		prevFree = next.Free()
		h = next
	}
	end, ok := h.End()
	if !ok || end > length {
		return nil, fmt.Errorf("attach: %w: tail at %d overruns region of %d",
			ErrCorrupt, h.Offset, length)
	}
	if !format.IsAligned(h.Size) {
		return nil, fmt.Errorf("attach: %w: tail size %d misaligned", ErrCorrupt, h.Size)
	}

	a.last = h.Offset
	a.initialized = true
	a.log.Debug("attach", "usable", length, "tail", a.last)
	return a, nil
}
