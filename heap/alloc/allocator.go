package alloc

import (
	"errors"
	"log/slog"
	"unsafe"

	"github.com/joshuapare/fwheap/internal/format"
	"github.com/joshuapare/fwheap/internal/logger"
)

// Debug flag - set to true to dump state on every failed allocation (compile-time toggle).
const debugAlloc = false

// DefaultConfig is used when New or Attach is given a nil config.
var DefaultConfig = Config{Trace: logger.AllocTracing()}

// Allocator is the first-fit heap. The zero value is not usable; call New.
//
// Not safe for concurrent use.
type Allocator struct {
	heap   []byte  // aligned region: arena[base:]
	base   uintptr // alignment loss at the front of the arena
	length uintptr // usable bytes after alignment

	last        uintptr // tail header offset; 0 while only the sentinel exists
	initialized bool

	log   *slog.Logger
	dt    DirtyTracker
	trace bool

	stats Stats
}

// New returns an uninitialized allocator. Call Setup before allocating.
func New(cfg *Config) *Allocator {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	log := cfg.Logger
	if log == nil {
		log = logger.L
	}
	return &Allocator{
		log:   log.With("component", "alloc"),
		dt:    cfg.Tracker,
		trace: cfg.Trace,
	}
}

// Setup takes ownership of mem. The base is rounded up to format.Alignment
// and a sentinel header is written there as both first and last header.
//
// A nil region, or one whose usable length after alignment is below
// format.MinRegionSize, is ignored: the allocator keeps whatever state it had.
// A valid region replaces any previous state.
func (a *Allocator) Setup(mem []byte) {
	base, length, ok := alignArena(mem)
	if !ok {
		a.log.Debug("setup ignored: region too small",
			"len", len(mem), "min", format.MinRegionSize)
		return
	}

	a.heap = mem[base : base+length]
	a.base = base
	a.length = length
	a.last = 0
	a.stats = Stats{}

	sentinel := format.Header{Offset: 0, Size: 0, Next: format.TerminalLink}
	if err := a.writeHeader(sentinel); err != nil {
		// Unreachable: alignArena guarantees room for the sentinel.
		a.reset()
		a.log.Error("setup failed", "error", err)
		return
	}
	a.initialized = true
	a.log.Debug("setup", "len", len(mem), "base", base, "usable", length)
}

// alignArena returns the alignment loss and usable length of mem.
func alignArena(mem []byte) (base, length uintptr, ok bool) {
	if len(mem) == 0 {
		return 0, 0, false
	}
	addr := uintptr(unsafe.Pointer(&mem[0]))
	base = format.AlignmentLoss(addr)
	size := uintptr(len(mem))
	if size < base || size-base < format.MinRegionSize {
		return 0, 0, false
	}
	return base, size - base, true
}

// Teardown forgets the region. Subsequent operations behave as on a fresh
// allocator until the next Setup. The region's bytes are left as they are.
func (a *Allocator) Teardown() {
	a.reset()
	a.log.Debug("teardown")
}

func (a *Allocator) reset() {
	a.heap = nil
	a.base = 0
	a.length = 0
	a.last = 0
	a.initialized = false
}

// Initialized reports whether Setup has succeeded since the last Teardown.
func (a *Allocator) Initialized() bool { return a.initialized }

// Len returns the usable region length (excluding alignment loss).
func (a *Allocator) Len() uintptr { return a.length }

// Base returns how many bytes at the front of the arena were skipped to
// reach an aligned base.
func (a *Allocator) Base() uintptr { return a.base }

// Region returns the aligned region the chain lives in, or nil before Setup.
func (a *Allocator) Region() []byte { return a.heap }

// Bytes returns the payload of the in-use block at p, or nil when p does not
// name one. The slice aliases the region and is capped at the block size.
func (a *Allocator) Bytes(p Ptr) []byte {
	if !a.initialized || p == Null {
		return nil
	}
	h, err := a.headerOf(p)
	if err != nil || h.Free() {
		return nil
	}
	end, ok := h.End()
	if !ok || end > a.length {
		return nil
	}
	return a.heap[h.Payload():end:end]
}

// SizeOf returns the payload size of the in-use block at p, or 0.
func (a *Allocator) SizeOf(p Ptr) uintptr {
	return uintptr(len(a.Bytes(p)))
}

// Tail describes the last header in the chain.
func (a *Allocator) Tail() (BlockInfo, error) {
	if !a.initialized {
		return BlockInfo{}, ErrUninitialized
	}
	h, err := a.header(a.last)
	if err != nil {
		return BlockInfo{}, err
	}
	return blockInfo(h, true), nil
}

// RawSpace returns the bytes past the tail's payload that no header describes.
func (a *Allocator) RawSpace() uintptr {
	if !a.initialized {
		return 0
	}
	end, _, err := a.tailEnd()
	if err != nil {
		return 0
	}
	return a.length - end
}

func blockInfo(h format.Header, tail bool) BlockInfo {
	return BlockInfo{
		Header:    h.Offset,
		Ptr:       Ptr(h.Payload()),
		Size:      h.Size,
		FreeCount: h.FreeCount,
		Next:      h.Next,
		Sentinel:  h.Offset == 0,
		Tail:      tail,
	}
}

// report records a failure. Misuse and corruption are logged; in diagnostic
// builds they halt.
func (a *Allocator) report(op string, p Ptr, err error) {
	switch {
	case errors.Is(err, ErrCorrupt):
		a.stats.Corruptions++
		a.log.Error("heap corruption", "op", op, "ptr", uintptr(p), "error", err)
	case errors.Is(err, ErrDoubleFree):
		a.stats.DoubleFrees++
		a.log.Warn("double free", "op", op, "ptr", uintptr(p))
	case errors.Is(err, ErrBadPtr):
		a.stats.BadPointers++
		a.log.Warn("bad pointer", "op", op, "ptr", uintptr(p), "error", err)
	default:
		if a.trace {
			a.log.Debug("request failed", "op", op, "error", err)
		}
		return
	}
	if diagnostics {
		panic(&HaltError{Op: op, Ptr: p, Err: err})
	}
}

func (a *Allocator) tracef(op string, args ...any) {
	if a.trace {
		a.log.Debug(op, args...)
	}
}
