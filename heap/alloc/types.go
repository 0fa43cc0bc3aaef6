package alloc

import (
	"log/slog"

	"github.com/joshuapare/fwheap/heap/dirty"
)

// Ptr is a payload handle: the byte offset of a block's payload from the
// aligned region base.
type Ptr uintptr

// Null is the failed or absent pointer.
const Null Ptr = 0

// DirtyTracker is a type alias for the canonical interface defined in heap/dirty.
type DirtyTracker = dirty.DirtyTracker

// Config carries the allocator's collaborators. A nil *Config means DefaultConfig.
type Config struct {
	// Logger receives diagnostics. Nil uses the process-wide logger.
	Logger *slog.Logger

	// Tracker is told about every byte range the allocator writes. Optional.
	Tracker DirtyTracker

	// Trace logs every operation at debug level. DefaultConfig enables it
	// when FWHEAP_LOG_ALLOC is set.
	Trace bool
}

// BlockInfo describes one header in the chain.
type BlockInfo struct {
	Header    uintptr `json:"header"`
	Ptr       Ptr     `json:"ptr"`
	Size      uintptr `json:"size"`
	FreeCount uint8   `json:"free_count"`
	Next      uintptr `json:"next"`
	Sentinel  bool    `json:"sentinel,omitempty"`
	Tail      bool    `json:"tail,omitempty"`
}

// Free reports whether the block has been released.
func (b BlockInfo) Free() bool { return b.FreeCount != 0 }

// End returns the offset one past the block's payload.
func (b BlockInfo) End() uintptr { return uintptr(b.Ptr) + b.Size }
