package alloc

import (
	"fmt"
	"io"
	"os"
)

// Stats holds allocator counters since the last Setup or Attach.
type Stats struct {
	AllocCalls    int `json:"alloc_calls"`
	AllocFailures int `json:"alloc_failures"`
	TailFreeHits  int `json:"tail_free_hits"` // served by reusing a free tail
	TailAppends   int `json:"tail_appends"`   // served from raw space
	ScanHits      int `json:"scan_hits"`      // served by the first-fit scan
	Splits        int `json:"splits"`
	Absorbs       int `json:"absorbs"`        // leftovers too small to split
	ScanCoalesces int `json:"scan_coalesces"` // merges performed while scanning

	CoalesceForward  int `json:"coalesce_forward"`
	CoalesceBackward int `json:"coalesce_backward"`

	FreeCalls   int `json:"free_calls"`
	DoubleFrees int `json:"double_frees"`
	BadPointers int `json:"bad_pointers"`

	ReallocCalls   int `json:"realloc_calls"`
	ReallocInPlace int `json:"realloc_in_place"`
	ReallocMoved   int `json:"realloc_moved"`
	ZeroAllocCalls int `json:"zero_alloc_calls"`

	Corruptions int `json:"corruptions"`

	BytesAllocated int64 `json:"bytes_allocated"` // payload bytes handed out
	BytesFreed     int64 `json:"bytes_freed"`     // payload bytes released
}

// GetStats returns a copy of the counters.
func (a *Allocator) GetStats() Stats {
	return a.stats
}

// PrintStats writes the counters to w (stderr when nil).
func (a *Allocator) PrintStats(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	s := a.stats
	fmt.Fprintf(w, "\n=== ALLOCATOR STATISTICS ===\n")
	fmt.Fprintf(
		w,
		"Alloc calls:        %d (tail-free: %d, append: %d, scan: %d, failed: %d)\n",
		s.AllocCalls,
		s.TailFreeHits,
		s.TailAppends,
		s.ScanHits,
		s.AllocFailures,
	)
	fmt.Fprintf(w, "Free calls:         %d (double: %d, bad ptr: %d)\n",
		s.FreeCalls, s.DoubleFrees, s.BadPointers)
	fmt.Fprintf(w, "Realloc calls:      %d (in place: %d, moved: %d)\n",
		s.ReallocCalls, s.ReallocInPlace, s.ReallocMoved)
	fmt.Fprintf(w, "Zero-alloc calls:   %d\n", s.ZeroAllocCalls)
	fmt.Fprintf(w, "Bytes allocated:    %d\n", s.BytesAllocated)
	fmt.Fprintf(w, "Bytes freed:        %d\n", s.BytesFreed)
	fmt.Fprintf(w, "Splits:             %d (absorbed: %d)\n", s.Splits, s.Absorbs)
	fmt.Fprintf(w, "Coalesce fwd:       %d\n", s.CoalesceForward)
	fmt.Fprintf(w, "Coalesce back:      %d\n", s.CoalesceBackward)
	fmt.Fprintf(w, "Coalesce in scan:   %d\n", s.ScanCoalesces)
	if s.Corruptions > 0 {
		fmt.Fprintf(w, "Corruptions:        %d\n", s.Corruptions)
	}

	if u, err := a.Usage(); err == nil {
		fmt.Fprintf(w, "\n=== USAGE ===\n")
		fmt.Fprintf(w, "Region length:      %d\n", u.Length)
		fmt.Fprintf(w, "Blocks:             %d (free: %d)\n", u.Blocks, u.FreeBlocks)
		fmt.Fprintf(w, "In use:             %d\n", u.InUseBytes)
		fmt.Fprintf(w, "Free:               %d (largest: %d)\n", u.FreeBytes, u.LargestFree)
		fmt.Fprintf(w, "Headers:            %d\n", u.HeaderBytes)
		fmt.Fprintf(w, "Raw:                %d\n", u.RawBytes)
	}
}
