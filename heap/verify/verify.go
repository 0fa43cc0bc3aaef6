package verify

import (
	"fmt"

	"github.com/joshuapare/fwheap/heap/alloc"
	"github.com/joshuapare/fwheap/internal/format"
)

// ValidationError describes the first violation found.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants validates every chain invariant in one call.
// Returns the first error encountered, or nil if all checks pass.
func AllInvariants(data []byte) error {
	if err := Sentinel(data); err != nil {
		return err
	}
	if err := Chain(data); err != nil {
		return err
	}
	return NoAdjacentFree(data)
}

// Sentinel validates the header at offset 0.
func Sentinel(data []byte) error {
	if len(data) < format.MinRegionSize {
		return &ValidationError{
			Type:    "Sentinel",
			Message: fmt.Sprintf("region too small: %d bytes (need %d)", len(data), format.MinRegionSize),
			Offset:  -1,
		}
	}
	h, err := format.ReadHeader(data, 0)
	if err != nil {
		return &ValidationError{Type: "Sentinel", Message: err.Error(), Offset: 0}
	}
	if h.Size != 0 {
		return &ValidationError{
			Type:    "Sentinel",
			Message: fmt.Sprintf("sentinel size %d (expected 0)", h.Size),
			Offset:  0,
		}
	}
	if h.Free() {
		return &ValidationError{
			Type:    "Sentinel",
			Message: "sentinel marked free",
			Offset:  0,
			Details: map[string]any{"free_count": h.FreeCount},
		}
	}
	return nil
}

// Chain walks every header from the sentinel and validates canaries,
// alignment, reserved bytes, and links.
func Chain(data []byte) error {
	_, err := walk(data, func(format.Header, format.Header) error { return nil })
	return err
}

// NoAdjacentFree validates that no two neighboring blocks are both free.
func NoAdjacentFree(data []byte) error {
	_, err := walk(data, func(prev, h format.Header) error {
		if prev.Free() && h.Free() {
			return &ValidationError{
				Type:    "NoAdjacentFree",
				Message: fmt.Sprintf("free block follows free block at 0x%X", prev.Offset),
				Offset:  int(h.Offset),
			}
		}
		return nil
	})
	return err
}

// Allocator validates a live allocator: its region must pass AllInvariants
// and the chain's last header must be the one the allocator calls its tail.
func Allocator(a *alloc.Allocator) error {
	if !a.Initialized() {
		return &ValidationError{Type: "Allocator", Message: "not initialized", Offset: -1}
	}
	data := a.Region()
	if err := AllInvariants(data); err != nil {
		return err
	}
	last, err := walk(data, func(format.Header, format.Header) error { return nil })
	if err != nil {
		return err
	}
	tail, err := a.Tail()
	if err != nil {
		return &ValidationError{Type: "Allocator", Message: err.Error(), Offset: -1}
	}
	if tail.Header != last.Offset {
		return &ValidationError{
			Type:    "Allocator",
			Message: fmt.Sprintf("tracked tail 0x%X is not the last header", tail.Header),
			Offset:  int(last.Offset),
		}
	}
	return nil
}

// walk visits each header after the sentinel together with its predecessor
// and returns the last header.
func walk(data []byte, visit func(prev, h format.Header) error) (format.Header, error) {
	prev, err := readHeader(data, 0)
	if err != nil {
		return format.Header{}, err
	}
	for !prev.Last() {
		end, ok := prev.End()
		if !ok || prev.Next != end {
			return prev, &ValidationError{
				Type:    "Chain",
				Message: fmt.Sprintf("link to 0x%X does not follow payload end 0x%X", prev.Next, end),
				Offset:  int(prev.Offset),
				Details: map[string]any{"next": prev.Next, "end": end},
			}
		}
		h, err := readHeader(data, prev.Next)
		if err != nil {
			return prev, err
		}
		if err := visit(prev, h); err != nil {
			return prev, err
		}
		prev = h
	}
	end, ok := prev.End()
	if !ok || end > uintptr(len(data)) {
		return prev, &ValidationError{
			Type:    "Chain",
			Message: fmt.Sprintf("tail payload ends at 0x%X past region end 0x%X", end, len(data)),
			Offset:  int(prev.Offset),
		}
	}
	return prev, nil
}

func readHeader(data []byte, off uintptr) (format.Header, error) {
	h, err := format.ReadHeader(data, off)
	if err != nil {
		return h, &ValidationError{Type: "Chain", Message: err.Error(), Offset: int(off)}
	}
	if !format.IsAligned(h.Size) {
		return h, &ValidationError{
			Type:    "Chain",
			Message: fmt.Sprintf("size %d not a multiple of %d", h.Size, format.Alignment),
			Offset:  int(off),
		}
	}
	r := off + format.HeaderReservedOffset
	if data[r]|data[r+1]|data[r+2] != 0 {
		return h, &ValidationError{
			Type:    "Chain",
			Message: "reserved header bytes not zero",
			Offset:  int(r),
		}
	}
	return h, nil
}
