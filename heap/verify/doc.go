// Package verify checks heap chains for structural damage.
//
// # Overview
//
// The checks work on the raw bytes of an aligned region, so they can be run
// against a live allocator, a mapped heap image, or a hand-built fixture.
// They re-derive everything from the headers and trust nothing the
// allocator keeps on the side.
//
// Validation categories:
//   - Sentinel: zero-length, in-use header at offset 0
//   - Chain: canaries, alignment, reserved bytes, forward contiguous links,
//     tail inside the region
//   - NoAdjacentFree: every run of free blocks has been merged
//   - Allocator: all of the above plus agreement with the allocator's tail
//
// # Quick Start
//
//	if err := verify.Allocator(a); err != nil {
//	    var verr *verify.ValidationError
//	    if errors.As(err, &verr) {
//	        fmt.Printf("%s at 0x%X: %s\n", verr.Type, verr.Offset, verr.Message)
//	    }
//	}
//
// For a heap image on disk:
//
//	data, _ := os.ReadFile("heap.img")
//	if err := verify.AllInvariants(data); err != nil {
//	    fmt.Printf("image damaged: %v\n", err)
//	}
package verify
