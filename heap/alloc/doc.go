// Package alloc implements the firmware's freestanding heap: a first-fit
// allocator whose block headers are overlaid on the managed region itself.
//
// # Overview
//
// The allocator manages one contiguous arena. Every block is preceded by a
// 24-byte header recording its payload size, a link to the next header, and
// a free counter. Headers form a singly linked, address-ascending chain that
// starts with a zero-length sentinel at the (aligned) region base:
//
//	[sentinel][hdr A|payload A][hdr B|payload B] ... [hdr tail|payload tail][raw ...]
//
// Bytes past the tail's payload are raw: no header describes them yet.
//
// # Operations
//
//   - Setup(mem): align the base, install the sentinel
//   - Alloc(n): tail-free fast path, tail-append fast path, then a first-fit
//     scan that coalesces adjacent free blocks as it walks
//   - ZeroAlloc(count, size): overflow-checked Alloc plus zero fill
//   - Realloc(p, n): coalesce forward in place, grow the tail in place, or
//     allocate-copy-free; a failed grow leaves the original untouched
//   - Free(p): double-free detection, forward then backward coalescing
//   - Teardown(): forget everything
//
// # Pointers
//
// A Ptr is the offset of a payload from the aligned region base. Null (0)
// can never be a payload because the sentinel header occupies offset 0.
// Payload bytes are reached through Bytes:
//
//	a := alloc.New(nil)
//	a.Setup(region.Arena(heap.DefaultSafetyMargin))
//
//	p := a.Alloc(64)
//	if p == alloc.Null {
//	    return errOutOfMemory
//	}
//	copy(a.Bytes(p), sector)
//	_ = a.Free(p)
//
// # Failure Reporting
//
// Ordinary failures (uninitialized heap, zero or overflowing sizes, out of
// memory) are reported as Null. Free returns ErrDoubleFree, ErrBadPtr, or
// ErrCorrupt for diagnostics and leaves the chain untouched in the first two
// cases. Building with -tags heapdebug turns double frees, bad pointers, and
// detected corruption into a logged panic carrying a *HaltError.
//
// # Thread Safety
//
// Allocator instances are not safe for concurrent use and must not be
// re-entered. Callers that share one across goroutines or interrupt-like
// contexts must provide their own mutual exclusion.
package alloc
