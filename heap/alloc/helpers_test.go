package alloc

import (
	"io"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/fwheap/internal/format"
)

// newHeap sets up an allocator over a fresh Go-allocated arena (8-aligned).
func newHeap(tb testing.TB, size int) (*Allocator, []byte) {
	tb.Helper()
	mem := make([]byte, size)
	a := New(&Config{})
	a.Setup(mem)
	require.True(tb, a.Initialized(), "setup of %d bytes", size)
	return a, mem
}

// mustAlloc allocates n bytes and fails the test on Null.
func mustAlloc(tb testing.TB, a *Allocator, n uintptr) Ptr {
	tb.Helper()
	p := a.Alloc(n)
	require.NotEqual(tb, Null, p, "Alloc(%d)", n)
	return p
}

// chain collects every block, failing the test on a broken walk.
func chain(tb testing.TB, a *Allocator) []BlockInfo {
	tb.Helper()
	var out []BlockInfo
	it := a.Blocks()
	for {
		b, err := it.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(tb, err)
		out = append(out, b)
	}
}

// checkChain asserts the structural invariants that must hold between
// operations.
func checkChain(tb testing.TB, a *Allocator) {
	tb.Helper()
	blocks := chain(tb, a)
	require.NotEmpty(tb, blocks)

	s := blocks[0]
	require.True(tb, s.Sentinel, "first block must be the sentinel")
	require.Zero(tb, s.Size, "sentinel size")
	require.False(tb, s.Free(), "sentinel must never be free")

	for i, b := range blocks {
		require.Zero(tb, b.Header%format.Alignment, "header %d misaligned", b.Header)
		require.Zero(tb, b.Size%format.Alignment, "size %d misaligned", b.Size)
		require.LessOrEqual(tb, b.End(), a.Len(), "block %d overruns region", b.Header)
		if i > 0 {
			prev := blocks[i-1]
			require.Equal(tb, prev.End(), b.Header, "chain not contiguous at %d", b.Header)
			require.False(tb, prev.Free() && b.Free(),
				"adjacent free blocks at %d and %d", prev.Header, b.Header)
		}
	}

	last := blocks[len(blocks)-1]
	require.True(tb, last.Tail)
	tail, err := a.Tail()
	require.NoError(tb, err)
	require.Equal(tb, last.Header, tail.Header)
	require.Equal(tb, a.Len()-last.End(), a.RawSpace())
}

// addr returns the machine address of payload p.
func addr(a *Allocator, p Ptr) uintptr {
	return uintptr(unsafe.Pointer(&a.Bytes(p)[0]))
}

// fill writes v into every payload byte of p.
func fill(a *Allocator, p Ptr, v byte) {
	b := a.Bytes(p)
	for i := range b {
		b[i] = v
	}
}

// writeChain lays out headers by hand, for images the allocator itself
// would never produce.
func writeChain(tb testing.TB, mem []byte, hdrs ...format.Header) {
	tb.Helper()
	for _, h := range hdrs {
		require.NoError(tb, format.WriteHeader(mem, h))
	}
}

// recordingTracker remembers every range the allocator reports.
type recordingTracker struct {
	ranges [][2]int
}

func (r *recordingTracker) Add(off, length int) {
	r.ranges = append(r.ranges, [2]int{off, length})
}

func (r *recordingTracker) covers(off, length int) bool {
	for _, rg := range r.ranges {
		if off >= rg[0] && off+length <= rg[0]+rg[1] {
			return true
		}
	}
	return false
}
