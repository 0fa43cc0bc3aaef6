package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/fwheap/heap/alloc"
	"github.com/joshuapare/fwheap/internal/format"
)

// buildHeap returns an allocator holding [sentinel][A free][B in use][C in use].
func buildHeap(t *testing.T) (*alloc.Allocator, []alloc.Ptr) {
	t.Helper()
	a := alloc.New(nil)
	a.Setup(make([]byte, 1024))
	require.True(t, a.Initialized())

	var ptrs []alloc.Ptr
	for _, n := range []uintptr{64, 32, 16} {
		p := a.Alloc(n)
		require.NotEqual(t, alloc.Null, p)
		ptrs = append(ptrs, p)
	}
	require.NoError(t, a.Free(ptrs[0]))
	return a, ptrs
}

func hdr(p alloc.Ptr) int { return int(p) - format.HeaderSize }

func requireValidation(t *testing.T, err error, typ, contains string) {
	t.Helper()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "error %T is not *ValidationError", err)
	require.Equal(t, typ, verr.Type)
	require.Contains(t, verr.Error(), contains)
}

// TestAllInvariants_Valid checks a heap produced by the allocator.
func TestAllInvariants_Valid(t *testing.T) {
	a, _ := buildHeap(t)

	require.NoError(t, AllInvariants(a.Region()))
	require.NoError(t, Allocator(a))
}

// TestSentinel_TooSmall tests detection of a truncated region.
func TestSentinel_TooSmall(t *testing.T) {
	err := Sentinel(make([]byte, format.MinRegionSize-1))
	requireValidation(t, err, "Sentinel", "region too small")
}

// TestSentinel_Free tests detection of a released sentinel.
func TestSentinel_Free(t *testing.T) {
	a, _ := buildHeap(t)
	a.Region()[format.HeaderFreeCountOffset] = 1

	requireValidation(t, Sentinel(a.Region()), "Sentinel", "sentinel marked free")
}

// TestSentinel_Size tests detection of a sentinel with a payload.
func TestSentinel_Size(t *testing.T) {
	a, _ := buildHeap(t)
	format.PutU64(a.Region(), format.HeaderSizeOffset, 8)

	requireValidation(t, Sentinel(a.Region()), "Sentinel", "sentinel size 8")
}

// TestChain_BrokenCanary tests detection of an overwritten header.
func TestChain_BrokenCanary(t *testing.T) {
	a, ptrs := buildHeap(t)
	a.Region()[hdr(ptrs[1])+format.HeaderMagicOffset] ^= 0xFF

	err := Chain(a.Region())
	requireValidation(t, err, "Chain", "magic mismatch")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, hdr(ptrs[1]), verr.Offset)
}

// TestChain_GapInLinks tests detection of a link that skips bytes.
func TestChain_GapInLinks(t *testing.T) {
	a, ptrs := buildHeap(t)
	format.PutU64(a.Region(), hdr(ptrs[0])+format.HeaderNextOffset, uint64(hdr(ptrs[1])+8))

	requireValidation(t, Chain(a.Region()), "Chain", "does not follow payload end")
}

// TestChain_TailOverrun tests detection of a tail running past the region.
func TestChain_TailOverrun(t *testing.T) {
	a, ptrs := buildHeap(t)
	format.PutU64(a.Region(), hdr(ptrs[2])+format.HeaderSizeOffset, 4096)

	requireValidation(t, Chain(a.Region()), "Chain", "past region end")
}

// TestChain_ReservedBytes tests detection of garbage in reserved header bytes.
func TestChain_ReservedBytes(t *testing.T) {
	a, ptrs := buildHeap(t)
	a.Region()[hdr(ptrs[1])+format.HeaderReservedOffset+1] = 0x7F

	requireValidation(t, Chain(a.Region()), "Chain", "reserved header bytes")
}

// TestChain_MisalignedSize tests detection of a size that breaks alignment.
func TestChain_MisalignedSize(t *testing.T) {
	a, ptrs := buildHeap(t)
	format.PutU64(a.Region(), hdr(ptrs[2])+format.HeaderSizeOffset, 13)

	requireValidation(t, Chain(a.Region()), "Chain", "not a multiple")
}

// TestNoAdjacentFree tests detection of an unmerged free run.
func TestNoAdjacentFree(t *testing.T) {
	a, ptrs := buildHeap(t)
	require.NoError(t, NoAdjacentFree(a.Region()))

	// Mark B free behind the allocator's back.
	a.Region()[hdr(ptrs[1])+format.HeaderFreeCountOffset] = 1

	err := NoAdjacentFree(a.Region())
	requireValidation(t, err, "NoAdjacentFree", "free block follows free block")
}

// TestAllocator_Uninitialized tests the live-allocator check before Setup.
func TestAllocator_Uninitialized(t *testing.T) {
	requireValidation(t, Allocator(alloc.New(nil)), "Allocator", "not initialized")
}

// TestAllocator_TailMismatch tests that an extra header appended behind the
// allocator's back is caught.
func TestAllocator_TailMismatch(t *testing.T) {
	a, ptrs := buildHeap(t)
	region := a.Region()
	tail := hdr(ptrs[2])
	end := tail + format.HeaderSize + 16
	require.NoError(t, format.WriteHeader(region, format.Header{Offset: uintptr(end), Size: 8}))
	format.PutU64(region, tail+format.HeaderNextOffset, uint64(end))

	requireValidation(t, Allocator(a), "Allocator", "is not the last header")
}
