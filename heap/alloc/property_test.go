package alloc

import (
	"bytes"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/fwheap/internal/format"
)

type liveBlock struct {
	ptr  Ptr
	size uintptr // requested size
	tag  byte
}

// Test_Property_RandomOperations drives a seeded mix of every operation and
// checks after each step that the chain is well formed, that no two live
// payloads overlap, and that every live payload still holds its pattern.
func Test_Property_RandomOperations(t *testing.T) {
	for _, seed := range []int64{1, 42, 1337, 20240601} {
		a, _ := newHeap(t, 8192)
		rng := rand.New(rand.NewSource(seed)) // fixed seed for reproducibility
		var live []liveBlock
		var tag byte

		for step := range 2000 {
			switch op := rng.Intn(10); {
			case op < 4: // alloc
				n := uintptr(1 + rng.Intn(300))
				p := a.Alloc(n)
				if p == Null {
					continue
				}
				tag++
				fill(a, p, tag)
				live = append(live, liveBlock{p, n, tag})

			case op < 5: // zero alloc
				count, size := uintptr(1+rng.Intn(16)), uintptr(1+rng.Intn(16))
				p := a.ZeroAlloc(count, size)
				if p == Null {
					continue
				}
				require.Equal(t, make([]byte, a.SizeOf(p)), a.Bytes(p), "seed %d step %d", seed, step)
				tag++
				fill(a, p, tag)
				live = append(live, liveBlock{p, count * size, tag})

			case op < 7: // realloc
				if len(live) == 0 {
					continue
				}
				i := rng.Intn(len(live))
				n := uintptr(1 + rng.Intn(400))
				q := a.Realloc(live[i].ptr, n)
				if q == Null {
					// Original must survive a failed resize.
					got := a.Bytes(live[i].ptr)
					require.GreaterOrEqual(t, uintptr(len(got)), live[i].size)
					require.Equal(t, bytes.Repeat([]byte{live[i].tag}, int(live[i].size)), got[:live[i].size],
						"seed %d step %d: failed realloc lost contents", seed, step)
					fill(a, live[i].ptr, live[i].tag)
					continue
				}
				keep := min(n, live[i].size)
				require.Equal(t, bytes.Repeat([]byte{live[i].tag}, int(keep)), a.Bytes(q)[:keep],
					"seed %d step %d: realloc lost contents", seed, step)
				live[i].ptr = q
				live[i].size = n
				fill(a, q, live[i].tag)

			default: // free
				if len(live) == 0 {
					continue
				}
				i := rng.Intn(len(live))
				require.NoError(t, a.Free(live[i].ptr), "seed %d step %d", seed, step)
				live = append(live[:i], live[i+1:]...)
			}

			checkChain(t, a)
			checkLive(t, a, live)
		}

		// Release everything: only the sentinel and possibly one free tail remain.
		for _, b := range live {
			require.NoError(t, a.Free(b.ptr))
		}
		require.NoError(t, a.Defragment())
		blocks := chain(t, a)
		require.LessOrEqual(t, len(blocks), 2, "seed %d", seed)
		checkChain(t, a)
	}
}

func checkLive(t *testing.T, a *Allocator, live []liveBlock) {
	t.Helper()
	sorted := append([]liveBlock(nil), live...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ptr < sorted[j].ptr })

	var prevEnd uintptr
	for _, b := range sorted {
		got := a.Bytes(b.ptr)
		require.NotNil(t, got, "live block 0x%X not in use", uintptr(b.ptr))
		require.GreaterOrEqual(t, uintptr(len(got)), b.size)
		require.Zero(t, uintptr(b.ptr)%format.Alignment)
		require.GreaterOrEqual(t, uintptr(b.ptr)-format.HeaderSize, prevEnd, "payloads overlap")
		require.Equal(t, bytes.Repeat([]byte{b.tag}, len(got)), got, "block 0x%X clobbered", uintptr(b.ptr))
		prevEnd = uintptr(b.ptr) + uintptr(len(got))
	}
}
