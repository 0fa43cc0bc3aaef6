package alloc

import (
	"io"

	"github.com/joshuapare/fwheap/internal/format"
)

// BlockIterator walks the header chain from the sentinel to the tail.
//
// Example:
//
//	it := a.Blocks()
//	for {
//	    b, err := it.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(b.Header, b.Size, b.Free())
//	}
type BlockIterator struct {
	a    *Allocator
	cur  format.Header
	err  error
	done bool
}

// Blocks returns an iterator positioned before the sentinel.
func (a *Allocator) Blocks() *BlockIterator {
	it := &BlockIterator{a: a}
	if !a.initialized {
		it.err = ErrUninitialized
		return it
	}
	it.cur, it.err = a.header(0)
	return it
}

// Next returns the next block, io.EOF after the tail, or the error that
// stopped the walk (ErrCorrupt for a broken link).
func (it *BlockIterator) Next() (BlockInfo, error) {
	if it.err != nil {
		return BlockInfo{}, it.err
	}
	if it.done {
		return BlockInfo{}, io.EOF
	}
	h := it.cur
	if h.Last() {
		it.done = true
		return blockInfo(h, true), nil
	}
	it.cur, it.err = it.a.next(h)
	return blockInfo(h, false), nil
}

// Usage is a point-in-time summary of the chain.
type Usage struct {
	Length      uintptr `json:"length"`
	Blocks      int     `json:"blocks"` // excluding the sentinel
	FreeBlocks  int     `json:"free_blocks"`
	InUseBytes  uintptr `json:"in_use_bytes"`
	FreeBytes   uintptr `json:"free_bytes"`
	HeaderBytes uintptr `json:"header_bytes"`
	RawBytes    uintptr `json:"raw_bytes"`
	LargestFree uintptr `json:"largest_free"`
}

// Available returns the bytes a caller could still obtain without moving
// anything: free payloads plus raw space.
func (u Usage) Available() uintptr { return u.FreeBytes + u.RawBytes }

// Usage walks the chain and totals it.
func (a *Allocator) Usage() (Usage, error) {
	u := Usage{Length: a.length}
	it := a.Blocks()
	for {
		b, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return u, err
		}
		u.HeaderBytes += format.HeaderSize
		if b.Tail {
			u.RawBytes = a.length - b.End()
		}
		if b.Sentinel {
			continue
		}
		u.Blocks++
		if b.Free() {
			u.FreeBlocks++
			u.FreeBytes += b.Size
			u.LargestFree = max(u.LargestFree, b.Size)
		} else {
			u.InUseBytes += b.Size
		}
	}
	return u, nil
}
