package alloc

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSpace indicates that no block large enough was found and the raw
	// space past the tail could not hold the request.
	ErrNoSpace = errors.New("alloc: no block large enough")

	// ErrBadPtr indicates a pointer that does not name a block in the chain.
	ErrBadPtr = errors.New("alloc: bad pointer")

	// ErrDoubleFree indicates a release of a block that is already free.
	ErrDoubleFree = errors.New("alloc: double free")

	// ErrCorrupt indicates an impossible chain: a broken canary, a link that
	// does not move forward, or a header outside the region.
	ErrCorrupt = errors.New("alloc: corrupted heap")

	// ErrUninitialized indicates an operation that needs a set-up heap.
	ErrUninitialized = errors.New("alloc: heap not initialized")
)

// HaltError is the panic value raised by diagnostic builds when the
// allocator detects misuse or corruption.
type HaltError struct {
	Op  string
	Ptr Ptr
	Err error
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("alloc: halt in %s at ptr 0x%X: %v", e.Op, uintptr(e.Ptr), e.Err)
}

func (e *HaltError) Unwrap() error { return e.Err }
