package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// AddUintptr adds a and b, returning ok = false when the sum would wrap.
// Heap offsets and sizes are address-sized, so every header/payload sum in
// the allocator goes through this helper.
func AddUintptr(a, b uintptr) (uintptr, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// SubUintptr returns a - b, or ok = false when b > a.
func SubUintptr(a, b uintptr) (uintptr, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// MulUintptr multiplies a and b, returning ok = false when the product would wrap.
// This is the count * elementSize check used by zero-allocation.
func MulUintptr(a, b uintptr) (uintptr, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > ^uintptr(0)/b {
		return 0, false
	}
	return a * b, true
}

// AlignUp rounds n up to the next multiple of align (a power of two).
// ok is false when the rounded value does not fit in a uintptr.
func AlignUp(n, align uintptr) (uintptr, bool) {
	mask := align - 1
	sum, ok := AddUintptr(n, mask)
	if !ok {
		return 0, false
	}
	return sum &^ mask, true
}

// CheckRange validates that n bytes starting at off fit in a buffer of bufLen
// bytes. Returns the end offset, or an error naming the failure
// (overflow or out of bounds).
//
//	end, err := buf.CheckRange(len(data), off, n)
//	if err != nil {
//	    return fmt.Errorf("header: %w", err)
//	}
func CheckRange(bufLen int, off, n uintptr) (uintptr, error) {
	end, ok := AddUintptr(off, n)
	if !ok {
		return 0, fmt.Errorf("overflow: offset=%d + size=%d", off, n)
	}
	if bufLen < 0 || end > uintptr(bufLen) {
		return 0, fmt.Errorf("bounds: end=%d > len=%d", end, bufLen)
	}
	return end, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
