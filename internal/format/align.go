package format

import "github.com/joshuapare/fwheap/internal/buf"

// AlignChecked rounds n up to Alignment, reporting ok = false when the
// rounded size is not representable.
//
//	AlignChecked(1)  = 8
//	AlignChecked(9)  = 16
//	AlignChecked(24) = 24
func AlignChecked(n uintptr) (uintptr, bool) {
	return buf.AlignUp(n, Alignment)
}

// IsAligned reports whether n is a multiple of Alignment.
func IsAligned(n uintptr) bool {
	return n&AlignmentMask == 0
}

// AlignmentLoss returns how many bytes must be skipped from addr to reach
// the next Alignment boundary.
func AlignmentLoss(addr uintptr) uintptr {
	return (Alignment - addr&AlignmentMask) & AlignmentMask
}
