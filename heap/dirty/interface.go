package dirty

// DirtyTracker is the minimal interface for tracking dirty (modified) byte ranges.
// The allocator reports every header it writes and every payload it zeroes
// or copies through it; it never flushes anything itself.
type DirtyTracker interface {
	// Add marks a byte range as dirty.
	// off is the offset from the start of the region, length is the number of bytes.
	Add(off, length int)
}

// Syncer is the subset of heap.Region a Tracker flushes through.
type Syncer interface {
	SyncRange(off, n int) error
	Bytes() []byte
}
