// Package dirty tracks which byte ranges of a heap region were modified and
// flushes them to a file-backed heap image.
//
// The tracker collects raw ranges cheaply, then coalesces them into
// page-aligned, non-overlapping ranges at flush time.
package dirty

import (
	"cmp"
	"context"
	"os"
	"slices"
)

const defaultRangeCapacity = 64

// Range is a region-relative byte span.
type Range struct {
	Off int64
	Len int64
}

// Tracker records the ranges an allocator writes and syncs them to the
// backing image on Flush. Not safe for concurrent use.
type Tracker struct {
	r        Syncer
	ranges   []Range
	pageSize int64
}

// NewTracker creates a dirty tracker for the given region. r may be nil for
// trackers that only record ranges.
func NewTracker(r Syncer) *Tracker {
	return &Tracker{
		r:        r,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: int64(os.Getpagesize()),
	}
}

// Add records a dirty range. Empty and negative ranges are ignored.
func (t *Tracker) Add(off, length int) {
	if length <= 0 || off < 0 {
		return
	}
	t.ranges = append(t.ranges, Range{Off: int64(off), Len: int64(length)})
}

// Len returns the number of raw (uncoalesced) ranges recorded.
func (t *Tracker) Len() int { return len(t.ranges) }

// Flush msyncs the pages covering every recorded range, then forgets them.
// A cancelled ctx stops the flush between pages; the ranges are kept so a
// later Flush can retry.
func (t *Tracker) Flush(ctx context.Context) error {
	if len(t.ranges) == 0 || t.r == nil {
		return nil
	}
	limit := int64(len(t.r.Bytes()))
	for _, rg := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rg.Off >= limit {
			continue
		}
		if err := t.r.SyncRange(int(rg.Off), int(min(rg.Len, limit-rg.Off))); err != nil {
			return err
		}
	}
	t.Reset()
	return nil
}

// Reset forgets every recorded range without flushing.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// DebugRanges returns a copy of the raw ranges in the order they were added.
func (t *Tracker) DebugRanges() []Range {
	return slices.Clone(t.ranges)
}

// DebugCoalescedRanges returns what Flush would sync.
func (t *Tracker) DebugCoalescedRanges() []Range {
	return t.coalesce()
}

// pages widens rg to whole pages.
func (t *Tracker) pages(rg Range) Range {
	start := rg.Off - rg.Off%t.pageSize
	end := rg.Off + rg.Len
	if rem := end % t.pageSize; rem != 0 {
		end += t.pageSize - rem
	}
	return Range{Off: start, Len: end - start}
}

// coalesce widens every range to pages and merges those that touch.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}
	spans := make([]Range, len(t.ranges))
	for i, rg := range t.ranges {
		spans[i] = t.pages(rg)
	}
	slices.SortFunc(spans, func(a, b Range) int { return cmp.Compare(a.Off, b.Off) })

	out := spans[:1]
	for _, rg := range spans[1:] {
		last := &out[len(out)-1]
		if rg.Off > last.Off+last.Len {
			out = append(out, rg)
			continue
		}
		last.Len = max(last.Off+last.Len, rg.Off+rg.Len) - last.Off
	}
	return out
}
