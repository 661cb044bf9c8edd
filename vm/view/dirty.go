package view

import "sort"

const defaultRangeCapacity = 64

// FlushMode controls durability guarantees for
// DirtyTracker.FlushHeaderAndMeta: a three-tier policy ranging from
// "flush data pages only" to "force platform-maximum durability".
type FlushMode int

const (
	// FlushAuto fsyncs (fdatasync, or F_FULLFSYNC on Darwin) after the
	// header write; a safe default for most callers.
	FlushAuto FlushMode = iota
	// FlushDataOnly flushes dirty data pages only; the caller is
	// responsible for a later fsync, useful when batching several
	// commits together.
	FlushDataOnly
	// FlushFull additionally forces platform-maximum durability
	// (F_FULLFSYNC on Darwin) for power-loss-sensitive callers.
	FlushFull
)

// DirtyTracker accumulates dirty byte ranges within a single View and
// flushes them coalesced into page-aligned, non-overlapping spans, one
// tracker per view.
//
// Not safe for concurrent use.
type DirtyTracker struct {
	view     *View
	ranges   []Range
	pageSize int64
}

// NewDirtyTracker creates a tracker over v, page-aligning coalesced
// flushes to pageSize bytes.
func NewDirtyTracker(v *View, pageSize int64) *DirtyTracker {
	return &DirtyTracker{
		view:     v,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: pageSize,
	}
}

// Add records a dirty range; it will be page-aligned and coalesced
// with other ranges at flush time.
func (t *DirtyTracker) Add(off, length int) {
	t.ranges = append(t.ranges, Range{Off: int64(off), Len: int64(length)})
}

// Reset discards all tracked ranges without flushing them.
func (t *DirtyTracker) Reset() {
	t.ranges = t.ranges[:0]
}

// DebugRanges returns a copy of the raw, uncoalesced ranges.
func (t *DirtyTracker) DebugRanges() []Range {
	out := make([]Range, len(t.ranges))
	copy(out, t.ranges)
	return out
}

// DebugCoalescedRanges returns the page-aligned, sorted, merged ranges
// that FlushDataOnly would flush.
func (t *DirtyTracker) DebugCoalescedRanges() []Range {
	return t.coalesce()
}

func (t *DirtyTracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}
	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}
	sort.Slice(aligned, func(i, j int) bool { return aligned[i].Off < aligned[j].Off })

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for i := 1; i < len(aligned); i++ {
		next := aligned[i]
		if next.Off <= current.Off+current.Len {
			end := current.Off + current.Len
			if nextEnd := next.Off + next.Len; nextEnd > end {
				end = nextEnd
			}
			current.Len = end - current.Off
		} else {
			merged = append(merged, current)
			current = next
		}
	}
	merged = append(merged, current)
	return merged
}

// FlushDataOnly flushes all coalesced dirty ranges as a queued,
// non-blocking writeback and clears them; per the type's doc comment,
// the caller is responsible for a later fsync to make the writes
// durable.
func (t *DirtyTracker) FlushDataOnly() error {
	if len(t.ranges) == 0 {
		return nil
	}
	for _, r := range t.coalesce() {
		if err := t.view.flushRange(r, false); err != nil {
			return err
		}
	}
	t.ranges = t.ranges[:0]
	return nil
}

// FlushHeaderAndMeta flushes the leading pageSize header bytes and,
// depending on mode, additionally syncs the backing file descriptor.
// The header flush itself is a non-blocking writeback; for FlushAuto
// and FlushFull the following syncFile call is what makes it durable,
// and for FlushDataOnly the caller is responsible for a later fsync,
// the same contract as FlushDataOnly the method.
func (t *DirtyTracker) FlushHeaderAndMeta(mode FlushMode) error {
	headerLen := t.pageSize
	if int64(t.view.Len()) < headerLen {
		headerLen = int64(t.view.Len())
	}
	if err := t.view.flushRange(Range{Off: 0, Len: headerLen}, false); err != nil {
		return err
	}
	if mode == FlushDataOnly {
		return nil
	}
	return t.view.syncFile(mode == FlushFull)
}
