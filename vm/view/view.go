// Package view implements the mapped view: a contiguous byte span
// taken from a vm/mapping.Mapping, with platform-specific grow,
// shrink, and flush behavior, plus a dirty-range tracker for
// accumulating writes before a coalesced flush.
package view

// Range is a byte range relative to a view's base address, used by
// FlushAsync, FlushBlocking, and DirtyTracker.
type Range struct {
	Off int64
	Len int64
}

// Bytes exposes the view's current live range. The returned slice is
// invalidated by Expand, Shrink, or Unmap.
func (v *View) Bytes() []byte { return v.data }

// Len returns the view's current length in bytes.
func (v *View) Len() int { return len(v.data) }

// Offset returns the offset within the mapping this view starts at.
func (v *View) Offset() uint64 { return v.offset }

// FlushAsync issues an asynchronous flush of r to the backing store
// without waiting for durability.
func (v *View) FlushAsync(r Range) error {
	return v.flushRange(r, false)
}

// FlushBlocking flushes r and blocks until the write is durable,
// additionally calling FlushFileBuffers on Windows to guarantee the
// underlying file has been updated.
func (v *View) FlushBlocking(r Range) error {
	if err := v.flushRange(r, true); err != nil {
		return err
	}
	return v.syncFile(false)
}
