//go:build unix

package view

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/vmkit/internal/rawvm"
	"github.com/joshuapare/vmkit/internal/vmplatform"
	"github.com/joshuapare/vmkit/vm/flags"
	"github.com/joshuapare/vmkit/vm/mapping"
	"github.com/joshuapare/vmkit/vm/vmerr"
)

// View is a contiguous span mmap'd from a mapping's descriptor.
type View struct {
	data    []byte
	mapping *mapping.Mapping
	offset  uint64
}

func protForAccess(access flags.ObjectAccess) int {
	switch access {
	case flags.Read, flags.MetaRead:
		return unix.PROT_READ
	case flags.Execute:
		return unix.PROT_READ | unix.PROT_EXEC
	default:
		return unix.PROT_READ | unix.PROT_WRITE
	}
}

func mmapFlagsForShare(share flags.ShareMode) int {
	if share == flags.CopyOnWrite {
		return unix.MAP_PRIVATE
	}
	return unix.MAP_SHARED
}

// Map creates a view of length bytes starting at offset within m.
// offset must be a multiple of ReserveGranularity; length may be any
// nonzero value (a zero length is clamped up to 1 byte, POSIX permits
// empty views but mmap itself requires a nonzero length).
func Map(m *mapping.Mapping, offset, length uint64) (*View, error) {
	if offset%uint64(vmplatform.ReserveGranularity()) != 0 {
		return nil, fmt.Errorf("view: offset %d is not a multiple of the reserve granularity", offset)
	}
	if length == 0 {
		length = 1
	}
	prot := protForAccess(m.Access())
	mapFlags := mmapFlagsForShare(m.Share())
	fd := m.FD()
	if m.Anonymous() {
		fd = -1
		mapFlags |= unix.MAP_ANON
	}
	data, err := unix.Mmap(fd, int64(offset), int(length), prot, mapFlags)
	if err != nil {
		return nil, fmt.Errorf("view: mmap: %w: %w", vmerr.ErrAlloc, err)
	}
	return &View{data: data, mapping: m, offset: offset}, nil
}

// Unmap unmaps the view and sets it to empty. Safe to call more than
// once.
func (v *View) Unmap() error {
	if v.data == nil {
		return nil
	}
	err := unix.Munmap(v.data)
	v.data = nil
	return err
}

// Expand grows the view to newLength, preferring a native in-place
// remap (Linux mremap) and falling back to a moving remap when that
// isn't available. On Darwin/the BSDs, where relocation always
// allocates a fresh region, a file-backed view is remapped against the
// same descriptor and offset rather than anonymous memory so the
// relocated view still persists to the file. On success the view's
// address may have changed; any trivially-relocatable payload the
// caller tracks by pointer must be re-derived from Bytes().
func (v *View) Expand(newLength uint64) error {
	if v.data == nil {
		return vmerr.ErrClosed
	}
	cur := uint64(len(v.data))
	if newLength <= cur {
		return nil
	}
	span := rawvm.Span{Addr: uintptr(unsafe.Pointer(&v.data[0])), Len: int(cur)}
	var file *rawvm.FileBacking
	if !v.mapping.Anonymous() {
		file = &rawvm.FileBacking{
			FD:     v.mapping.FD(),
			Offset: int64(v.offset),
			Prot:   protForAccess(v.mapping.Access()),
			Flags:  mmapFlagsForShare(v.mapping.Share()),
		}
	}
	result, err := rawvm.ExpandBack(span, int(newLength-cur), int(cur), rawvm.KindCommit, rawvm.Moveable, file)
	if err != nil {
		return fmt.Errorf("view: expand: %w", err)
	}
	v.data = result.NewSpan.Bytes()
	return nil
}

// Shrink unmaps only the tail [newLength, len(v.data)) of the view,
// leaving the prefix mapped and at the same address
// (ViewsDownsizeable == true on POSIX). munmap only operates on whole
// pages, so the actual unmap boundary is newLength rounded up to the
// next page; the logical slice still ends exactly at newLength.
func (v *View) Shrink(newLength uint64) error {
	if v.data == nil {
		return vmerr.ErrClosed
	}
	cur := uint64(len(v.data))
	if newLength >= cur {
		return nil
	}
	pageSize := uint64(vmplatform.CommitGranularity())
	unmapFrom := ((newLength + pageSize - 1) / pageSize) * pageSize
	if unmapFrom < cur {
		tailAddr := uintptr(unsafe.Pointer(&v.data[0])) + uintptr(unmapFrom)
		tail := unsafe.Slice((*byte)(unsafe.Pointer(tailAddr)), cur-unmapFrom)
		if err := unix.Munmap(tail); err != nil {
			return fmt.Errorf("view: shrink: munmap tail: %w", err)
		}
	}
	v.data = v.data[:newLength]
	return nil
}
