//go:build windows

package view

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/joshuapare/vmkit/internal/vmplatform"
	"github.com/joshuapare/vmkit/vm/flags"
	"github.com/joshuapare/vmkit/vm/mapping"
	"github.com/joshuapare/vmkit/vm/vmerr"
)

// View is a contiguous span MapViewOfFile'd from a mapping's section.
type View struct {
	data     []byte
	baseAddr uintptr
	mapping  *mapping.Mapping
	offset   uint64
}

func mapAccess(access flags.ObjectAccess, share flags.ShareMode) uint32 {
	if share == flags.CopyOnWrite {
		return windows.FILE_MAP_COPY
	}
	switch access {
	case flags.Read, flags.MetaRead:
		return windows.FILE_MAP_READ
	case flags.Execute:
		return windows.FILE_MAP_EXECUTE | windows.FILE_MAP_READ
	default:
		return windows.FILE_MAP_WRITE
	}
}

// Map creates a view of length bytes starting at offset within m.
// Windows permits no zero-length view (SupportsZeroSizedMappings ==
// false): length is clamped up to 1 when the caller passes 0.
func Map(m *mapping.Mapping, offset, length uint64) (*View, error) {
	if offset%uint64(vmplatform.ReserveGranularity()) != 0 {
		return nil, fmt.Errorf("view: offset %d is not a multiple of the reserve granularity", offset)
	}
	if length == 0 {
		length = 1
	}
	access := mapAccess(m.Access(), m.Share())
	high, low := uint32(offset>>32), uint32(offset&0xffffffff)
	addr, err := windows.MapViewOfFile(m.Section(), access, high, low, uintptr(length))
	if err != nil {
		return nil, fmt.Errorf("view: MapViewOfFile: %w: %w", vmerr.ErrAlloc, err)
	}
	return &View{
		data:     unsafe.Slice((*byte)(unsafe.Pointer(addr)), length),
		baseAddr: addr,
		mapping:  m,
		offset:   offset,
	}, nil
}

// Unmap unmaps the view and sets it to empty. Safe to call more than
// once.
func (v *View) Unmap() error {
	if v.baseAddr == 0 {
		return nil
	}
	err := windows.UnmapViewOfFile(v.baseAddr)
	v.data = nil
	v.baseAddr = 0
	return err
}

// Expand grows the view to newLength. Windows has no native in-place
// extension of an existing view: this unmaps and attempts to remap at
// the same base address first (via the undocumented-by-x/sys
// MapViewOfFileEx), falling back to a new address if the old one is
// no longer free.
func (v *View) Expand(newLength uint64) error {
	if v.data == nil {
		return vmerr.ErrClosed
	}
	if newLength <= uint64(len(v.data)) {
		return nil
	}
	oldBase := v.baseAddr
	if err := v.Unmap(); err != nil {
		return fmt.Errorf("view: expand: unmap: %w", err)
	}
	access := mapAccess(v.mapping.Access(), v.mapping.Share())
	high, low := uint32(v.offset>>32), uint32(v.offset&0xffffffff)

	addr, err := mapViewOfFileAt(v.mapping.Section(), access, high, low, uintptr(newLength), oldBase)
	if err != nil {
		addr, err = windows.MapViewOfFile(v.mapping.Section(), access, high, low, uintptr(newLength))
		if err != nil {
			return fmt.Errorf("view: expand: remap: %w: %w", vmerr.ErrAlloc, err)
		}
	}
	v.baseAddr = addr
	v.data = unsafe.Slice((*byte)(unsafe.Pointer(addr)), newLength)
	return nil
}

// Shrink unmaps the view entirely and remaps the prefix
// [0, newLength) (ViewsDownsizeable == false: Windows has no partial
// unmap of a view).
func (v *View) Shrink(newLength uint64) error {
	if v.data == nil {
		return vmerr.ErrClosed
	}
	if newLength >= uint64(len(v.data)) {
		return nil
	}
	if err := v.Unmap(); err != nil {
		return fmt.Errorf("view: shrink: unmap: %w", err)
	}
	access := mapAccess(v.mapping.Access(), v.mapping.Share())
	high, low := uint32(v.offset>>32), uint32(v.offset&0xffffffff)
	addr, err := windows.MapViewOfFile(v.mapping.Section(), access, high, low, uintptr(newLength))
	if err != nil {
		return fmt.Errorf("view: shrink: remap: %w", err)
	}
	v.baseAddr = addr
	v.data = unsafe.Slice((*byte)(unsafe.Pointer(addr)), newLength)
	return nil
}

// mapViewOfFileAt is MapViewOfFileEx, bound lazily: x/sys/windows does
// not wrap the address-hinting variant of MapViewOfFile.
var (
	modkernel32vw       = windows.NewLazySystemDLL("kernel32.dll")
	procMapViewOfFileEx = modkernel32vw.NewProc("MapViewOfFileEx")
)

func mapViewOfFileAt(section windows.Handle, access uint32, offsetHigh, offsetLow uint32, length uintptr, at uintptr) (uintptr, error) {
	if at == 0 {
		return 0, fmt.Errorf("view: no previous address to hint")
	}
	if err := procMapViewOfFileEx.Find(); err != nil {
		return 0, err
	}
	r, _, e := procMapViewOfFileEx.Call(
		uintptr(section), uintptr(access), uintptr(offsetHigh), uintptr(offsetLow), length, at,
	)
	if r == 0 {
		return 0, e
	}
	return r, nil
}
