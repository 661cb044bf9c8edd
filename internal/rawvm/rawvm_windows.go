//go:build windows

package rawvm

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"

	"github.com/joshuapare/vmkit/internal/vmplatform"
)

// ErrInPlaceUnavailable is returned by ExpandBack/ExpandFront when the
// caller asked for Fixed relocation policy but an in-place grow is not
// possible on this platform.
var ErrInPlaceUnavailable = errors.New("rawvm: in-place expansion unavailable, caller must allow relocation")

// virtualAlloc2 is bound lazily: x/sys/windows does not wrap the
// placeholder-reservation API (Windows 10 1803+), so it's bound the
// same way x/sys/windows binds its own NewLazyDLL-based procs.
var (
	modkernel32       = windows.NewLazySystemDLL("kernel32.dll")
	procVirtualAlloc2 = modkernel32.NewProc("VirtualAlloc2")
)

const (
	memReservePlaceholder  = 0x00040000
	memReplacePlaceholder  = 0x00004000
	memPreservePlaceholder = 0x00000002
)

func virtualAlloc2(process windows.Handle, addr uintptr, size uintptr, allocType, protect uint32) (uintptr, error) {
	if err := procVirtualAlloc2.Find(); err != nil {
		return 0, err
	}
	r, _, e := procVirtualAlloc2.Call(
		uintptr(process), addr, size, uintptr(allocType), uintptr(protect), 0, 0,
	)
	if r == 0 {
		return 0, e
	}
	return r, nil
}

// Reserve reserves size bytes of address space without committing.
func Reserve(size int) (Span, error) {
	size = vmplatform.AlignUp(size, vmplatform.ReserveGranularity())
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return Span{}, os.NewSyscallError("VirtualAlloc", err)
	}
	return Span{Addr: addr, Len: size}, nil
}

// Allocate reserves and commits size bytes.
func Allocate(size int) (Span, error) {
	size = vmplatform.AlignUp(size, vmplatform.ReserveGranularity())
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return Span{}, os.NewSyscallError("VirtualAlloc", err)
	}
	return Span{Addr: addr, Len: size}, nil
}

// AllocateFixed attempts to reserve or commit at a specific address
// using the Windows 10+ placeholder API, enabling later in-place
// expansion via MEM_REPLACE_PLACEHOLDER.
func AllocateFixed(addr uintptr, size int, kind AllocKind) (Span, error) {
	allocType := uint32(memReservePlaceholder | windows.MEM_RESERVE)
	protect := uint32(windows.PAGE_NOACCESS)
	if kind == KindCommit {
		allocType = windows.MEM_COMMIT
		protect = windows.PAGE_READWRITE
	}
	got, err := virtualAlloc2(windows.CurrentProcess(), addr, uintptr(size), allocType, protect)
	if err != nil {
		return Span{}, os.NewSyscallError("VirtualAlloc2", err)
	}
	return Span{Addr: got, Len: size}, nil
}

// Commit binds physical backing to [addr, addr+size).
func Commit(addr uintptr, size int) error {
	_, err := windows.VirtualAlloc(addr, uintptr(size), windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return os.NewSyscallError("VirtualAlloc", err)
	}
	return nil
}

// Decommit releases physical backing for [addr, addr+size) while
// leaving the reservation intact.
func Decommit(addr uintptr, size int) error {
	if err := windows.VirtualFree(addr, uintptr(size), windows.MEM_DECOMMIT); err != nil {
		return os.NewSyscallError("VirtualFree", err)
	}
	return nil
}

// Free releases the entire reservation starting at addr. Windows
// requires size == 0 with MEM_RELEASE; the caller's size is only used
// to validate the span, mirroring VirtualFree's actual contract.
func Free(addr uintptr, size int) error {
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return os.NewSyscallError("VirtualFree", err)
	}
	return nil
}

// Protect changes the protection of [addr, addr+size).
func Protect(addr uintptr, size int, bits ProtectFlag) error {
	var prot uint32
	switch bits {
	case ProtectNone:
		prot = windows.PAGE_NOACCESS
	case ProtectRead:
		prot = windows.PAGE_READONLY
	case ProtectReadWrite:
		prot = windows.PAGE_READWRITE
	}
	var old uint32
	if err := windows.VirtualProtect(addr, uintptr(size), prot, &old); err != nil {
		return os.NewSyscallError("VirtualProtect", err)
	}
	return nil
}

// relocate reserves a brand-new region of newSize bytes, copies the
// first used bytes from old, and releases old.
func relocate(old Span, newSize, used int) (Span, error) {
	fresh, err := Allocate(newSize)
	if err != nil {
		return Span{}, err
	}
	if used > 0 {
		copy(fresh.Bytes()[:used], old.Bytes()[:used])
	}
	if err := Free(old.Addr, old.Len); err != nil {
		return Span{}, err
	}
	return fresh, nil
}

// ExpandBack grows span at its end. Windows has no native in-place
// VirtualAlloc growth for an already-committed range unless the
// reservation was made as a placeholder (AllocateFixed); absent that,
// expansion always relocates when reloc == Moveable.
func ExpandBack(span Span, required, used int, kind AllocKind, reloc RelocPolicy) (ExpandResult, error) {
	if required <= 0 {
		return ExpandResult{NewSpan: span, Method: BackExtended}, nil
	}
	end := span.Addr + uintptr(span.Len)
	extra, err := AllocateFixed(end, required, kind)
	if err == nil {
		return ExpandResult{NewSpan: Span{Addr: span.Addr, Len: span.Len + required}, Method: BackExtended}, nil
	}
	if reloc != Moveable {
		return ExpandResult{}, ErrInPlaceUnavailable
	}
	newSize := vmplatform.AlignUp(span.Len+required, vmplatform.ReserveGranularity())
	fresh, ferr := relocate(span, newSize, used)
	if ferr != nil {
		return ExpandResult{}, ferr
	}
	return ExpandResult{NewSpan: fresh, Method: Moved}, nil
}

// ExpandFront grows span at its start. Windows cannot extend a
// reservation backwards in place, so this always relocates.
func ExpandFront(span Span, required, used int, kind AllocKind, reloc RelocPolicy) (ExpandResult, error) {
	if reloc != Moveable {
		return ExpandResult{}, ErrInPlaceUnavailable
	}
	newSize := vmplatform.AlignUp(span.Len+required, vmplatform.ReserveGranularity())
	fresh, err := relocate(span, newSize, used)
	if err != nil {
		return ExpandResult{}, err
	}
	return ExpandResult{NewSpan: fresh, Method: Moved}, nil
}

// Expand grows the region to accommodate requiredFront bytes before the
// current start and requiredBack bytes after the current end.
func Expand(span Span, requiredBack, requiredFront, used int, kind AllocKind, reloc RelocPolicy) (ExpandResult, error) {
	if requiredFront > 0 {
		return ExpandFront(span, requiredFront+requiredBack, used, kind, reloc)
	}
	return ExpandBack(span, requiredBack, used, kind, reloc)
}
