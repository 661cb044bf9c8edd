//go:build unix

package rawvm

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/vmkit/internal/vmplatform"
)

// ErrInPlaceUnavailable is returned by ExpandBack/ExpandFront when the
// caller asked for Fixed relocation policy but an in-place grow is not
// possible on this platform.
var ErrInPlaceUnavailable = errors.New("rawvm: in-place expansion unavailable, caller must allow relocation")

// Reserve reserves size bytes of address space without committing
// physical backing. size is rounded up to the reserve granularity.
func Reserve(size int) (Span, error) {
	size = vmplatform.AlignUp(size, vmplatform.ReserveGranularity())
	data, err := syscall.Mmap(-1, 0, size, syscall.PROT_NONE, syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		return Span{}, os.NewSyscallError("mmap", err)
	}
	return spanOf(data), nil
}

// Allocate reserves and commits size bytes (reserve + commit in one
// syscall, since anonymous POSIX mappings are demand-paged).
func Allocate(size int) (Span, error) {
	size = vmplatform.AlignUp(size, vmplatform.ReserveGranularity())
	data, err := syscall.Mmap(-1, 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		return Span{}, os.NewSyscallError("mmap", err)
	}
	return spanOf(data), nil
}

// AllocateFixed attempts to satisfy a reservation or commit at a
// specific address (MAP_FIXED), used by the relocating-expand fallback
// when the caller wants the new region to land at a chosen address.
func AllocateFixed(addr uintptr, size int, kind AllocKind) (Span, error) {
	prot := syscall.PROT_NONE
	if kind == KindCommit {
		prot = syscall.PROT_READ | syscall.PROT_WRITE
	}
	got, _, errno := syscall.Syscall6(
		sysMmap, addr, uintptr(size), uintptr(prot),
		uintptr(syscall.MAP_ANON|syscall.MAP_PRIVATE|syscall.MAP_FIXED), ^uintptr(0), 0,
	)
	if errno != 0 {
		return Span{}, os.NewSyscallError("mmap", errno)
	}
	return Span{Addr: got, Len: size}, nil
}

// Commit binds physical backing to [addr, addr+size). POSIX anonymous
// pages are demand-paged, so Commit only needs to make the range
// read-write; the kernel backs pages lazily on first touch.
func Commit(addr uintptr, size int) error {
	if err := unix.Mprotect(byteView(addr, size), unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return os.NewSyscallError("mprotect", err)
	}
	return nil
}

// Decommit releases physical backing for [addr, addr+size) while
// leaving the address-space reservation intact.
func Decommit(addr uintptr, size int) error {
	if err := unix.Madvise(byteView(addr, size), unix.MADV_DONTNEED); err != nil {
		return os.NewSyscallError("madvise", err)
	}
	if err := unix.Mprotect(byteView(addr, size), unix.PROT_NONE); err != nil {
		return os.NewSyscallError("mprotect", err)
	}
	return nil
}

// Free releases [addr, addr+size) back to the OS.
func Free(addr uintptr, size int) error {
	if err := unix.Munmap(byteView(addr, size)); err != nil {
		return os.NewSyscallError("munmap", err)
	}
	return nil
}

// Protect changes the protection of [addr, addr+size).
func Protect(addr uintptr, size int, bits ProtectFlag) error {
	var prot int
	switch bits {
	case ProtectNone:
		prot = unix.PROT_NONE
	case ProtectRead:
		prot = unix.PROT_READ
	case ProtectReadWrite:
		prot = unix.PROT_READ | unix.PROT_WRITE
	default:
		return fmt.Errorf("rawvm: unknown protect flag %d", bits)
	}
	if err := unix.Mprotect(byteView(addr, size), prot); err != nil {
		return os.NewSyscallError("mprotect", err)
	}
	return nil
}

// relocate reserves a brand-new region of newSize bytes, copies the
// first used bytes from old, and releases old. Used as the fallback
// expansion strategy on platforms/policies without native remap. When
// file is non-nil the fresh region is mmap'd against file.FD at
// file.Offset instead of anonymous memory, so relocating a file-backed
// span keeps writing through to the file.
func relocate(old Span, newSize int, used int, file *FileBacking) (Span, error) {
	var fresh Span
	var err error
	if file != nil {
		fresh, err = mapFileRegion(file, newSize)
	} else {
		fresh, err = Allocate(newSize)
	}
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

// mapFileRegion mmaps size bytes of file.FD at file.Offset with the
// caller's original protection and share flags.
func mapFileRegion(file *FileBacking, size int) (Span, error) {
	data, err := syscall.Mmap(file.FD, file.Offset, size, file.Prot, file.Flags)
	if err != nil {
		return Span{}, os.NewSyscallError("mmap", err)
	}
	return spanOf(data), nil
}

// ExpandFront grows the region at its start. POSIX has no in-place
// front-extension primitive, so this always relocates.
func ExpandFront(span Span, required, used int, kind AllocKind, reloc RelocPolicy, file *FileBacking) (ExpandResult, error) {
	if reloc != Moveable {
		return ExpandResult{}, ErrInPlaceUnavailable
	}
	newSize := vmplatform.AlignUp(span.Len+required, vmplatform.ReserveGranularity())
	fresh, err := relocate(span, newSize, used, file)
	if err != nil {
		return ExpandResult{}, err
	}
	return ExpandResult{NewSpan: fresh, Method: Moved}, nil
}

// Expand grows the region to accommodate requiredFront bytes before the
// current start and requiredBack bytes after the current end.
func Expand(span Span, requiredBack, requiredFront, used int, kind AllocKind, reloc RelocPolicy, file *FileBacking) (ExpandResult, error) {
	if requiredFront > 0 {
		return ExpandFront(span, requiredFront+requiredBack, used, kind, reloc, file)
	}
	return ExpandBack(span, requiredBack, used, kind, reloc, file)
}

func spanOf(data []byte) Span {
	if len(data) == 0 {
		return Span{}
	}
	return Span{Addr: uintptr(unsafe.Pointer(&data[0])), Len: len(data)}
}

func byteView(addr uintptr, size int) []byte {
	return Span{Addr: addr, Len: size}.Bytes()
}
