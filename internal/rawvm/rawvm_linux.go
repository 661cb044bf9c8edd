//go:build linux

package rawvm

import (
	"os"
	"syscall"

	"github.com/joshuapare/vmkit/internal/vmplatform"
)

const sysMmap = syscall.SYS_MMAP

// mremapMaymove mirrors MREMAP_MAYMOVE from <sys/mman.h>; golang.org/x/sys/unix
// does not expose a high-level Mremap wrapper, so vmkit issues the raw
// syscall directly, the same pattern zaf/yammap and gravwell/gravwell
// use for their mremap-based growth paths.
const mremapMaymove = 0x1

// ExpandBack grows span at its end using Linux's native mremap, which
// can extend a mapping in place when adjacent address space is free.
// When in-place growth is unavailable and reloc == Moveable, mremap is
// allowed to relocate (MREMAP_MAYMOVE); with Fixed it is not, and
// ErrInPlaceUnavailable propagates instead. mremap always operates on
// the existing mapping, so it preserves whatever backing (file or
// anonymous) the span already had; file is accepted for signature
// parity with the other platforms' ExpandBack and is unused here.
func ExpandBack(span Span, required, used int, kind AllocKind, reloc RelocPolicy, file *FileBacking) (ExpandResult, error) {
	if required <= 0 {
		return ExpandResult{NewSpan: span, Method: BackExtended}, nil
	}
	newSize := vmplatform.AlignUp(span.Len+required, vmplatform.ReserveGranularity())

	var flags uintptr
	if reloc == Moveable {
		flags = mremapMaymove
	}
	newAddr, _, errno := syscall.Syscall6(
		syscall.SYS_MREMAP, span.Addr, uintptr(span.Len), uintptr(newSize), flags, 0, 0,
	)
	if errno != 0 {
		if reloc != Moveable {
			return ExpandResult{}, ErrInPlaceUnavailable
		}
		return ExpandResult{}, os.NewSyscallError("mremap", errno)
	}
	method := BackExtended
	if newAddr != span.Addr {
		method = Moved
	}
	return ExpandResult{NewSpan: Span{Addr: newAddr, Len: newSize}, Method: method}, nil
}
