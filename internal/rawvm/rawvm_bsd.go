//go:build darwin || freebsd

package rawvm

import (
	"syscall"

	"github.com/joshuapare/vmkit/internal/vmplatform"
)

const sysMmap = syscall.SYS_MMAP

// ExpandBack grows span at its end. Darwin and the BSDs have no mremap
// equivalent, so an in-place grow is only possible when the platform
// happens to leave the adjacent range free; vmkit does not probe for
// that and instead always relocates when reloc == Moveable. When file
// is non-nil the fresh region is mmap'd against the same descriptor and
// offset (relocate's file path) rather than anonymous memory, so a
// relocating grow of a file-backed view stays backed by the file.
func ExpandBack(span Span, required, used int, kind AllocKind, reloc RelocPolicy, file *FileBacking) (ExpandResult, error) {
	if required <= 0 {
		return ExpandResult{NewSpan: span, Method: BackExtended}, nil
	}
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
