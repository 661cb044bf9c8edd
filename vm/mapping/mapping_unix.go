//go:build unix

package mapping

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/vmkit/vm/flags"
	"github.com/joshuapare/vmkit/vm/vmerr"
)

// Platform constants for the POSIX mapping backend.
const (
	SupportsZeroSizedMappings     = true
	ViewsDownsizeable             = true
	CreateMappingCanSetSourceSize = false
)

// Mapping is a POSIX file (or anonymous) backing for later mmap calls.
// POSIX has no distinct section object the way Windows does: Mapping
// owns a private descriptor, dup'd off the caller's *os.File so the
// two can be closed independently, the usual dup-before-mmap pattern
// for separating file lifetime from mapping lifetime.
type Mapping struct {
	fd        int
	access    flags.ObjectAccess
	share     flags.ShareMode
	size      uint64
	anonymous bool
	closed    bool
}

// CreateMapping records a mapping over file (size bytes), or an
// anonymous mapping if file is nil. POSIX cannot set the source size
// at section-creation time (CreateMappingCanSetSourceSize is false):
// the caller must already have sized the file via SetSize/Truncate
// before calling CreateMapping.
func CreateMapping(file *os.File, access flags.ObjectAccess, share flags.ShareMode, size uint64) (*Mapping, error) {
	if file == nil {
		return &Mapping{fd: -1, access: access, share: share, size: size, anonymous: true}, nil
	}
	dup, err := unix.Dup(int(file.Fd()))
	if err != nil {
		return nil, fmt.Errorf("mapping: %w: %w", vmerr.ErrAlloc, err)
	}
	return &Mapping{fd: dup, access: access, share: share, size: size}, nil
}

// FD returns the descriptor views map against, or -1 for an anonymous
// mapping (the view layer passes -1 with MAP_ANONYMOUS to the kernel).
func (m *Mapping) FD() int { return m.fd }

// Access reports the mapping's configured access rights.
func (m *Mapping) Access() flags.ObjectAccess { return m.access }

// Share reports the mapping's configured share mode.
func (m *Mapping) Share() flags.ShareMode { return m.share }

// Anonymous reports whether the mapping has no backing file.
func (m *Mapping) Anonymous() bool { return m.anonymous }

// GetSize returns the mapping's current backing size: fstat on the
// underlying descriptor, or the last recorded size for an anonymous
// mapping. Never faults; returns 0 once Close has run.
func (m *Mapping) GetSize() uint64 {
	if m == nil || m.closed {
		return 0
	}
	if m.anonymous {
		return m.size
	}
	var st unix.Stat_t
	if err := unix.Fstat(m.fd, &st); err != nil {
		return 0
	}
	return uint64(st.Size)
}

// SetSize ftruncates the backing descriptor to newSize. Live views are
// unaffected by this call alone (ViewsDownsizeable covers the
// view-layer half of a shrink).
func (m *Mapping) SetSize(newSize uint64) error {
	if m.closed {
		return vmerr.ErrClosed
	}
	if m.anonymous {
		m.size = newSize
		return nil
	}
	if err := unix.Ftruncate(m.fd, int64(newSize)); err != nil {
		return fmt.Errorf("mapping: ftruncate: %w", err)
	}
	m.size = newSize
	return nil
}

// Close releases the mapping's private descriptor. Anonymous mappings
// hold no descriptor and this is a no-op.
func (m *Mapping) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.anonymous {
		return nil
	}
	fd := m.fd
	m.fd = -1
	return unix.Close(fd)
}
