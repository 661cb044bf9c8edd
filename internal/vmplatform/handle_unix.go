//go:build unix

package vmplatform

import "golang.org/x/sys/unix"

// Handle wraps a POSIX file descriptor. The zero value is invalid.
type Handle struct {
	fd    int
	valid bool
}

// Invalid is the sentinel invalid handle.
var Invalid = Handle{fd: -1}

// FromFD wraps an already-open file descriptor.
func FromFD(fd int) Handle {
	if fd < 0 {
		return Invalid
	}
	return Handle{fd: fd, valid: true}
}

// FD returns the underlying file descriptor, or -1 if invalid.
func (h Handle) FD() int {
	if !h.valid {
		return -1
	}
	return h.fd
}

// Valid reports whether h refers to an open descriptor.
func (h Handle) Valid() bool { return h.valid }

// Close closes the underlying descriptor. Closing an invalid or
// already-closed handle is a no-op.
func (h *Handle) Close() error {
	if !h.valid {
		return nil
	}
	fd := h.fd
	h.fd = -1
	h.valid = false
	return unix.Close(fd)
}
