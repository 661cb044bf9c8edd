//go:build windows

package vmplatform

import "golang.org/x/sys/windows"

// Handle wraps a Windows HANDLE. The zero value is invalid.
type Handle struct {
	h     windows.Handle
	valid bool
}

// Invalid is the sentinel invalid handle.
var Invalid = Handle{h: windows.InvalidHandle}

// FromWindowsHandle wraps an already-open Windows handle.
func FromWindowsHandle(h windows.Handle) Handle {
	if h == windows.InvalidHandle || h == 0 {
		return Invalid
	}
	return Handle{h: h, valid: true}
}

// Win returns the underlying windows.Handle, or windows.InvalidHandle.
func (h Handle) Win() windows.Handle {
	if !h.valid {
		return windows.InvalidHandle
	}
	return h.h
}

// Valid reports whether h refers to an open kernel object.
func (h Handle) Valid() bool { return h.valid }

// Close closes the underlying handle. Closing an invalid or
// already-closed handle is a no-op.
func (h *Handle) Close() error {
	if !h.valid {
		return nil
	}
	raw := h.h
	h.h = windows.InvalidHandle
	h.valid = false
	return windows.CloseHandle(raw)
}
