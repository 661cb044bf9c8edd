//go:build windows

package view

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// flushRange flushes a single coalesced range via FlushViewOfFile.
// FlushViewOfFile blocks until the flush completes regardless of
// caller intent (Windows has no async-msync equivalent), so blocking
// is accepted only for signature parity with the POSIX backends.
func (v *View) flushRange(r Range, _ bool) error {
	if v.data == nil {
		return nil
	}
	start := int(r.Off)
	end := int(r.Off + r.Len)
	if end > len(v.data) {
		end = len(v.data)
	}
	if start >= end {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&v.data[start]))
	return windows.FlushViewOfFile(addr, uintptr(end-start))
}

// syncFile calls FlushFileBuffers on the backing file to guarantee
// durability past the OS view cache. fullfsync is unused: Windows has
// no equivalent distinction.
func (v *View) syncFile(_ bool) error {
	fh := v.mapping.FileHandle()
	if fh == windows.InvalidHandle {
		return nil
	}
	return windows.FlushFileBuffers(fh)
}
