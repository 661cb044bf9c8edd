//go:build linux

// Package vmguard provides a narrow, signal-guarded region-read utility:
// it pre-faults a mapped byte range and reports an error instead of
// letting an inaccessible page raise SIGBUS, so a single bad mapping
// doesn't crash the whole process.
package vmguard

import (
	"fmt"
	"runtime/debug"
	"syscall"
	"unsafe"
)

// MADV_POPULATE_READ is available since Linux 5.14. It pre-faults pages
// and returns EFAULT instead of generating SIGBUS.
const madvPopulateRead = 22

// Touch pre-faults every page backing data, returning an error instead
// of letting an inaccessible page raise SIGBUS.
//
// It tries MADV_POPULATE_READ first (Linux 5.14+, returns EFAULT rather
// than faulting); if the kernel doesn't support it, it falls back to a
// manual read-through with debug.SetPanicOnFault so the fault surfaces
// as a recoverable panic instead of crashing the process.
func Touch(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := tryMadvisePopulate(data); err == nil {
		return nil
	} else if err != syscall.EINVAL && err != syscall.ENOSYS {
		return fmt.Errorf("vmguard: region contains inaccessible pages: %w", err)
	}
	return manualTouch(data)
}

func tryMadvisePopulate(data []byte) error {
	ptr := unsafe.Pointer(&data[0])
	_, _, errno := syscall.Syscall(syscall.SYS_MADVISE, uintptr(ptr), uintptr(len(data)), uintptr(madvPopulateRead))
	if errno != 0 {
		return errno
	}
	return nil
}

func manualTouch(data []byte) (retErr error) {
	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)

	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				retErr = fmt.Errorf("vmguard: fault touching mapped region: %w", err)
			} else {
				retErr = fmt.Errorf("vmguard: fault touching mapped region: %v", r)
			}
		}
	}()

	const pageSize = 4096
	var sink byte
	for i := 0; i < len(data); i += pageSize {
		sink ^= data[i]
	}
	sink ^= data[len(data)-1]
	_ = sink
	return nil
}
