//go:build darwin

package view

import "golang.org/x/sys/unix"

// flushRange syncs the entire view rather than the requested range:
// Darwin's msync requires the passed address to equal the original
// mmap address, which a sub-slice's base pointer generally does not.
// The kernel only writes pages that are actually dirty, so this costs
// nothing beyond the syscall itself. blocking selects MS_SYNC over a
// queued MS_ASYNC writeback.
func (v *View) flushRange(_ Range, blocking bool) error {
	if v.data == nil {
		return nil
	}
	flags := unix.MS_ASYNC
	if blocking {
		flags = unix.MS_SYNC
	}
	return unix.Msync(v.data, flags)
}

// syncFile fsyncs the backing descriptor; fullfsync requests
// F_FULLFSYNC, which forces data to the physical disk rather than the
// drive's write cache.
func (v *View) syncFile(fullfsync bool) error {
	fd := v.mapping.FD()
	if fullfsync {
		_, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
		return err
	}
	return unix.Fsync(fd)
}
