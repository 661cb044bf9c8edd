//go:build linux || freebsd

package view

import "golang.org/x/sys/unix"

// flushRange msyncs a single coalesced range, synchronously
// (MS_SYNC) when blocking is true and otherwise as a queued
// writeback (MS_ASYNC). Linux and FreeBSD accept a sub-slice address
// directly; unlike Darwin, there is no requirement that the address
// match the original mmap base.
func (v *View) flushRange(r Range, blocking bool) error {
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
	flags := unix.MS_ASYNC
	if blocking {
		flags = unix.MS_SYNC
	}
	return unix.Msync(v.data[start:end], flags)
}

// syncFile fdatasyncs the backing descriptor. fullfsync is unused on
// Linux/FreeBSD: fdatasync already provides sufficient guarantees.
func (v *View) syncFile(_ bool) error {
	return unix.Fdatasync(v.mapping.FD())
}
