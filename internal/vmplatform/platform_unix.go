//go:build unix

package vmplatform

import "golang.org/x/sys/unix"

func queryPageSize() int {
	return unix.Getpagesize()
}

// On POSIX, the reserve granularity is the same as the commit
// granularity: mmap hands out page-aligned regions directly.
func queryReserveGranularity() int {
	return queryPageSize()
}
