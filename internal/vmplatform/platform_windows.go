//go:build windows

package vmplatform

import "golang.org/x/sys/windows"

func queryPageSize() int {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	if info.PageSize == 0 {
		return 4096
	}
	return int(info.PageSize)
}

// Windows reserves address space in 64 KiB chunks (the "allocation
// granularity"), independent of the 4 KiB page size used for commit.
func queryReserveGranularity() int {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	if info.AllocationGranularity == 0 {
		return 65536
	}
	return int(info.AllocationGranularity)
}
