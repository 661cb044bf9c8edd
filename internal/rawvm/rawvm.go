// Package rawvm implements the page-granular VM primitives that every
// higher vmkit layer (mapping, view, storage) is built from: reserve,
// commit, decommit, release, protect, and in-place/relocating expansion
// of anonymous regions. It unifies the POSIX mmap/mremap/mprotect family
// and the Windows VirtualAlloc/VirtualFree/VirtualProtect family behind
// one contract.
//
// No function here panics. Failure is reported as a non-nil error; the
// caller is never left with a dangling or partially-valid mapping.
package rawvm

import "unsafe"

// ProtectFlag selects the protection bits for Protect.
type ProtectFlag int

const (
	ProtectNone ProtectFlag = iota
	ProtectRead
	ProtectReadWrite
)

// AllocKind distinguishes a bare address-space reservation from a
// reservation that is also committed (backed by physical storage).
type AllocKind int

const (
	KindReserve AllocKind = iota
	KindCommit
)

// RelocPolicy controls whether Expand/ExpandBack/ExpandFront may move
// the region when an in-place grow is not possible.
type RelocPolicy int

const (
	// Fixed fails rather than relocate.
	Fixed RelocPolicy = iota
	// Moveable permits a moving remap (or reserve+copy+release on
	// Windows) when in-place growth is unavailable.
	Moveable
)

// ExpandMethod reports how an expansion was actually satisfied.
type ExpandMethod int

const (
	// BackExtended means the region grew at its end without moving.
	BackExtended ExpandMethod = iota
	// FrontExtended means the region grew at its start without moving.
	FrontExtended
	// Moved means the region now lives at a different address; the
	// caller may bitwise-relocate any trivially-movable payload.
	Moved
)

// Span is a contiguous byte range in the process address space.
type Span struct {
	Addr uintptr
	Len  int
}

// Empty reports whether the span carries no memory.
func (s Span) Empty() bool { return s.Len == 0 }

// Bytes views the span as a byte slice. The caller must not retain it
// past the span's lifetime (unmap/free/expand invalidate it).
func (s Span) Bytes() []byte {
	if s.Len == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(s.Addr)), s.Len)
}

// ExpandResult is the outcome of a successful ExpandBack/ExpandFront/
// Expand call. A zero-value NewSpan signals failure to the caller
// (callers should instead receive a non-nil error; ExpandResult is only
// meaningful alongside a nil error).
type ExpandResult struct {
	NewSpan Span
	Method  ExpandMethod
}

// FileBacking identifies the file descriptor, offset, and mmap
// protection/flags a relocating expansion should reuse for the fresh
// region. Pass nil when the span is anonymous. Platforms whose native
// relocation already preserves the original mapping's backing (Linux
// mremap) ignore it; platforms that relocate by allocate-copy-free
// (Darwin, the BSDs) use it to remap the same file instead of falling
// back to anonymous memory.
type FileBacking struct {
	FD     int
	Offset int64
	Prot   int
	Flags  int
}
