// Package vmerr defines the sentinel error values that classify failures
// across the mapping, view, storage, and vector layers.
package vmerr

import "errors"

var (
	// ErrAlloc is wrapped around any allocation failure at the vector
	// layer (the Go stand-in for bad_alloc): an OS reservation refused,
	// or a mapping/view operation failed during a capacity change.
	ErrAlloc = errors.New("vmkit: allocation failed")

	// ErrOutOfRange is returned by Vector.At for an out-of-bounds index.
	ErrOutOfRange = errors.New("vmkit: index out of range")

	// ErrInvalidData is returned by MapFile when an existing storage's
	// on-disk header does not match the layout the caller requested.
	ErrInvalidData = errors.New("vmkit: corrupted or incompatible storage header")

	// ErrSectionNotExtended is returned when an anonymous Windows
	// mapping is grown past MAX_ANON_PF_SIZE.
	ErrSectionNotExtended = errors.New("vmkit: section not extended")

	// ErrClosed is returned by operations attempted on a closed
	// mapping, view, or storage.
	ErrClosed = errors.New("vmkit: use of closed object")

	// ErrUnsupported is returned for operations not available on the
	// current platform (e.g. shrinking a Windows view in place).
	ErrUnsupported = errors.New("vmkit: unsupported on this platform")
)
