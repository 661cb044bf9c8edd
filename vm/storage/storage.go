// Package storage implements mapped storage: a single object owning a
// vm/mapping.Mapping + vm/view.View pair that serves a container a
// stable, header-prefixed data region with geometric growth and
// page-touch-avoiding shrink.
package storage

import (
	"fmt"
	"os"

	"github.com/joshuapare/vmkit/internal/buf"
	"github.com/joshuapare/vmkit/internal/vmplatform"
	"github.com/joshuapare/vmkit/vm/flags"
	"github.com/joshuapare/vmkit/vm/mapping"
	"github.com/joshuapare/vmkit/vm/view"
	"github.com/joshuapare/vmkit/vm/vmerr"
)

// Storage is a mapped, header-prefixed, geometrically-growing region.
type Storage struct {
	file    *os.File
	mapping *mapping.Mapping
	view    *view.View
	layout  layout
	header  sizesHeader
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isCreatingPolicy(policy flags.ConstructionPolicy, preexisted bool) bool {
	switch policy {
	case flags.CreateNew, flags.CreateNewOrTruncateExisting, flags.OpenAndTruncateExisting:
		return true
	case flags.OpenOrCreate:
		return !preexisted
	default: // OpenExisting
		return false
	}
}

// MapFile opens or creates path per policy and maps a header-prefixed
// storage over it.
func MapFile(path string, policy flags.ConstructionPolicy, info HeaderInfo) (*Storage, error) {
	l := unpack(info)
	preexisted := fileExists(path)

	f, err := mapping.CreateFile(path, policy, flags.ReadWrite)
	if err != nil {
		return nil, fmt.Errorf("storage: map file: %w", err)
	}

	created := isCreatingPolicy(policy, preexisted)

	if created {
		if err := f.Truncate(int64(l.totalHdrSize)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("storage: truncate new file: %w", err)
		}
		s, err := mapInitial(f, l, l.totalHdrSize)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		writeSizesHeader(s.view.Bytes(), sizesHeader{
			dataOffset: uint32(l.dataOffset),
			hdrOffset:  l.hdrOffset,
			hdrSize:    l.hdrSize,
			dataSize:   0,
		})
		s.header, _ = readSizesHeader(s.view.Bytes())
		return s, nil
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("storage: stat existing file: %w", err)
	}
	fileSize := uint64(st.Size())
	if fileSize < l.totalHdrSize {
		_ = f.Close()
		return nil, fmt.Errorf("storage: %w: file smaller than header layout", vmerr.ErrInvalidData)
	}

	s, err := mapInitial(f, l, fileSize)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	hdr, ok := readSizesHeader(s.view.Bytes())
	if !ok || !hdr.matches(l, info.Extendable) {
		_ = s.Close()
		return nil, fmt.Errorf("storage: %w: header does not match requested layout", vmerr.ErrInvalidData)
	}
	s.header = hdr
	return s, nil
}

func mapInitial(f *os.File, l layout, mapSize uint64) (*Storage, error) {
	m, err := mapping.CreateMapping(f, flags.ReadWrite, flags.Shared, mapSize)
	if err != nil {
		return nil, fmt.Errorf("storage: create mapping: %w", err)
	}
	v, err := view.Map(m, 0, mapSize)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("storage: map view: %w", err)
	}
	return &Storage{file: f, mapping: m, view: v, layout: l}, nil
}

// MapMemory creates an anonymous storage of totalHdrSize+dataSize
// bytes, writes the header, and sets the logical size to dataSize.
func MapMemory(dataSize uint64, info HeaderInfo) (*Storage, error) {
	l := unpack(info)
	total := l.totalHdrSize + dataSize

	m, err := mapping.CreateMapping(nil, flags.ReadWrite, flags.Shared, total)
	if err != nil {
		return nil, fmt.Errorf("storage: create anonymous mapping: %w", err)
	}
	v, err := view.Map(m, 0, total)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("storage: map anonymous view: %w", err)
	}
	hdr := sizesHeader{
		dataOffset: uint32(l.dataOffset),
		hdrOffset:  l.hdrOffset,
		hdrSize:    l.hdrSize,
		dataSize:   dataSize,
	}
	writeSizesHeader(v.Bytes(), hdr)
	return &Storage{mapping: m, view: v, layout: l, header: hdr}, nil
}

// Data returns the logical data region, [0, Size()). end is clamped
// down to the mapped length rather than failing outright: a view that
// hasn't caught up with a just-written header (briefly true mid-GrowTo)
// should read as short, not invalid.
func (s *Storage) Data() []byte {
	b := s.view.Bytes()
	off := int(s.layout.dataOffset)
	if off > len(b) {
		return nil
	}
	end, ok := buf.AddOverflowSafe(off, int(s.header.dataSize))
	if !ok || end > len(b) {
		end = len(b)
	}
	return b[off:end]
}

// UserHeader returns the client's own header bytes, distinct from the
// packed sizesHeader that precedes them.
func (s *Storage) UserHeader() []byte {
	b, ok := buf.Slice(s.view.Bytes(), int(s.layout.hdrOffset), int(s.layout.hdrSize))
	if !ok {
		return nil
	}
	return b
}

// StorageSize is the mapping's current backing size (file size).
func (s *Storage) StorageSize() uint64 { return s.mapping.GetSize() }

// MappedSize is the view's current length.
func (s *Storage) MappedSize() uint64 { return uint64(s.view.Len()) }

// FSCapacity is the data bytes available without extending the mapping.
func (s *Storage) FSCapacity() uint64 {
	sz := s.StorageSize()
	if sz < s.layout.dataOffset {
		return 0
	}
	return sz - s.layout.dataOffset
}

// VMCapacity is the data bytes available without remapping.
func (s *Storage) VMCapacity() uint64 {
	sz := s.MappedSize()
	if sz < s.layout.dataOffset {
		return 0
	}
	return sz - s.layout.dataOffset
}

// Size is the logical number of data bytes in use.
func (s *Storage) Size() uint64 { return s.header.dataSize }

// Reserve extends the backing mapping to fit n_bytes of data if
// needed, leaving the view unchanged.
func (s *Storage) Reserve(nBytes uint64) error {
	target := s.layout.dataOffset + nBytes
	if target <= s.StorageSize() {
		return nil
	}
	if err := s.mapping.SetSize(target); err != nil {
		return fmt.Errorf("storage: reserve: %w", err)
	}
	return nil
}

// GrowTo extends the storage so at least target data bytes are both
// backed and mapped, growing the backing mapping geometrically
// (max(target, capacity*3/2)) to amortize the cost of SetSize (and
// the optional Windows section recreation) across repeated appends.
func (s *Storage) GrowTo(target uint64) error {
	if target <= s.VMCapacity() {
		s.header.dataSize = target
		writeSizesHeader(s.view.Bytes(), s.header)
		return nil
	}

	need := s.layout.dataOffset + target
	capNow := s.StorageSize()
	if need > capNow {
		newCap := need
		if geometric := capNow + capNow/2; geometric > newCap {
			newCap = geometric
		}
		if err := s.mapping.SetSize(newCap); err != nil {
			return fmt.Errorf("storage: grow: extend mapping: %w", err)
		}
	}

	if err := s.view.Expand(need); err != nil {
		return fmt.Errorf("storage: grow: expand view: %w", err)
	}

	s.header.dataSize = target
	writeSizesHeader(s.view.Bytes(), s.header)
	return nil
}

// ShrinkTo reduces the logical size to target, taking the fast path
// that avoids touching pages whenever target and the current size
// round down to the same commit-granularity boundary.
func (s *Storage) ShrinkTo(target uint64) error {
	current := s.header.dataSize
	if target == current {
		return nil
	}
	commit := vmplatform.CommitGranularity()
	if vmplatform.AlignDown(int(current), commit) == vmplatform.AlignDown(int(target), commit) {
		s.header.dataSize = target
		writeSizesHeader(s.view.Bytes(), s.header)
		return nil
	}

	need := s.layout.dataOffset + target
	if err := s.view.Shrink(need); err != nil {
		return fmt.Errorf("storage: shrink: view: %w", err)
	}
	if err := s.mapping.SetSize(need); err != nil {
		return fmt.Errorf("storage: shrink: mapping: %w", err)
	}

	s.header.dataSize = target
	writeSizesHeader(s.view.Bytes(), s.header)
	return nil
}

// Resize dispatches to GrowTo or ShrinkTo based on the requested
// target relative to the current size.
func (s *Storage) Resize(target uint64) error {
	if target > s.header.dataSize {
		return s.GrowTo(target)
	}
	return s.ShrinkTo(target)
}

// ShrinkToFit reduces the mapping's backing size to exactly the
// current logical size, releasing any geometric growth headroom.
func (s *Storage) ShrinkToFit() error {
	need := s.layout.dataOffset + s.header.dataSize
	if err := s.view.Shrink(need); err != nil {
		return fmt.Errorf("storage: shrink to fit: view: %w", err)
	}
	if err := s.mapping.SetSize(need); err != nil {
		return fmt.Errorf("storage: shrink to fit: mapping: %w", err)
	}
	return nil
}

// View exposes the underlying view for a vm/view.DirtyTracker.
func (s *Storage) View() *view.View { return s.view }

// Close unmaps the view, closes the mapping, and closes the backing
// file if one was opened by MapFile.
func (s *Storage) Close() error {
	var firstErr error
	if err := s.view.Unmap(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.mapping.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
