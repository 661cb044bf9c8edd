package storage

import "github.com/joshuapare/vmkit/internal/buf"

// sizesHeaderSize is the on-disk size of the packed header: a 4-byte
// data offset, a 4-byte (24-bit size, 8-bit offset) pair, and an
// 8-byte data size.
const sizesHeaderSize = 16

// HeaderInfo parameterizes a storage's header layout: the client's
// own header payload size and alignment, a data-region alignment
// hint, and whether re-opening an existing storage may tolerate a
// stored layout that is a prefix of the one requested.
type HeaderInfo struct {
	UserHeaderSize      uint32
	UserHeaderAlignment uint32
	DataAlignment       uint32
	Extendable          bool
}

// layout is the resolved placement of an instance's header and data
// region, computed from a HeaderInfo by unpack.
type layout struct {
	dataOffset   uint64
	hdrOffset    uint32
	hdrSize      uint32
	totalHdrSize uint64
}

// unpack computes the base/client/total header sizes and the
// resulting data offset and hdr_offset/hdr_size pair for a layout.
func unpack(info HeaderInfo) layout {
	userAlign := info.UserHeaderAlignment
	if userAlign == 0 {
		userAlign = 1
	}
	dataAlign := info.DataAlignment
	if dataAlign == 0 {
		dataAlign = 1
	}

	baseHdrSize := alignUp32(sizesHeaderSize, userAlign)
	clientHdrSize := alignUp32(info.UserHeaderSize, userAlign)
	totalHdrSize := alignUp32(baseHdrSize+clientHdrSize, dataAlign)

	return layout{
		dataOffset:   uint64(totalHdrSize),
		hdrOffset:    baseHdrSize,
		hdrSize:      totalHdrSize - baseHdrSize,
		totalHdrSize: uint64(totalHdrSize),
	}
}

func alignUp32(n, granularity uint32) uint32 {
	if granularity <= 1 {
		return n
	}
	if r := n % granularity; r != 0 {
		return n + (granularity - r)
	}
	return n
}

// sizesHeader is the packed record written at the start of every
// storage's backing region.
type sizesHeader struct {
	dataOffset uint32
	hdrSize    uint32 // low 24 bits
	hdrOffset  uint32 // low 8 bits, stored in the top byte alongside hdrSize
	dataSize   uint64
}

func readSizesHeader(data []byte) (sizesHeader, bool) {
	if !buf.Has(data, 0, sizesHeaderSize) {
		return sizesHeader{}, false
	}
	dataOffset := buf.U32LE(data[0:4])
	packed := buf.U32LE(data[4:8])
	dataSize := buf.U64LE(data[8:16])
	return sizesHeader{
		dataOffset: dataOffset,
		hdrSize:    packed & 0x00ffffff,
		hdrOffset:  packed >> 24,
		dataSize:   dataSize,
	}, true
}

func writeSizesHeader(data []byte, h sizesHeader) {
	buf.PutU32LE(data[0:4], h.dataOffset)
	packed := (h.hdrSize & 0x00ffffff) | (h.hdrOffset&0xff)<<24
	buf.PutU32LE(data[4:8], packed)
	buf.PutU64LE(data[8:16], h.dataSize)
}

// matches reports whether a stored header is compatible with the
// requested layout: an exact match, or, when extendable is set, a
// stored layout whose offsets are smaller-or-equal to the requested
// ones (the file was written with a shorter header and the caller is
// willing to treat that as valid).
func (h sizesHeader) matches(l layout, extendable bool) bool {
	if h.dataOffset == uint32(l.dataOffset) && h.hdrOffset == l.hdrOffset && h.hdrSize == l.hdrSize {
		return true
	}
	if !extendable {
		return false
	}
	return h.dataOffset <= uint32(l.dataOffset) && h.hdrOffset <= l.hdrOffset && h.hdrSize <= l.hdrSize
}
