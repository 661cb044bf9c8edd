package vector

import "github.com/joshuapare/vmkit/vm/storage"

// VMStorage adapts a vm/storage.Storage (mapping + view + header) to
// the byte-level Storage contract Vector expects, giving vm_vector its
// persistence and its flush surface.
type VMStorage struct {
	s *storage.Storage
}

// NewVMStorage wraps an already-mapped vm/storage.Storage.
func NewVMStorage(s *storage.Storage) *VMStorage { return &VMStorage{s: s} }

func (v *VMStorage) Data() []byte { return v.s.Data() }

func (v *VMStorage) CapacityBytes() int { return int(v.s.VMCapacity()) }

func (v *VMStorage) ReserveBytes(n int) error { return v.s.Reserve(uint64(n)) }

func (v *VMStorage) GrowToBytes(n int) error { return v.s.GrowTo(uint64(n)) }

func (v *VMStorage) ShrinkToBytes(n int) error { return v.s.ShrinkTo(uint64(n)) }

func (v *VMStorage) ShrinkToFit() error { return v.s.ShrinkToFit() }

func (v *VMStorage) HeaderBytes() []byte { return v.s.UserHeader() }

func (v *VMStorage) Close() error { return v.s.Close() }

// Underlying exposes the wrapped mapped storage, for FlushAsync /
// FlushBlocking via its View(), and for MapFile/MapMemory-specific
// bookkeeping a higher-level container may need.
func (v *VMStorage) Underlying() *storage.Storage { return v.s }
