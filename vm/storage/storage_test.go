package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/vmkit/internal/vmplatform"
	"github.com/joshuapare/vmkit/vm/flags"
	"github.com/joshuapare/vmkit/vm/vmerr"
)

// -----------------------------------------------------------------------------
// MapFile: creation dispositions
// -----------------------------------------------------------------------------.
func TestMapFile_CreateNew_StartsEmptyWithHeaderWritten(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.bin")

	s, err := MapFile(path, flags.CreateNew, HeaderInfo{UserHeaderSize: 16})
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, uint64(0), s.Size())
	require.Len(t, s.UserHeader(), 16)
}

func TestMapFile_OpenExisting_FailsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.bin")

	_, err := MapFile(path, flags.OpenExisting, HeaderInfo{})
	require.Error(t, err)
}

func TestMapFile_OpenExisting_RejectsIncompatibleHeaderLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.bin")

	s, err := MapFile(path, flags.CreateNew, HeaderInfo{UserHeaderSize: 16})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = MapFile(path, flags.OpenExisting, HeaderInfo{UserHeaderSize: 64})
	require.ErrorIs(t, err, vmerr.ErrInvalidData)
}

func TestMapFile_OpenExisting_AcceptsSmallerStoredHeaderWhenExtendable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.bin")

	s, err := MapFile(path, flags.CreateNew, HeaderInfo{UserHeaderSize: 16})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := MapFile(path, flags.OpenExisting, HeaderInfo{UserHeaderSize: 64, Extendable: true})
	require.NoError(t, err)
	defer s2.Close()
}

func TestMapFile_OpenExisting_RoundTripsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.bin")

	s, err := MapFile(path, flags.CreateNew, HeaderInfo{})
	require.NoError(t, err)
	require.NoError(t, s.GrowTo(16))
	copy(s.Data(), []byte("persisted"))
	require.NoError(t, s.Close())

	s2, err := MapFile(path, flags.OpenExisting, HeaderInfo{})
	require.NoError(t, err)
	defer s2.Close()

	require.Equal(t, uint64(16), s2.Size())
	require.Equal(t, "persisted", string(s2.Data()[:9]))
}

// -----------------------------------------------------------------------------
// MapMemory
// -----------------------------------------------------------------------------.
func TestMapMemory_StartsAtRequestedSize(t *testing.T) {
	s, err := MapMemory(128, HeaderInfo{UserHeaderSize: 8})
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, uint64(128), s.Size())
	require.Len(t, s.Data(), 128)
	require.Len(t, s.UserHeader(), 8)
}

// -----------------------------------------------------------------------------
// GrowTo / ShrinkTo / Resize
// -----------------------------------------------------------------------------.
func TestStorage_GrowTo_ExtendsAndPreservesData(t *testing.T) {
	s, err := MapMemory(0, HeaderInfo{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.GrowTo(16))
	copy(s.Data(), []byte("0123456789abcdef"))
	require.NoError(t, s.GrowTo(4096))

	require.Equal(t, uint64(4096), s.Size())
	require.Equal(t, "0123456789abcdef", string(s.Data()[:16]))
}

func TestStorage_GrowTo_GrowsGeometricallyBeyondTarget(t *testing.T) {
	s, err := MapMemory(0, HeaderInfo{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.GrowTo(100))
	require.NoError(t, s.GrowTo(101)) // past VMCapacity(), forces another SetSize

	// the mapping should have grown by more than the single requested byte.
	require.Greater(t, s.StorageSize(), s.layout.dataOffset+101)
}

func TestStorage_ShrinkTo_NoOpWhenSameSize(t *testing.T) {
	s, err := MapMemory(64, HeaderInfo{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ShrinkTo(64))
	require.Equal(t, uint64(64), s.Size())
}

func TestStorage_ShrinkTo_CrossingCommitBoundaryActuallyShrinksMapping(t *testing.T) {
	granule := uint64(vmplatform.CommitGranularity())
	s, err := MapMemory(granule*3, HeaderInfo{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ShrinkTo(1))
	require.Equal(t, uint64(1), s.Size())
	require.Equal(t, s.layout.dataOffset+1, s.MappedSize())
}

func TestStorage_Resize_DispatchesGrowAndShrink(t *testing.T) {
	s, err := MapMemory(0, HeaderInfo{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Resize(100))
	require.Equal(t, uint64(100), s.Size())

	require.NoError(t, s.Resize(10))
	require.Equal(t, uint64(10), s.Size())
}

func TestStorage_ShrinkToFit_ReleasesGeometricHeadroom(t *testing.T) {
	s, err := MapMemory(0, HeaderInfo{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.GrowTo(1))
	grown := s.StorageSize()
	require.Greater(t, grown, s.layout.dataOffset+1)

	require.NoError(t, s.ShrinkToFit())
	require.Equal(t, s.layout.dataOffset+1, s.StorageSize())
}

func TestStorage_Reserve_DoesNotChangeLogicalSize(t *testing.T) {
	s, err := MapMemory(0, HeaderInfo{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Reserve(4096))
	require.Equal(t, uint64(0), s.Size())
	require.GreaterOrEqual(t, s.StorageSize(), s.layout.dataOffset+4096)
}

// -----------------------------------------------------------------------------
// Close
// -----------------------------------------------------------------------------.
func TestStorage_Close_ClosesBackingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.bin")

	s, err := MapFile(path, flags.CreateNew, HeaderInfo{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// file should still exist on disk after Close.
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}
