//go:build unix

package view

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/vmkit/internal/vmplatform"
	"github.com/joshuapare/vmkit/vm/flags"
	"github.com/joshuapare/vmkit/vm/mapping"
)

func fileBackedMapping(t *testing.T, size uint64) (*mapping.Mapping, *os.File) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	m, err := mapping.CreateMapping(f, flags.ReadWrite, flags.Shared, size)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m, f
}

// -----------------------------------------------------------------------------
// Map / Unmap
// -----------------------------------------------------------------------------.
func TestMap_FileBacked_ReflectsExistingContents(t *testing.T) {
	granule := uint64(vmplatform.ReserveGranularity())
	m, f := fileBackedMapping(t, granule)
	_, err := f.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)

	v, err := Map(m, 0, granule)
	require.NoError(t, err)
	defer v.Unmap()

	require.Equal(t, "hello", string(v.Bytes()[:5]))
	require.Equal(t, int(granule), v.Len())
}

func TestMap_RejectsMisalignedOffset(t *testing.T) {
	granule := uint64(vmplatform.ReserveGranularity())
	m, _ := fileBackedMapping(t, granule*2)

	_, err := Map(m, 1, granule)
	require.Error(t, err)
}

func TestMap_Anonymous_WritesAreVisible(t *testing.T) {
	m, err := mapping.CreateMapping(nil, flags.ReadWrite, flags.Shared, 4096)
	require.NoError(t, err)
	defer m.Close()

	v, err := Map(m, 0, 4096)
	require.NoError(t, err)
	defer v.Unmap()

	copy(v.Bytes(), []byte("abc"))
	require.Equal(t, byte('a'), v.Bytes()[0])
}

func TestView_Unmap_IsIdempotent(t *testing.T) {
	m, err := mapping.CreateMapping(nil, flags.ReadWrite, flags.Shared, 4096)
	require.NoError(t, err)
	defer m.Close()

	v, err := Map(m, 0, 4096)
	require.NoError(t, err)
	require.NoError(t, v.Unmap())
	require.NoError(t, v.Unmap())
}

// -----------------------------------------------------------------------------
// Expand / Shrink
// -----------------------------------------------------------------------------.
func TestView_Expand_GrowsAndPreservesPrefix(t *testing.T) {
	granule := uint64(vmplatform.ReserveGranularity())
	m, _ := fileBackedMapping(t, granule*4)

	v, err := Map(m, 0, granule)
	require.NoError(t, err)
	defer v.Unmap()

	copy(v.Bytes(), []byte("prefix"))
	require.NoError(t, v.Expand(granule * 3))
	require.Equal(t, int(granule*3), v.Len())
	require.Equal(t, "prefix", string(v.Bytes()[:6]))
}

func TestView_Shrink_TruncatesAndPreservesPrefix(t *testing.T) {
	granule := uint64(vmplatform.ReserveGranularity())
	m, _ := fileBackedMapping(t, granule*4)

	v, err := Map(m, 0, granule*4)
	require.NoError(t, err)
	defer v.Unmap()

	copy(v.Bytes(), []byte("keepme"))
	require.NoError(t, v.Shrink(granule))
	require.Equal(t, int(granule), v.Len())
	require.Equal(t, "keepme", string(v.Bytes()[:6]))
}

func TestView_Expand_NoOpWhenNotGrowing(t *testing.T) {
	granule := uint64(vmplatform.ReserveGranularity())
	m, _ := fileBackedMapping(t, granule*2)

	v, err := Map(m, 0, granule*2)
	require.NoError(t, err)
	defer v.Unmap()

	require.NoError(t, v.Expand(granule))
	require.Equal(t, int(granule*2), v.Len())
}
