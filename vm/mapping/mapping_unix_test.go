//go:build unix

package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/vmkit/vm/flags"
	"github.com/joshuapare/vmkit/vm/vmerr"
)

// -----------------------------------------------------------------------------
// Anonymous mappings
// -----------------------------------------------------------------------------.
func TestCreateMapping_AnonymousHasNoDescriptor(t *testing.T) {
	m, err := CreateMapping(nil, flags.ReadWrite, flags.Shared, 4096)
	require.NoError(t, err)
	require.True(t, m.Anonymous())
	require.Equal(t, -1, m.FD())
	require.Equal(t, uint64(4096), m.GetSize())
}

func TestMapping_SetSize_AnonymousJustUpdatesBookkeeping(t *testing.T) {
	m, err := CreateMapping(nil, flags.ReadWrite, flags.Shared, 4096)
	require.NoError(t, err)

	require.NoError(t, m.SetSize(8192))
	require.Equal(t, uint64(8192), m.GetSize())
}

func TestMapping_Close_AnonymousIsNoOpAndSizeReadsZero(t *testing.T) {
	m, err := CreateMapping(nil, flags.ReadWrite, flags.Shared, 4096)
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close()) // idempotent
	require.Equal(t, uint64(0), m.GetSize())
}

// -----------------------------------------------------------------------------
// File-backed mappings
// -----------------------------------------------------------------------------.
func TestCreateMapping_FileBacked_DupsAnIndependentDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o644))

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	m, err := CreateMapping(f, flags.ReadWrite, flags.Shared, 4096)
	require.NoError(t, err)
	require.False(t, m.Anonymous())
	require.NotEqual(t, int(f.Fd()), m.FD())
	require.Equal(t, uint64(4096), m.GetSize())

	// Closing the original file must not affect the dup'd mapping fd.
	require.NoError(t, f.Close())
	require.Equal(t, uint64(4096), m.GetSize())

	require.NoError(t, m.Close())
}

func TestMapping_SetSize_FileBackedTruncatesDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o644))

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	m, err := CreateMapping(f, flags.ReadWrite, flags.Shared, 4096)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.SetSize(1024))
	require.Equal(t, uint64(1024), m.GetSize())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(1024), info.Size())
}

func TestMapping_SetSize_AfterCloseFails(t *testing.T) {
	m, err := CreateMapping(nil, flags.ReadWrite, flags.Shared, 4096)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	require.ErrorIs(t, m.SetSize(10), vmerr.ErrClosed)
}
