package vector

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func alignTestAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// -----------------------------------------------------------------------------
// growth / capacity
// -----------------------------------------------------------------------------.
func TestHeapStorage_GrowToBytes_PreservesExistingContents(t *testing.T) {
	h := NewHeapStorage(1)
	require.NoError(t, h.GrowToBytes(8))
	copy(h.Data(), []byte("12345678"))

	require.NoError(t, h.GrowToBytes(64))
	require.Equal(t, "12345678", string(h.Data()[:8]))
	require.GreaterOrEqual(t, h.CapacityBytes(), 64)
}

func TestHeapStorage_GrowToBytes_GrowsGeometrically(t *testing.T) {
	h := NewHeapStorage(1)
	require.NoError(t, h.GrowToBytes(100))
	require.NoError(t, h.GrowToBytes(101))
	require.Greater(t, h.CapacityBytes(), 101)
}

func TestHeapStorage_GrowToBytes_NoOpWhenAlreadyLargeEnough(t *testing.T) {
	h := NewHeapStorage(1)
	require.NoError(t, h.GrowToBytes(64))
	cap1 := h.CapacityBytes()
	require.NoError(t, h.GrowToBytes(10))
	require.Equal(t, cap1, h.CapacityBytes())
}

// -----------------------------------------------------------------------------
// shrink
// -----------------------------------------------------------------------------.
func TestHeapStorage_ShrinkToBytes_TruncatesWithoutRealloc(t *testing.T) {
	h := NewHeapStorage(1)
	require.NoError(t, h.GrowToBytes(64))
	copy(h.Data(), []byte("abcdefgh"))

	require.NoError(t, h.ShrinkToBytes(4))
	require.Equal(t, "abcd", string(h.Data()[:4]))
}

func TestHeapStorage_ShrinkToFit_ReleasesHeadroom(t *testing.T) {
	h := NewHeapStorage(1)
	require.NoError(t, h.GrowToBytes(64))
	require.NoError(t, h.ShrinkToBytes(4))
	require.NoError(t, h.ShrinkToFit())
	require.Equal(t, 4, h.CapacityBytes())
}

// -----------------------------------------------------------------------------
// alignment
// -----------------------------------------------------------------------------.
func TestHeapStorage_Alignment_DataStartsOnBoundary(t *testing.T) {
	h := NewHeapStorage(64)
	require.NoError(t, h.GrowToBytes(128))

	addr := alignTestAddr(h.Data())
	require.Zero(t, addr%64)
}
