package vector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/vmkit/vm/storage"
)

func TestVMStorage_WrapsUnderlyingMappedStorage(t *testing.T) {
	underlying, err := storage.MapMemory(0, storage.HeaderInfo{UserHeaderSize: 8})
	require.NoError(t, err)

	vs := NewVMStorage(underlying)
	defer vs.Close()

	require.NoError(t, vs.GrowToBytes(64))
	copy(vs.Data(), []byte("hello"))
	require.Equal(t, "hello", string(vs.Data()[:5]))
	require.Len(t, vs.HeaderBytes(), 8)
	require.Same(t, underlying, vs.Underlying())
}

func TestVMStorage_ShrinkToFit_DelegatesToMappedStorage(t *testing.T) {
	underlying, err := storage.MapMemory(0, storage.HeaderInfo{})
	require.NoError(t, err)

	vs := NewVMStorage(underlying)
	defer vs.Close()

	require.NoError(t, vs.GrowToBytes(4096))
	require.NoError(t, vs.ShrinkToBytes(1))
	require.NoError(t, vs.ShrinkToFit())
	require.Equal(t, 1, vs.CapacityBytes())
}
