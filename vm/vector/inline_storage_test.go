package vector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInlineStorage_GrowToBytes_WithinCapacitySucceeds(t *testing.T) {
	s := NewInlineStorage(64)
	require.NoError(t, s.GrowToBytes(64))
	require.Equal(t, 64, s.CapacityBytes())
}

func TestInlineStorage_GrowToBytes_BeyondCapacityFails(t *testing.T) {
	s := NewInlineStorage(16)
	require.Error(t, s.GrowToBytes(17))
}

func TestInlineStorage_ReserveBytes_BeyondCapacityFails(t *testing.T) {
	s := NewInlineStorage(16)
	require.Error(t, s.ReserveBytes(17))
}

func TestInlineStorage_ShrinkToBytes_IsAlwaysANoOp(t *testing.T) {
	s := NewInlineStorage(16)
	require.NoError(t, s.ShrinkToBytes(0))
	require.Equal(t, 16, s.CapacityBytes())
}
