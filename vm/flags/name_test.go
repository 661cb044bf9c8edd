package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeName_NullTerminatedUTF16LE(t *testing.T) {
	units, err := EncodeName("ab")
	require.NoError(t, err)
	require.Equal(t, []uint16{'a', 'b', 0}, units)
}

func TestEncodeName_EmptyNameIsJustTheTerminator(t *testing.T) {
	units, err := EncodeName("")
	require.NoError(t, err)
	require.Equal(t, []uint16{0}, units)
}

func TestEncodeName_NonASCIIRoundTripsAsSurrogatePairOrBMPCodepoint(t *testing.T) {
	units, err := EncodeName("héllo")
	require.NoError(t, err)
	require.Equal(t, uint16(0), units[len(units)-1])
	require.Equal(t, 'h', rune(units[0]))
}
