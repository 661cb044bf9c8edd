package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// SystemHints bitset
// -----------------------------------------------------------------------------.
func TestSystemHints_AreDistinctSingleBits(t *testing.T) {
	require.Equal(t, SystemHints(0), HintNone)
	require.Equal(t, SystemHints(1), HintSequential)
	require.Equal(t, SystemHints(2), HintRandom)
	require.Equal(t, SystemHints(4), HintWillNeed)
}

func TestSystemHints_Combine(t *testing.T) {
	combined := HintSequential | HintWillNeed
	require.True(t, combined&HintSequential != 0)
	require.True(t, combined&HintWillNeed != 0)
	require.False(t, combined&HintRandom != 0)
}

// -----------------------------------------------------------------------------
// ConstructionPolicy ordering
// -----------------------------------------------------------------------------.
func TestConstructionPolicy_FiveDistinctValues(t *testing.T) {
	policies := []ConstructionPolicy{
		CreateNew,
		CreateNewOrTruncateExisting,
		OpenExisting,
		OpenOrCreate,
		OpenAndTruncateExisting,
	}
	seen := make(map[ConstructionPolicy]bool)
	for _, p := range policies {
		require.False(t, seen[p], "policy %d repeated", p)
		seen[p] = true
	}
	require.Len(t, seen, 5)
}
