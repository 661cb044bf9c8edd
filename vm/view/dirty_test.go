package view

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/vmkit/vm/flags"
	"github.com/joshuapare/vmkit/vm/mapping"
)

func anonymousView(t *testing.T, size uint64) *View {
	t.Helper()
	m, err := mapping.CreateMapping(nil, flags.ReadWrite, flags.Shared, size)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	v, err := Map(m, 0, size)
	require.NoError(t, err)
	t.Cleanup(func() { v.Unmap() })
	return v
}

// -----------------------------------------------------------------------------
// coalesce: page alignment and merging
// -----------------------------------------------------------------------------.
func TestDirtyTracker_Coalesce_PageAligns(t *testing.T) {
	v := anonymousView(t, 8192)
	tr := NewDirtyTracker(v, 4096)

	tr.Add(100, 200) // [100, 300) rounds to [0, 4096)

	coalesced := tr.DebugCoalescedRanges()
	require.Len(t, coalesced, 1)
	require.Equal(t, Range{Off: 0, Len: 4096}, coalesced[0])
}

func TestDirtyTracker_Coalesce_MergesAdjacentPages(t *testing.T) {
	v := anonymousView(t, 8192)
	tr := NewDirtyTracker(v, 4096)

	tr.Add(0, 10)
	tr.Add(4096, 10) // adjacent page, should merge into one span

	coalesced := tr.DebugCoalescedRanges()
	require.Len(t, coalesced, 1)
	require.Equal(t, Range{Off: 0, Len: 8192}, coalesced[0])
}

func TestDirtyTracker_Coalesce_KeepsDisjointRangesSeparate(t *testing.T) {
	v := anonymousView(t, 3*4096)
	tr := NewDirtyTracker(v, 4096)

	tr.Add(0, 10)
	tr.Add(2*4096, 10)

	coalesced := tr.DebugCoalescedRanges()
	require.Len(t, coalesced, 2)
}

func TestDirtyTracker_Reset_DiscardsRanges(t *testing.T) {
	v := anonymousView(t, 4096)
	tr := NewDirtyTracker(v, 4096)

	tr.Add(0, 10)
	require.Len(t, tr.DebugRanges(), 1)

	tr.Reset()
	require.Empty(t, tr.DebugRanges())
}

// -----------------------------------------------------------------------------
// FlushDataOnly / FlushHeaderAndMeta
// -----------------------------------------------------------------------------.
func TestDirtyTracker_FlushDataOnly_ClearsRangesOnSuccess(t *testing.T) {
	v := anonymousView(t, 4096)
	tr := NewDirtyTracker(v, 4096)

	tr.Add(0, 100)
	require.NoError(t, tr.FlushDataOnly())
	require.Empty(t, tr.DebugRanges())
}

func TestDirtyTracker_FlushDataOnly_NoOpWhenClean(t *testing.T) {
	v := anonymousView(t, 4096)
	tr := NewDirtyTracker(v, 4096)

	require.NoError(t, tr.FlushDataOnly())
}

func TestDirtyTracker_FlushHeaderAndMeta_ClampsToViewLength(t *testing.T) {
	v := anonymousView(t, 100) // shorter than one page
	tr := NewDirtyTracker(v, 4096)

	require.NoError(t, tr.FlushHeaderAndMeta(FlushDataOnly))
}
