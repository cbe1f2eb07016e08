package versions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLastSnapNoDittoInclusiveWithoutOmitDittoIsEmptyOnDitto exercises
// NoDittoInclusive/Without directly against a NewMap that never called
// OmitDitto: when the trailing snapshot is a ditto of live, both modes must
// report nothing for that path, not fall back to the live record. The
// live-record fallback is scoped to the no-snapshots-at-all case only.
func TestLastSnapNoDittoInclusiveWithoutOmitDittoIsEmptyOnDitto(t *testing.T) {
	_, inv := buildFixture(t)
	liveDir := inv.MapOfDatasets[firstKey(inv)].Mountpoint
	target := filepath.Join(liveDir, "file.txt")

	m, err := NewMap(context.Background(), logrus.StandardLogger(), []string{target}, inv, paths.All)
	require.NoError(t, err)

	e, ok := m.Entry(target)
	require.True(t, ok)
	require.Len(t, e.Snaps, 2, "ditto snapshot must still be present -- OmitDitto was never called")

	for _, mode := range []Mode{NoDittoInclusive, Without} {
		last := m.LastSnap(mode)
		_, present := last[target]
		assert.False(t, present, "mode %v should report nothing for a ditto trailing snapshot", mode)
	}
}

// TestLastSnapNoDittoInclusiveFallsBackToLiveWhenNoSnapshots covers the one
// case where NoDittoInclusive/Without do emit the live record: no snapshot
// exists at all for the path.
func TestLastSnapNoDittoInclusiveFallsBackToLiveWhenNoSnapshots(t *testing.T) {
	e := &Entry{Live: &paths.Record{Path: "/tank/live/only.txt", Metadata: &paths.Metadata{Size: 3}}}

	for _, mode := range []Mode{NoDittoInclusive, Without} {
		recs := lastSnapFor(e, mode)
		require.Len(t, recs, 1, "mode %v", mode)
		assert.Equal(t, e.Live, recs[0])
	}
}
