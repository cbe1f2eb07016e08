package paths

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordAt(t *testing.T, size uint64, mtime time.Time) *Record {
	t.Helper()

	return &Record{
		Path:     t.TempDir(),
		Metadata: &Metadata{Size: size, ModifyTime: mtime},
	}
}

func TestSortDedupVersionsAllKeepsEverything(t *testing.T) {
	t0 := time.Now()
	recs := []*Record{
		recordAt(t, 10, t0.Add(2*time.Hour)),
		recordAt(t, 10, t0),
		recordAt(t, 10, t0.Add(time.Hour)),
	}

	out, err := SortDedupVersions(recs, All)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.True(t, out[0].Metadata.ModifyTime.Equal(t0))
}

func TestSortDedupVersionsUniqueMetadataDropsExactMatch(t *testing.T) {
	t0 := time.Now()
	recs := []*Record{
		recordAt(t, 10, t0),
		recordAt(t, 10, t0),
		recordAt(t, 20, t0.Add(time.Hour)),
	}

	out, err := SortDedupVersions(recs, UniqueMetadata)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestSortDedupVersionsUniqueContentsFallsBackToHash(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a")
	p2 := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(p1, []byte("same content"), 0o644))
	require.NoError(t, os.WriteFile(p2, []byte("same content"), 0o644))

	t0 := time.Now()
	t1 := t0.Add(time.Hour)

	recs := []*Record{
		{Path: p1, Metadata: &Metadata{Size: 12, ModifyTime: t1}},
		{Path: p2, Metadata: &Metadata{Size: 12, ModifyTime: t0}},
	}

	out, err := SortDedupVersions(recs, UniqueContents)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestMetadataPhantomSortsFirst(t *testing.T) {
	live := Metadata{Size: 1, ModifyTime: time.Now()}
	assert.Negative(t, Phantom.Compare(live))
}
