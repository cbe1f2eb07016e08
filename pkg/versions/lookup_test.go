package versions

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFixture creates:
//
//	<root>/live/file.txt                               (current contents)
//	<root>/live/.zfs/snapshot/snap1/file.txt            (older contents)
//	<root>/live/.zfs/snapshot/snap2/file.txt            (ditto of live)
//
// and returns an Inventory describing <root>/live as a local ZFS dataset.
func buildFixture(t *testing.T) (root string, inv *inventory.Inventory) {
	t.Helper()

	root = t.TempDir()
	liveDir := filepath.Join(root, "live")
	require.NoError(t, os.MkdirAll(liveDir, 0o755))

	livePath := filepath.Join(liveDir, "file.txt")
	require.NoError(t, os.WriteFile(livePath, []byte("current"), 0o644))

	now := time.Now()
	require.NoError(t, os.Chtimes(livePath, now, now))

	snapDir := filepath.Join(liveDir, ".zfs", "snapshot")

	snap1 := filepath.Join(snapDir, "snap1")
	require.NoError(t, os.MkdirAll(snap1, 0o755))
	snap1File := filepath.Join(snap1, "file.txt")
	require.NoError(t, os.WriteFile(snap1File, []byte("older"), 0o644))
	older := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(snap1File, older, older))

	snap2 := filepath.Join(snapDir, "snap2")
	require.NoError(t, os.MkdirAll(snap2, 0o755))
	snap2File := filepath.Join(snap2, "file.txt")
	require.NoError(t, os.WriteFile(snap2File, []byte("current"), 0o644))
	require.NoError(t, os.Chtimes(snap2File, now, now))

	datasets := map[string]inventory.Dataset{
		liveDir: {
			Name:        "pool/live",
			Mountpoint:  liveDir,
			FSType:      inventory.Zfs,
			SnapshotDir: snapDir,
			Source:      "pool/live",
			LinkType:    inventory.LinkLocal,
		},
	}

	inv = inventory.New(datasets, nil, nil, "", inventory.NewFilterDirs(nil))

	return root, inv
}

func TestVersionsNewFindsAllSnapshots(t *testing.T) {
	_, inv := buildFixture(t)
	liveDir := inv.MapOfDatasets[firstKey(inv)].Mountpoint

	rec, err := paths.NewRecord(filepath.Join(liveDir, "file.txt"))
	require.NoError(t, err)

	v, err := New(context.Background(), rec, inv, paths.All)
	require.NoError(t, err)
	assert.Len(t, v.Records, 2)
}

func TestVersionsMapOmitDittoAndLastSnap(t *testing.T) {
	_, inv := buildFixture(t)
	liveDir := inv.MapOfDatasets[firstKey(inv)].Mountpoint
	target := filepath.Join(liveDir, "file.txt")

	m, err := NewMap(context.Background(), logrus.StandardLogger(), []string{target}, inv, paths.All)
	require.NoError(t, err)

	e, ok := m.Entry(target)
	require.True(t, ok)
	require.Len(t, e.Snaps, 2)

	m.OmitDitto()

	e, ok = m.Entry(target)
	require.True(t, ok)
	assert.Len(t, e.Snaps, 1, "the ditto snapshot matching live should be dropped")

	last := m.LastSnap(NoDittoInclusive)
	require.Contains(t, last, target)
}

// TestVersionsMapFindsSnapshotsOfDeletedLiveFile covers the core "browse
// versions of a file that no longer exists on the live filesystem" use
// case: NewMap must still run the snapshot lookup for a path with no live
// metadata, not short-circuit to an empty Entry.
func TestVersionsMapFindsSnapshotsOfDeletedLiveFile(t *testing.T) {
	_, inv := buildFixture(t)
	liveDir := inv.MapOfDatasets[firstKey(inv)].Mountpoint
	target := filepath.Join(liveDir, "file.txt")

	require.NoError(t, os.Remove(target))

	m, err := NewMap(context.Background(), logrus.StandardLogger(), []string{target}, inv, paths.All)
	require.NoError(t, err)

	e, ok := m.Entry(target)
	require.True(t, ok)
	assert.Nil(t, e.Live.Metadata, "the requested path no longer exists live")
	assert.Len(t, e.Snaps, 2, "snapshot versions of the deleted file should still be found")
}

func TestVersionsMapAllEmptyIsError(t *testing.T) {
	_, inv := buildFixture(t)

	_, err := NewMap(
		context.Background(),
		logrus.StandardLogger(),
		[]string{"/definitely/not/a/real/path/anywhere"},
		inv,
		paths.All,
	)
	require.Error(t, err)
}

// buildSnapperFixture creates a btrfs-snapper-style layout:
//
//	<root>/live/file.txt
//	<root>/snaps/1/snapshot/file.txt    (older contents)
//
// where the snapshot mount (<root>/snaps/1) does not mirror the dataset
// root directly -- the real file lives one "snapshot" subdirectory down,
// per spec.md §4.3 step 3 and §6's Snapper layout convention.
func buildSnapperFixture(t *testing.T) (liveDir string, inv *inventory.Inventory) {
	t.Helper()

	root := t.TempDir()
	liveDir = filepath.Join(root, "live")
	require.NoError(t, os.MkdirAll(liveDir, 0o755))

	livePath := filepath.Join(liveDir, "file.txt")
	require.NoError(t, os.WriteFile(livePath, []byte("current"), 0o644))

	snapsRoot := filepath.Join(root, "snaps")
	mirror := filepath.Join(snapsRoot, "1", "snapshot")
	require.NoError(t, os.MkdirAll(mirror, 0o755))

	mirrorFile := filepath.Join(mirror, "file.txt")
	require.NoError(t, os.WriteFile(mirrorFile, []byte("older"), 0o644))

	older := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(mirrorFile, older, older))

	datasets := map[string]inventory.Dataset{
		liveDir: {
			Name:        "live",
			Mountpoint:  liveDir,
			FSType:      inventory.BtrfsSnapper,
			SnapshotDir: snapsRoot,
			Source:      "live",
			LinkType:    inventory.LinkLocal,
		},
	}

	inv = inventory.New(datasets, nil, nil, "", inventory.NewFilterDirs(nil))

	return liveDir, inv
}

func TestVersionsNewFindsSnapperAdditionalSubDir(t *testing.T) {
	liveDir, inv := buildSnapperFixture(t)

	rec, err := paths.NewRecord(filepath.Join(liveDir, "file.txt"))
	require.NoError(t, err)

	v, err := New(context.Background(), rec, inv, paths.All)
	require.NoError(t, err)
	require.Len(t, v.Records, 1)
	assert.Contains(t, v.Records[0].Path, filepath.Join("1", "snapshot", "file.txt"))
}

func firstKey(inv *inventory.Inventory) string {
	for k := range inv.MapOfDatasets {
		return k
	}

	return ""
}
