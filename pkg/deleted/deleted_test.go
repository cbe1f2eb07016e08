package deleted

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFixture creates:
//
//	<root>/live/dir/b
//	<root>/live/.zfs/snapshot/s1/dir/{b,c}
//	<root>/live/.zfs/snapshot/s2/dir/{c,d}
//
// with s2's copies stamped later than s1's, so the spec.md §8 scenario 2
// expectation (c and d reported, from s2, b never reported) is exercised.
func buildFixture(t *testing.T) (liveDir string, inv *inventory.Inventory) {
	t.Helper()

	root := t.TempDir()
	liveDir = filepath.Join(root, "live", "dir")
	require.NoError(t, os.MkdirAll(liveDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(liveDir, "b"), []byte("b"), 0o644))

	snapRoot := filepath.Join(root, "live", ".zfs", "snapshot")

	s1 := filepath.Join(snapRoot, "s1", "dir")
	require.NoError(t, os.MkdirAll(s1, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s1, "b"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s1, "c"), []byte("c-old"), 0o644))

	s2 := filepath.Join(snapRoot, "s2", "dir")
	require.NoError(t, os.MkdirAll(s2, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s2, "c"), []byte("c-new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s2, "d"), []byte("d"), 0o644))

	older := time.Now().Add(-2 * time.Hour)
	newer := time.Now()
	require.NoError(t, os.Chtimes(filepath.Join(s1, "c"), older, older))
	require.NoError(t, os.Chtimes(filepath.Join(s2, "c"), newer, newer))
	require.NoError(t, os.Chtimes(filepath.Join(s2, "d"), newer, newer))

	mountpoint := filepath.Join(root, "live")
	datasets := map[string]inventory.Dataset{
		mountpoint: {
			Name:        "pool/live",
			Mountpoint:  mountpoint,
			FSType:      inventory.Zfs,
			SnapshotDir: filepath.Join(mountpoint, ".zfs", "snapshot"),
			Source:      "pool/live",
			LinkType:    inventory.LinkLocal,
		},
	}

	inv = inventory.New(datasets, nil, nil, "", inventory.NewFilterDirs(nil))

	return liveDir, inv
}

func TestDiscoverReturnsLatestRepresentativeExcludingLive(t *testing.T) {
	liveDir, inv := buildFixture(t)

	entries, err := Discover(context.Background(), liveDir, inv)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	names := map[string]string{}
	for _, e := range entries {
		names[filepath.Base(e.Path.Path)] = e.SnapPath
	}

	assert.Contains(t, names, "c")
	assert.Contains(t, names, "d")
	assert.NotContains(t, names, "b")
	assert.Contains(t, names["c"], filepath.Join("s2", "dir"), "c must come from s2, the later snapshot")
}

func TestProjectChildrenRebuildsUnderPseudoLiveParent(t *testing.T) {
	root := t.TempDir()
	snapDir := filepath.Join(root, "snap", "deleteddir")
	require.NoError(t, os.MkdirAll(snapDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snapDir, "child.txt"), []byte("x"), 0o644))

	d := Entry{
		Path:     paths.Entry{Path: filepath.Join(root, "live", "deleteddir"), FileType: os.ModeDir},
		SnapPath: snapDir,
	}

	children, err := ProjectChildren(d)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, filepath.Join(root, "live", "deleteddir", "child.txt"), children[0].Path.Path)
	assert.Equal(t, filepath.Join(snapDir, "child.txt"), children[0].SnapPath)
}
