package format_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsnow/timewalk/pkg/format"
	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/jrsnow/timewalk/pkg/versions"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func buildFixture(t *testing.T) (livePath string, inv *inventory.Inventory) {
	t.Helper()

	root := t.TempDir()
	liveDir := filepath.Join(root, "live")
	require.NoError(t, os.MkdirAll(liveDir, 0o755))

	livePath = filepath.Join(liveDir, "file.txt")
	require.NoError(t, os.WriteFile(livePath, []byte("current"), 0o644))

	snapDir := filepath.Join(liveDir, ".zfs", "snapshot")
	snap1 := filepath.Join(snapDir, "snap1")
	require.NoError(t, os.MkdirAll(snap1, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snap1, "file.txt"), []byte("older"), 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(snap1, "file.txt"), past, past))

	ds := inventory.Dataset{
		Name: "pool/live", Mountpoint: liveDir, FSType: inventory.Zfs,
		SnapshotDir: snapDir, LinkType: inventory.LinkLocal,
	}

	inv = inventory.New(map[string]inventory.Dataset{liveDir: ds}, nil, nil, "", inventory.NewFilterDirs(nil))

	return livePath, inv
}

func TestBuildEntriesAndRenderTableAndJSON(t *testing.T) {
	livePath, inv := buildFixture(t)

	log := logrus.New()
	log.SetOutput(os.Stderr)

	m, err := versions.NewMap(context.Background(), log, []string{livePath}, inv, paths.UniqueMetadata)
	require.NoError(t, err)

	entries := format.BuildEntries(m)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Live)
	require.Len(t, entries[0].Snapshots, 1)
	require.False(t, entries[0].Snapshots[0].Phantom)

	var tableBuf bytes.Buffer
	require.NoError(t, format.VersionsTable(&tableBuf, entries))
	require.Contains(t, tableBuf.String(), "live")
	require.Contains(t, tableBuf.String(), "snap")

	var jsonBuf bytes.Buffer
	require.NoError(t, format.VersionsJSON(&jsonBuf, entries))
	require.Contains(t, jsonBuf.String(), "requested_path")
}
