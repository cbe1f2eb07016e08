package recurse

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/sink"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) (root string, inv *inventory.Inventory) {
	t.Helper()

	tmp := t.TempDir()
	root = filepath.Join(tmp, "live")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "nested.txt"), []byte("y"), 0o644))

	snapDir := filepath.Join(root, ".zfs", "snapshot", "s1")
	require.NoError(t, os.MkdirAll(snapDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snapDir, "gone.txt"), []byte("z"), 0o644))

	datasets := map[string]inventory.Dataset{
		root: {
			Name:        "pool/live",
			Mountpoint:  root,
			FSType:      inventory.Zfs,
			SnapshotDir: filepath.Join(root, ".zfs", "snapshot"),
			Source:      "pool/live",
			LinkType:    inventory.LinkLocal,
		},
	}

	inv = inventory.New(datasets, nil, nil, "", inventory.NewFilterDirs(nil))

	return root, inv
}

func TestRecurseEmitsLiveAndDeletedEntries(t *testing.T) {
	root, inv := buildTree(t)

	snk := sink.NewUnboundedSink()

	var got []sink.Item

	done := make(chan struct{})

	go func() {
		for item := range snk.Items() {
			got = append(got, item)
		}

		close(done)
	}()

	cfg := Config{Recursive: true, DeletedMode: Enabled, WorkerPoolSize: 2}
	err := Recurse(context.Background(), logrus.StandardLogger(), root, inv, snk, cfg)
	require.NoError(t, err)

	snk.Close()
	<-done

	var sawKeep, sawNested, sawGone bool

	for _, item := range got {
		switch filepath.Base(item.Entry.Path) {
		case "keep.txt":
			sawKeep = true
		case "nested.txt":
			sawNested = true
		case "gone.txt":
			sawGone = true
			assert.True(t, item.Phantom)
			assert.Same(t, inv, item.Inventory, "phantom items must carry the inventory handle same as live items")
		}
	}

	assert.True(t, sawKeep)
	assert.True(t, sawNested)
	assert.True(t, sawGone)
}

func TestRecurseStopsAfterCancellation(t *testing.T) {
	root, inv := buildTree(t)

	snk := sink.NewUnboundedSink()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-snk.Items()
		cancel()
	}()

	cfg := Config{Recursive: true, DeletedMode: Enabled, WorkerPoolSize: 1}

	errCh := make(chan error, 1)

	go func() {
		errCh <- Recurse(ctx, logrus.StandardLogger(), root, inv, snk, cfg)
	}()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Recurse did not return after cancellation")
	}
}
