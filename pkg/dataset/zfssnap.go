package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/sirupsen/logrus"
)

// zfsSnapPath is the Deconstructor for a path already living under a ZFS
// .zfs/snapshot mount. It overrides Alias, Source, FSType and LivePath to
// account for the extra "<snapname>/" path segment ZFS inserts.
type zfsSnapPath struct {
	rec *paths.Record
	inv *inventory.Inventory
}

// Alias never applies to a snapshot path: aliasing only rewrites live
// mountpoints, not the synthetic path a snapshot mount already resolved to.
func (z *zfsSnapPath) Alias() (string, string, bool) {
	return "", "", false
}

func (z *zfsSnapPath) ProximateDataset() (string, error) {
	mount, _, _, err := z.split()

	return mount, err
}

func (z *zfsSnapPath) RelativePath(string) (string, error) {
	_, _, rel, err := z.split()

	return rel, err
}

// Source formats "<dataset>@<snapshot>" for the owning dataset, but only
// when that dataset is actually ZFS; any other filesystem logs a warning
// and returns an empty source.
func (z *zfsSnapPath) Source(proximateDataset string) (string, error) {
	mount, snapName, _, err := z.split()
	if err != nil {
		return "", err
	}

	ds, ok := z.inv.MapOfDatasets[mount]
	if !ok {
		return "", paths.NewError(paths.KindNoProximateDataset, mount, nil)
	}

	if ds.FSType != inventory.Zfs {
		logrus.StandardLogger().WithField("path", z.rec.Path).
			Warn("snapshot path under a non-ZFS dataset has no dataset@snapshot source")

		return "", nil
	}

	return fmt.Sprintf("%s@%s", ds.Source, snapName), nil
}

func (z *zfsSnapPath) FSType(string) (inventory.FSType, error) {
	return inventory.Zfs, nil
}

// LivePath strips the "/.zfs/snapshot/<snapname>" segment, returning the
// path as it would appear on the live filesystem.
func (z *zfsSnapPath) LivePath() (string, error) {
	mount, _, rel, err := z.split()
	if err != nil {
		return "", err
	}

	return filepath.Join(mount, rel), nil
}

// split breaks a ZFS snapshot path into (dataset mountpoint, snapshot name,
// relative path beneath the mountpoint) via a split on the snapshot marker
// followed by a split on the snapshot-name segment.
func (z *zfsSnapPath) split() (mount, snapName, relative string, err error) {
	idx := strings.Index(z.rec.Path, zfsSnapshotMarker)
	if idx < 0 {
		return "", "", "", paths.NewError(paths.KindBadInput, z.rec.Path, nil)
	}

	mount = z.rec.Path[:idx]
	rest := z.rec.Path[idx+len(zfsSnapshotMarker):]

	parts := strings.SplitN(rest, "/", 2)

	snapName = parts[0]
	if len(parts) == 2 {
		relative = parts[1]
	}

	return mount, snapName, relative, nil
}
