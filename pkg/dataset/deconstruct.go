// Package dataset resolves an arbitrary filesystem path to the dataset that
// contains it: which mountpoint is its nearest ancestor, what's left over as
// the path relative to that mountpoint, and (for a path that already lives
// under a snapshot directory) what live path it mirrors. This is the Go
// counterpart of the PathDeconstruction trait and its ZfsSnapPathGuard
// specialization in the module this package's algorithms are grounded on.
package dataset

import (
	"path/filepath"
	"strings"

	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
)

// zfsSnapshotMarker is the path component ZFS always inserts for its
// built-in snapshot mount; a path containing this marker is recognized as
// already being a snapshot path rather than a live one.
const zfsSnapshotMarker = "/.zfs/snapshot/"

// Deconstructor answers the questions spec.md's path-deconstruction
// component defines for a single resolved path: which dataset it belongs
// to, what's left of the path once that dataset's mountpoint is removed,
// where that dataset's versions come from, and (for snapshot paths) what
// live path they correspond to.
type Deconstructor interface {
	// Alias reports whether path lies under a configured alias directory,
	// returning the real mountpoint and the path's remainder beneath it.
	Alias() (mountpoint, relative string, ok bool)
	// ProximateDataset returns the nearest ancestor mountpoint known to the
	// inventory, preferring Alias() when it applies.
	ProximateDataset() (string, error)
	// RelativePath returns the path with proximateDataset's mountpoint
	// prefix stripped.
	RelativePath(proximateDataset string) (string, error)
	// Source returns a human-meaningful origin string for proximateDataset,
	// e.g. "tank/home" or "tank/home@autosnap-2024".
	Source(proximateDataset string) (string, error)
	// FSType returns the snapshot mechanism proximateDataset uses.
	FSType(proximateDataset string) (inventory.FSType, error)
	// LivePath returns the live-filesystem equivalent of this path. For an
	// already-live path, this is the path itself.
	LivePath() (string, error)
}

// New builds the appropriate Deconstructor for rec: a zfsSnapPath when the
// resolved path already sits under a ZFS .zfs/snapshot mount, a livePath
// otherwise.
func New(rec *paths.Record, inv *inventory.Inventory) Deconstructor {
	if strings.Contains(rec.Path, zfsSnapshotMarker) {
		return &zfsSnapPath{rec: rec, inv: inv}
	}

	return &livePath{rec: rec, inv: inv}
}

// livePath is the default Deconstructor: a path not already under a
// recognized snapshot mount.
type livePath struct {
	rec *paths.Record
	inv *inventory.Inventory
}

func (l *livePath) Alias() (string, string, bool) {
	return resolveAlias(l.rec.Path, l.inv)
}

func (l *livePath) ProximateDataset() (string, error) {
	if mount, _, ok := l.Alias(); ok {
		return mount, nil
	}

	return proximateDatasetOf(l.rec.Path, l.inv)
}

func (l *livePath) RelativePath(proximateDataset string) (string, error) {
	return relativePathOf(l.rec.Path, proximateDataset)
}

func (l *livePath) Source(proximateDataset string) (string, error) {
	return sourceOf(proximateDataset, l.inv)
}

func (l *livePath) FSType(proximateDataset string) (inventory.FSType, error) {
	return fsTypeOf(proximateDataset, l.inv)
}

func (l *livePath) LivePath() (string, error) {
	return l.rec.Path, nil
}

// resolveAlias walks path's ancestors top-down (shallowest first) looking
// for a match in the inventory's alias map, per spec.md's alias() contract.
// This is deliberately the opposite search order from proximateDatasetOf's
// longest-match rule: an alias rooted at a shallow directory takes
// precedence over one rooted at a directory nested beneath it.
func resolveAlias(path string, inv *inventory.Inventory) (string, string, bool) {
	if len(inv.OptMapOfAliases) == 0 {
		return "", "", false
	}

	anc := ancestors(path)
	for i := len(anc) - 1; i >= 0; i-- {
		ancestor := anc[i]
		if real, ok := inv.OptMapOfAliases[ancestor]; ok {
			rel, err := filepath.Rel(ancestor, path)
			if err != nil {
				return "", "", false
			}

			return real, rel, true
		}
	}

	return "", "", false
}

// proximateDatasetOf walks path's ancestors looking for the first one
// present in the inventory's dataset map. Ancestors deeper than any known
// mount are skipped without a map lookup (the MaxMountDepth fast path).
func proximateDatasetOf(path string, inv *inventory.Inventory) (string, error) {
	maxDepth := inv.MaxMountDepth()

	for _, ancestor := range ancestors(path) {
		if maxDepth > 0 && strings.Count(ancestor, "/") > maxDepth {
			continue
		}

		if _, ok := inv.MapOfDatasets[ancestor]; ok {
			return ancestor, nil
		}
	}

	return "", paths.NewError(paths.KindNoProximateDataset, path, nil)
}

// ancestors returns path and each of its ancestor directories, from the
// deepest (path itself) to the root, as the deepest-first search order
// proximate-dataset resolution requires.
func ancestors(path string) []string {
	clean := filepath.Clean(path)

	var out []string

	for {
		out = append(out, clean)

		parent := filepath.Dir(clean)
		if parent == clean {
			break
		}

		clean = parent
	}

	return out
}

func relativePathOf(path, proximateDataset string) (string, error) {
	rel, err := filepath.Rel(proximateDataset, path)
	if err != nil {
		return "", paths.NewError(paths.KindNoRelativePath, path, err)
	}

	return rel, nil
}

func sourceOf(proximateDataset string, inv *inventory.Inventory) (string, error) {
	ds, ok := inv.MapOfDatasets[proximateDataset]
	if !ok {
		return "", paths.NewError(paths.KindNoProximateDataset, proximateDataset, nil)
	}

	return ds.Source, nil
}

func fsTypeOf(proximateDataset string, inv *inventory.Inventory) (inventory.FSType, error) {
	ds, ok := inv.MapOfDatasets[proximateDataset]
	if !ok {
		return 0, paths.NewError(paths.KindNoProximateDataset, proximateDataset, nil)
	}

	return ds.FSType, nil
}
