package versions

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
)

// Versions is every version this module found for one requested path,
// sorted and deduplicated per uniqueness.
type Versions struct {
	Resolved *ProximateDatasetAndOptAlts
	Records  []*paths.Record
}

// New resolves path's proximate dataset(s), reads one record per candidate
// path in each snapshot mount, and returns them sorted/deduplicated. A
// KindSnapshotPermissionDenied error is returned immediately (callers
// should treat it as fatal to the whole operation); every other per-
// snapshot read error is skipped rather than failing the lookup.
func New(ctx context.Context, rec *paths.Record, inv *inventory.Inventory, uniqueness paths.Uniqueness) (*Versions, error) {
	resolved, err := NewProximateDatasetAndOptAlts(rec, inv)
	if err != nil {
		return nil, err
	}

	bundles, err := resolved.IntoSearchBundles(inv)
	if err != nil {
		return nil, err
	}

	var all []*paths.Record

	for _, bundle := range bundles {
		ds := inv.MapOfDatasets[bundle.DatasetOfInterest]

		recs, err := versionsUnprocessed(ctx, bundle, ds)
		if err != nil {
			return nil, err
		}

		all = append(all, recs...)
	}

	deduped, err := paths.SortDedupVersions(all, uniqueness)
	if err != nil {
		return nil, err
	}

	return &Versions{Resolved: resolved, Records: deduped}, nil
}

// versionsUnprocessed joins bundle.RelativePath onto each of the dataset's
// snapshot mounts and lstats the result, skipping entries that don't exist
// in that particular snapshot. A permission-denied error aborts
// immediately rather than being silently skipped, since it usually means
// the whole snapshot mount is unreadable.
func versionsUnprocessed(ctx context.Context, bundle SearchBundle, ds inventory.Dataset) ([]*paths.Record, error) {
	if err := PrimeNetworkDataset(ctx, ds); err != nil {
		return nil, err
	}

	out := make([]*paths.Record, 0, len(bundle.SnapMounts))

	for _, snapMount := range bundle.SnapMounts {
		for _, candidate := range candidatePaths(snapMount, bundle.RelativePath, bundle.FSType) {
			rec, err := paths.NewRecord(candidate)
			if err != nil {
				if isPermissionError(err) {
					return nil, paths.NewError(paths.KindSnapshotPermissionDenied, candidate, err)
				}

				continue
			}

			if rec.Metadata == nil {
				continue
			}

			out = append(out, rec)
		}
	}

	return out, nil
}

// candidatePaths lists every path, inside one snapshot mount, that could
// hold the live-relative file: for ZFS just the relative path appended
// directly; for btrfs-snapper and btrfs-timeshift, also the relative path
// behind the fixed "snapshot" subdirectory those layouts insert (spec.md
// §4.3 step 3), since a Snapper/Timeshift snapshot mount doesn't mirror the
// dataset root directly the way a ZFS .zfs/snapshot/<name> entry does.
func candidatePaths(snapMount, relative string, fsType inventory.FSType) []string {
	plain := filepath.Join(snapMount, relative)

	if fsType == inventory.Zfs {
		return []string{plain}
	}

	return []string{
		plain,
		filepath.Join(snapMount, inventory.BtrfsSnapperAdditionalSubDir, relative),
	}
}

func isPermissionError(err error) bool {
	var pathErr *paths.Error
	if errors.As(err, &pathErr) {
		return os.IsPermission(pathErr.Err)
	}

	return os.IsPermission(err)
}

// Latest returns only the newest snapshot version of path, without
// building the full deduplicated version history. Used by the restore
// command's --latest flag for a "restore most recent" flow.
func Latest(ctx context.Context, path string, inv *inventory.Inventory) (*paths.Record, error) {
	rec, err := paths.NewRecord(path)
	if err != nil {
		return nil, err
	}

	v, err := New(ctx, rec, inv, paths.All)
	if err != nil {
		return nil, err
	}

	if len(v.Records) == 0 {
		return nil, paths.NewError(paths.KindNoVersions, path, nil)
	}

	return v.Records[len(v.Records)-1], nil
}
