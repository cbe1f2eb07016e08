// Package deleted finds filenames that exist in some snapshot of a
// directory but not in that directory's live state, and projects the
// contents of a deleted directory onto the pseudo-live parent where it
// used to live. Grounded directly on original_source's get_unique_deleted
// (deleted.rs) and get_entries_behind_deleted_dir (exec/recursive.rs).
package deleted

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/jrsnow/timewalk/pkg/versions"
)

// Entry is one name that exists in some snapshot mirror of a directory but
// not (or no longer) on the live filesystem. Entry.Path is a pseudo-live
// path -- it is built under the live directory's name even though nothing
// real exists there -- while SnapPath is the real, on-disk snapshot copy
// backing it, used both for display and as the source tree when recursing
// beneath a deleted directory (see ProjectChildren).
type Entry struct {
	Path     paths.Entry
	SnapPath string
	ModTime  time.Time
}

// Discover finds every name that is a direct child of some snapshot mirror
// of liveDir but not a direct child of liveDir itself. When the same name
// appears in more than one snapshot mirror (across snapshots of the same
// dataset, or across an alt-replicated dataset and its proximate original),
// the mirror with the greatest modification time is kept as the
// representative -- the "latest snapshot wins" rule of spec.md's deleted-
// discovery component.
func Discover(ctx context.Context, liveDir string, inv *inventory.Inventory) ([]Entry, error) {
	live, err := liveNames(liveDir)
	if err != nil {
		return nil, err
	}

	rec, err := paths.NewRecord(liveDir)
	if err != nil {
		return nil, err
	}

	resolved, err := versions.NewProximateDatasetAndOptAlts(rec, inv)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]Entry)

	for _, dsName := range resolved.DatasetsOfInterest() {
		ds, ok := inv.MapOfDatasets[dsName]
		if !ok {
			continue
		}

		if err := versions.PrimeNetworkDataset(ctx, ds); err != nil {
			return nil, err
		}

		mounts, err := versions.ListSnapMounts(ds)
		if err != nil {
			continue
		}

		for _, mount := range mounts {
			mirror := mirrorDir(mount, resolved.RelativePath, ds.FSType)

			if err := collectMirror(mirror, candidates); err != nil {
				return nil, err
			}
		}
	}

	out := make([]Entry, 0, len(candidates))

	for name, cand := range candidates {
		if _, isLive := live[name]; isLive {
			continue
		}

		out = append(out, Entry{
			Path:    paths.Entry{Path: filepath.Join(liveDir, name), FileType: cand.Path.FileType},
			SnapPath: cand.SnapPath,
			ModTime:  cand.ModTime,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path.Path < out[j].Path.Path })

	return out, nil
}

// ProjectChildren reads the children of a directory that is itself a
// deleted entry from d.SnapPath (the representative snapshot copy of it),
// and returns them projected onto d.Path.Path, the directory's synthesized
// live location. A projected entry that is itself a directory can be
// recursed into by calling ProjectChildren again on it -- this is how
// spec.md's pseudo-live reconstruction walks arbitrarily deep beneath a
// deleted directory. Unlike Discover, no live-filtering happens here: the
// whole parent is already known-deleted, so every child of its snapshot
// mirror is itself deleted by construction.
func ProjectChildren(d Entry) ([]Entry, error) {
	if err := RequireDir(d); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(d.SnapPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		if os.IsPermission(err) {
			return nil, paths.NewError(paths.KindSnapshotPermissionDenied, d.SnapPath, err)
		}

		return nil, paths.NewError(paths.KindIoError, d.SnapPath, err)
	}

	out := make([]Entry, 0, len(entries))

	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}

		childSnapPath := filepath.Join(d.SnapPath, e.Name())

		out = append(out, Entry{
			Path:     paths.EntryFromDirEntry(d.Path.Path, e),
			SnapPath: childSnapPath,
			ModTime:  info.ModTime(),
		})
	}

	return out, nil
}

// mirrorDir computes the path, inside one snapshot mount, that mirrors
// liveDir's relative-to-dataset path: for ZFS this is simply the relative
// path appended to the snapshot mount; for btrfs-snapper and btrfs-
// timeshift an additional fixed subdirectory is inserted first (spec.md
// §4.5 step 4, §6's Snapper/Timeshift layout conventions).
func mirrorDir(snapMount, relative string, fsType inventory.FSType) string {
	if fsType == inventory.Zfs {
		return filepath.Join(snapMount, relative)
	}

	return filepath.Join(snapMount, inventory.BtrfsSnapperAdditionalSubDir, relative)
}

// collectMirror reads one snapshot mirror directory (if it exists) and
// folds its entries into candidates, keeping only the greatest-mtime
// representative per filename. A mirror directory that doesn't exist
// contributes nothing and is not an error; a permission-denied read is
// fatal, matching version lookup's treatment of an unreadable snapshot
// mount.
func collectMirror(mirror string, candidates map[string]Entry) error {
	entries, err := os.ReadDir(mirror)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		if os.IsPermission(err) {
			return paths.NewError(paths.KindSnapshotPermissionDenied, mirror, err)
		}

		return nil
	}

	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}

		name := e.Name()
		full := filepath.Join(mirror, name)

		cur, ok := candidates[name]
		if !ok || info.ModTime().After(cur.ModTime) {
			candidates[name] = Entry{
				Path:    paths.Entry{Path: full, FileType: e.Type()},
				SnapPath: full,
				ModTime:  info.ModTime(),
			}
		}
	}

	return nil
}

func liveNames(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}

		return nil, paths.NewError(paths.KindIoError, dir, err)
	}

	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[e.Name()] = struct{}{}
	}

	return set, nil
}

// ErrNotADirectory is returned when ProjectChildren is asked to recurse
// into an Entry that Discover never classified as a directory.
var ErrNotADirectory = errors.New("deleted entry is not a directory")

// RequireDir validates that d is safe to pass to ProjectChildren.
func RequireDir(d Entry) error {
	if !d.Path.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, d.Path.Path)
	}

	return nil
}
