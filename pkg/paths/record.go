package paths

import (
	"os"
	"path/filepath"
	"sync"
)

// Record is a path paired with the metadata observed for it at one point in
// time: a live file, a snapshot copy, or a path that no longer exists
// anywhere (Metadata == nil). Construction canonicalizes the path allowing
// a missing tail, then lstats it without following a trailing symlink, so
// a dangling symlink is a resolvable Record rather than a construction
// error.
//
// Records order by Path alone; Metadata only breaks ties between versions
// of the same path (see Metadata.Compare and SortDedupVersions in this
// package).
type Record struct {
	Path     string
	Metadata *Metadata

	hashOnce sync.Once
	hashVal  [32]byte
	hashErr  error
}

// NewRecord canonicalizes path (resolving symlinks in the longest existing
// prefix, leaving any non-existent tail components untouched) and lstats
// the result. A missing path is not an error: the returned Record has a nil
// Metadata, and callers use MetadataOrPhantom for version comparisons.
func NewRecord(path string) (*Record, error) {
	canon, err := CanonicalizeAllowMissing(path)
	if err != nil {
		return nil, NewError(KindIoError, path, err)
	}

	rec := &Record{Path: canon}

	info, err := os.Lstat(canon)
	if err != nil {
		if os.IsNotExist(err) {
			return rec, nil
		}

		return nil, NewError(KindIoError, canon, err)
	}

	rec.Metadata = &Metadata{
		Size:       uint64(info.Size()), //nolint:gosec // file sizes are never negative
		ModifyTime: info.ModTime(),
	}

	return rec, nil
}

// MetadataOrPhantom returns r.Metadata, substituting the Phantom sentinel
// when the path has no metadata (doesn't exist).
func (r *Record) MetadataOrPhantom() Metadata {
	if r.Metadata == nil {
		return Phantom
	}

	return *r.Metadata
}

// ComparePath orders two records by path alone, ignoring metadata. This is
// the ordering a map keyed by requested path uses.
func ComparePath(a, b *Record) int {
	switch {
	case a.Path < b.Path:
		return -1
	case a.Path > b.Path:
		return 1
	default:
		return 0
	}
}

// CanonicalizeAllowMissing resolves path to an absolute, symlink-free form,
// tolerating the case where the path (or some suffix of it) does not exist.
// The longest existing ancestor is resolved with filepath.EvalSymlinks; any
// remaining non-existent components are appended verbatim.
func CanonicalizeAllowMissing(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	var tail []string

	cur := abs

	for {
		if _, statErr := os.Stat(cur); statErr == nil {
			break
		} else if !os.IsNotExist(statErr) {
			return "", statErr
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}

		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}

	resolved, err := filepath.EvalSymlinks(cur)
	if err != nil {
		return "", err
	}

	if len(tail) == 0 {
		return resolved, nil
	}

	return filepath.Join(append([]string{resolved}, tail...)...), nil
}
