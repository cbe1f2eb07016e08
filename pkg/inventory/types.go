// Package inventory holds the dataset/snapshot map that the rest of this
// module treats as an already-built, process-lifetime-immutable input: which
// mountpoints are datasets, what filesystem each uses, where its snapshots
// live, and the alias/alternate-replica overrides an operator configures by
// hand. pkg/dataset, pkg/versions and pkg/deleted only ever read an
// Inventory; nothing here, or downstream of here, mutates one after New
// returns it.
package inventory

import "strings"

// FSType identifies which snapshot mechanism a dataset uses. The three
// values mirror the filesystems this module understands: ZFS's built-in
// .zfs/snapshot directory, btrfs-snapper's numbered subvolumes, and
// btrfs-timeshift's date-stamped subvolumes (both btrfs kinds nest a fixed
// subdirectory below each snapshot root).
type FSType int

const (
	Zfs FSType = iota
	BtrfsSnapper
	BtrfsTimeshift
)

func (t FSType) String() string {
	switch t {
	case Zfs:
		return "zfs"
	case BtrfsSnapper:
		return "btrfs-snapper"
	case BtrfsTimeshift:
		return "btrfs-timeshift"
	default:
		return "unknown"
	}
}

// BtrfsSnapperAdditionalSubDir is the fixed path component btrfs-snapper
// inserts between a numbered snapshot directory and the mirrored tree,
// e.g. <snap_id>/snapshot/<relative-path>. The same component is used for
// btrfs-timeshift datasets.
const BtrfsSnapperAdditionalSubDir = "snapshot"

// Dataset describes one mount the module can enumerate snapshots for.
type Dataset struct {
	// Name is the dataset/subvolume identity, e.g. a ZFS dataset name
	// ("tank/home") or a btrfs subvolume path.
	Name string
	// Mountpoint is the live, on-disk directory this dataset is mounted at.
	Mountpoint string
	// FSType selects which snapshot-mount convention applies.
	FSType FSType
	// SnapshotDir is the directory holding this dataset's snapshots: for
	// ZFS, <mountpoint>/.zfs/snapshot; for btrfs-snapper, the configured
	// snapshot root; for btrfs-timeshift, the snapshot home directory.
	SnapshotDir string
	// Source is a filesystem-specific, human-meaningful origin string, used
	// when a caller formats "dataset@snapshot" for ZFS paths.
	Source string
	// LinkType distinguishes a local block device from a network mount; the
	// auto-mount memo in pkg/versions only primes network-backed datasets.
	LinkType LinkType
}

// LinkType distinguishes local from network-backed mounts so the automount
// memo in pkg/versions knows which datasets need a priming read before
// their snapshot directory is populated.
type LinkType int

const (
	LinkLocal LinkType = iota
	LinkNetwork
)

// FilterDirs is the configured set of directory names that the recursive
// enumerator (pkg/recurse) always skips, plus the cached length of the
// longest entry so callers can cheaply bail out of a membership check for
// path components longer than every configured filter.
type FilterDirs struct {
	Names           map[string]struct{}
	MaxComponentLen int
}

// NewFilterDirs builds a FilterDirs set from a list of directory names.
func NewFilterDirs(names []string) FilterDirs {
	fd := FilterDirs{Names: make(map[string]struct{}, len(names))}

	for _, n := range names {
		fd.Names[n] = struct{}{}

		if len(n) > fd.MaxComponentLen {
			fd.MaxComponentLen = len(n)
		}
	}

	return fd
}

// Contains reports whether name is a configured filter directory. It
// bails out immediately for any candidate longer than the longest
// configured name, mirroring the FILTER_DIRS_MAX_LEN fast-path.
func (fd FilterDirs) Contains(name string) bool {
	if len(name) > fd.MaxComponentLen {
		return false
	}

	_, ok := fd.Names[name]

	return ok
}

// Inventory is the immutable collection this module is handed at startup.
// All fields are populated by New (which Discover and ApplyPolicy call) and
// never mutated afterward;
// callers must treat a returned *Inventory as read-only for its lifetime.
type Inventory struct {
	// MapOfDatasets maps a dataset's live mountpoint to its Dataset record.
	// Keys are exactly the proximate-dataset candidates pkg/dataset walks
	// path ancestors looking for.
	MapOfDatasets map[string]Dataset
	// OptMapOfAliases maps a user-configured alias directory to the real
	// mountpoint it stands in for (e.g. a bind mount or a renamed dataset
	// root). Optional: nil or empty when no aliases are configured.
	OptMapOfAliases map[string]string
	// OptMapOfAlts maps a dataset mountpoint to a list of alternate,
	// replicated mountpoints that should also be searched for versions,
	// in the order they should be tried (earliest first).
	OptMapOfAlts map[string][]string
	// OptCommonSnapDir, if set, is a directory name that is always treated
	// as a hidden snapshot directory during enumeration (in addition to the
	// per-filesystem default), letting an operator who renamed the standard
	// snapshot directory still have it excluded from live listings.
	OptCommonSnapDir string
	// Filters is the configured set of directory names recursion skips.
	Filters FilterDirs

	// maxMountDepth caches the deepest path-component-count of any known
	// mountpoint, so ProximateDataset's ancestor walk in pkg/dataset can
	// give up early on paths that can't possibly resolve.
	maxMountDepth int
}

// New validates and wraps the given maps into an Inventory, computing the
// cached maximum mount depth used to bound the proximate-dataset search.
func New(
	datasets map[string]Dataset,
	aliases map[string]string,
	alts map[string][]string,
	commonSnapDir string,
	filters FilterDirs,
) *Inventory {
	inv := &Inventory{
		MapOfDatasets:    datasets,
		OptMapOfAliases:  aliases,
		OptMapOfAlts:     alts,
		OptCommonSnapDir: commonSnapDir,
		Filters:          filters,
	}

	for mount := range datasets {
		depth := strings.Count(mount, "/")
		if depth > inv.maxMountDepth {
			inv.maxMountDepth = depth
		}
	}

	return inv
}

// MaxMountDepth returns the path-separator count of the deepest known
// mountpoint, used to bound ancestor walks.
func (inv *Inventory) MaxMountDepth() int {
	return inv.maxMountDepth
}
