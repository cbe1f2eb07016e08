package recurse

import "fmt"

// DeletedMode selects how much deleted-discovery work the enumerator does
// per visited directory (spec.md §4.7).
type DeletedMode int

const (
	// Disabled skips deleted discovery entirely.
	Disabled DeletedMode = iota
	// DepthOfOne runs deleted discovery for each visited directory but
	// never recurses beneath a deleted directory's own pseudo-live
	// children.
	DepthOfOne
	// Enabled runs deleted discovery and recurses fully beneath deleted
	// directories, alongside the normal live-entry emission.
	Enabled
	// Only behaves like Enabled but suppresses live-entry emission --
	// only phantom (deleted) entries reach the sink.
	Only
)

// ParseDeletedMode converts a config/CLI string into a DeletedMode.
func ParseDeletedMode(s string) (DeletedMode, error) {
	switch s {
	case "", "disabled":
		return Disabled, nil
	case "depth-one":
		return DepthOfOne, nil
	case "enabled":
		return Enabled, nil
	case "only":
		return Only, nil
	default:
		return Disabled, fmt.Errorf("unknown deleted mode %q (want disabled, depth-one, enabled, or only)", s)
	}
}

// Config governs one Recurse invocation.
type Config struct {
	// Recursive enables descending into live subdirectories. When false,
	// only root's direct children are visited.
	Recursive bool
	// LinkTraversal allows a symlink-to-directory entry to be treated as
	// a directory (and so recursed into). Ignored when NoTraverse is set.
	LinkTraversal bool
	// NoTraverse forces directory classification to rely only on the
	// DirEntry file-type bits from the original readdir, never resolving
	// a symlink to decide -- original_source's is_entry_dir/opt_no_traverse.
	NoTraverse bool
	// DeletedMode controls per-directory deleted discovery.
	DeletedMode DeletedMode
	// WorkerPoolSize bounds the deleted-discovery worker pool. Zero means
	// "use gopsutil's logical CPU count."
	WorkerPoolSize int
}
