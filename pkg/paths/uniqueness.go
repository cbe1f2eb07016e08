package paths

import (
	"fmt"
	"slices"
)

// Uniqueness selects how adjacent versions of the same path are
// deduplicated once sorted by modification time.
type Uniqueness int

const (
	// All keeps every version, even when two snapshots captured byte-identical content.
	All Uniqueness = iota
	// UniqueMetadata drops a version whose size and modify time both match its predecessor.
	UniqueMetadata
	// UniqueContents drops a version whose content hash matches its predecessor's,
	// even if their modify times differ (e.g. the file was rewritten with identical
	// bytes, which gave it a new mtime).
	UniqueContents
)

// ParseUniqueness converts a config/CLI string ("all", "metadata",
// "contents") into a Uniqueness value.
func ParseUniqueness(s string) (Uniqueness, error) {
	switch s {
	case "", "metadata":
		return UniqueMetadata, nil
	case "all":
		return All, nil
	case "contents":
		return UniqueContents, nil
	default:
		return All, fmt.Errorf("unknown uniqueness mode %q (want all, metadata, or contents)", s)
	}
}

// SortDedupVersions sorts records by Metadata.Compare (modify time, then
// size) and, for UniqueMetadata/UniqueContents, removes an adjacent record
// that ties with the one before it. All never removes anything. The input
// slice is sorted in place and the deduplicated result is returned; it may
// share backing storage with records.
func SortDedupVersions(records []*Record, mode Uniqueness) ([]*Record, error) {
	slices.SortFunc(records, func(a, b *Record) int {
		return a.MetadataOrPhantom().Compare(b.MetadataOrPhantom())
	})

	if mode == All || len(records) < 2 {
		return records, nil
	}

	out := records[:1]

	for i := 1; i < len(records); i++ {
		dup, err := isDuplicate(out[len(out)-1], records[i], mode)
		if err != nil {
			return nil, err
		}

		if !dup {
			out = append(out, records[i])
		}
	}

	return out, nil
}

func isDuplicate(prev, cur *Record, mode Uniqueness) (bool, error) {
	prevMeta, curMeta := prev.MetadataOrPhantom(), cur.MetadataOrPhantom()

	if prevMeta.Size != curMeta.Size {
		return false, nil
	}

	if mode == UniqueMetadata {
		return prevMeta.ModifyTime.Equal(curMeta.ModifyTime), nil
	}

	// UniqueContents: metadata alone isn't decisive, fall back to hashing.
	return SameContents(prev, cur)
}
