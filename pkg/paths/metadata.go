package paths

import "time"

// Metadata carries the pieces of stat(2) output this package orders
// versions by: size and modification time. Two records compare equal under
// Compare only if both fields match.
type Metadata struct {
	Size       uint64
	ModifyTime time.Time
}

// Phantom is the sentinel metadata assigned to a path that could not be
// stat'd (deleted, or a dangling symlink target). Its ModifyTime is the Unix
// epoch, so it sorts before any real metadata with a later mtime.
var Phantom = Metadata{Size: 0, ModifyTime: time.Unix(0, 0).UTC()}

// IsPhantom reports whether m is the phantom sentinel.
func (m Metadata) IsPhantom() bool {
	return m == Phantom
}

// Compare orders metadata by modification time first, then by size. It
// implements the ordering spec.md assigns to PathMetadata ("version
// ordering"), used whenever two records tie on every other key.
func (m Metadata) Compare(other Metadata) int {
	if m.ModifyTime.Before(other.ModifyTime) {
		return -1
	}

	if m.ModifyTime.After(other.ModifyTime) {
		return 1
	}

	switch {
	case m.Size < other.Size:
		return -1
	case m.Size > other.Size:
		return 1
	default:
		return 0
	}
}
