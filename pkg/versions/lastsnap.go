package versions

import (
	"errors"
	"fmt"

	"github.com/jrsnow/timewalk/pkg/paths"
)

// ErrNoVersionsAnywhere is the global failure when every requested path
// resolved to neither a live file nor any snapshot copy.
var ErrNoVersionsAnywhere = errors.New("no versions found")

// Mode selects which of an entry's versions "last snapshot" operations
// (like restore-most-recent, or a terminal preview pane) should treat as
// the representative snapshot.
//
// Without and NoDittoInclusive are intentionally the same policy: both
// return no representative when the trailing snapshot is a ditto of live,
// and both fall back to the live record only when there is no snapshot at
// all. They exist as separate names for call-site clarity, not distinct
// behavior.
type Mode int

const (
	// Any returns the trailing snapshot unconditionally.
	Any Mode = iota
	// DittoOnly returns the trailing snapshot only when it matches live.
	DittoOnly
	// NoDittoExclusive returns the trailing snapshot only when it does NOT match live.
	NoDittoExclusive
	// NoDittoInclusive returns the trailing snapshot when it differs from live,
	// nothing when it matches, or the live record itself when there is no
	// snapshot at all.
	NoDittoInclusive
	// Without behaves exactly like NoDittoInclusive.
	Without
)

// ParseMode converts a config/CLI string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "any":
		return Any, nil
	case "ditto-only":
		return DittoOnly, nil
	case "no-ditto-exclusive":
		return NoDittoExclusive, nil
	case "no-ditto-inclusive":
		return NoDittoInclusive, nil
	case "without":
		return Without, nil
	default:
		return Any, fmt.Errorf("unknown last-snap mode %q (want any, ditto-only, no-ditto-exclusive, no-ditto-inclusive, or without)", s)
	}
}

// LastSnap reduces every entry in m to its representative version under
// mode. An entry absent from the result had nothing to report under mode
// (e.g. DittoOnly with no ditto present).
func (m *Map) LastSnap(mode Mode) map[string][]string {
	out := make(map[string][]string, len(m.entries))

	for key, e := range m.entries {
		if recs := lastSnapFor(e, mode); len(recs) > 0 {
			out[key] = recordPaths(recs)
		}
	}

	return out
}

func recordPaths(recs []*paths.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Path)
	}

	return out
}

func lastSnapFor(e *Entry, mode Mode) []*paths.Record {
	if len(e.Snaps) == 0 {
		switch mode {
		case Without, NoDittoInclusive:
			if e.Live != nil && e.Live.Metadata != nil {
				return []*paths.Record{e.Live}
			}
		case Any, DittoOnly, NoDittoExclusive:
		}

		return nil
	}

	last := e.Snaps[len(e.Snaps)-1]

	isDitto := e.Live != nil && e.Live.Metadata != nil &&
		last.MetadataOrPhantom() == e.Live.MetadataOrPhantom()

	switch mode {
	case Any:
		return []*paths.Record{last}
	case DittoOnly:
		if isDitto {
			return []*paths.Record{last}
		}

		return nil
	case NoDittoExclusive:
		if isDitto {
			return nil
		}

		return []*paths.Record{last}
	case Without, NoDittoInclusive:
		if isDitto {
			return nil
		}

		return []*paths.Record{last}
	default:
		return nil
	}
}
