package versions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/sirupsen/logrus"
)

// Entry is one requested path's live record plus its deduplicated snapshot
// history.
type Entry struct {
	Live  *paths.Record
	Snaps []*paths.Record
}

// Map is a BTreeMap<PathData, Vec<PathData>>-equivalent: requested paths,
// ordered, each with its resolved live + snapshot versions.
type Map struct {
	keys    []string
	entries map[string]*Entry
}

// Keys returns the requested paths in sorted order.
func (m *Map) Keys() []string {
	return m.keys
}

// Entry returns the resolved versions for one requested path.
func (m *Map) Entry(path string) (*Entry, bool) {
	e, ok := m.entries[path]

	return e, ok
}

// NewMap resolves every path in requested against inv, building one Entry
// per path. A path whose record cannot be built is logged and left out of
// the map. A path whose version lookup fails is logged and gets an Entry
// with no snapshots, unless the failure is fatal (permission denied), which
// aborts the whole build. If every resolved entry ends up with neither a live nor any
// snapshot record, NewMap returns an error -- the global failure condition
// spec.md's version-lookup component defines.
func NewMap(
	ctx context.Context,
	log logrus.FieldLogger,
	requested []string,
	inv *inventory.Inventory,
	uniqueness paths.Uniqueness,
) (*Map, error) {
	m := &Map{entries: make(map[string]*Entry, len(requested))}

	for _, p := range requested {
		liveRec, err := paths.NewRecord(p)
		if err != nil {
			log.WithError(err).WithField("path", p).Warn("Could not resolve requested path")

			continue
		}

		entry := &Entry{Live: liveRec}

		v, err := New(ctx, liveRec, inv, uniqueness)
		if err != nil {
			var pathErr *paths.Error
			if errors.As(err, &pathErr) && pathErr.Fatal() {
				return nil, err
			}

			log.WithError(err).WithField("path", p).Warn("Could not look up versions for path")
		} else {
			entry.Snaps = v.Records
		}

		m.keys = append(m.keys, liveRec.Path)
		m.entries[liveRec.Path] = entry
	}

	sort.Strings(m.keys)

	if m.allEmpty() {
		return nil, fmt.Errorf("%w: neither a live version, nor any snapshot version exists for any of the requested paths", ErrNoVersionsAnywhere)
	}

	return m, nil
}

func (m *Map) allEmpty() bool {
	for _, e := range m.entries {
		if e.Live != nil && e.Live.Metadata != nil {
			return false
		}

		if len(e.Snaps) > 0 {
			return false
		}
	}

	return true
}

// OmitDitto drops the trailing snapshot record of each entry when its
// metadata exactly matches the live record's -- the live file hasn't
// changed since that snapshot was taken, so showing it twice (once as
// "live", once as the latest snapshot) would be redundant.
func (m *Map) OmitDitto() {
	for _, e := range m.entries {
		if e.Live == nil || e.Live.Metadata == nil || len(e.Snaps) == 0 {
			continue
		}

		last := e.Snaps[len(e.Snaps)-1]
		if last.MetadataOrPhantom() == e.Live.MetadataOrPhantom() {
			e.Snaps = e.Snaps[:len(e.Snaps)-1]
		}
	}
}
