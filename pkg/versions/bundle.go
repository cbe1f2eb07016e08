// Package versions resolves a path to every version of it this module can
// find: the live file (if any) plus one snapshot copy per snapshot mount of
// each dataset of interest, sorted and deduplicated per an operator's
// uniqueness policy.
package versions

import (
	"os"
	"path/filepath"

	"github.com/jrsnow/timewalk/pkg/dataset"
	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
)

// ProximateDatasetAndOptAlts resolves a record's proximate dataset (or
// alias target) and the replicated alternates, if any, that should also be
// searched for versions. Its DatasetsOfInterest order puts alternates
// before the proximate dataset itself. Version lookup sorts the combined
// records by metadata afterwards with an unstable sort, so this order does
// not decide which of two records with equal metadata is kept.
type ProximateDatasetAndOptAlts struct {
	Record           *paths.Record
	ProximateDataset string
	RelativePath     string
	OptAlts          []string
}

// NewProximateDatasetAndOptAlts resolves rec against inv, preferring an
// alias mapping over ordinary ancestor-walk resolution.
func NewProximateDatasetAndOptAlts(
	rec *paths.Record,
	inv *inventory.Inventory,
) (*ProximateDatasetAndOptAlts, error) {
	d := dataset.New(rec, inv)

	var proximate, relative string

	if mount, rel, ok := d.Alias(); ok {
		proximate, relative = mount, rel
	} else {
		var err error

		proximate, err = d.ProximateDataset()
		if err != nil {
			return nil, err
		}

		relative, err = d.RelativePath(proximate)
		if err != nil {
			return nil, err
		}
	}

	return &ProximateDatasetAndOptAlts{
		Record:           rec,
		ProximateDataset: proximate,
		RelativePath:     relative,
		OptAlts:          inv.OptMapOfAlts[proximate],
	}, nil
}

// DatasetsOfInterest lists every dataset mountpoint that should be searched
// for versions of this path, alternates first then the proximate dataset
// itself.
func (p *ProximateDatasetAndOptAlts) DatasetsOfInterest() []string {
	out := make([]string, 0, len(p.OptAlts)+1)
	out = append(out, p.OptAlts...)

	return append(out, p.ProximateDataset)
}

// SearchBundle is the per-dataset unit of work: a relative path to append
// to each of that dataset's snapshot mounts.
type SearchBundle struct {
	RelativePath      string
	SnapMounts        []string
	DatasetOfInterest string
	FSType            inventory.FSType
}

// IntoSearchBundles builds one SearchBundle per dataset-of-interest that is
// present in the inventory (a configured alternate that doesn't resolve to
// a known dataset is silently skipped, matching "alternates are best
// effort").
func (p *ProximateDatasetAndOptAlts) IntoSearchBundles(inv *inventory.Inventory) ([]SearchBundle, error) {
	bundles := make([]SearchBundle, 0, len(p.OptAlts)+1)

	for _, name := range p.DatasetsOfInterest() {
		ds, ok := inv.MapOfDatasets[name]
		if !ok {
			continue
		}

		mounts, err := ListSnapMounts(ds)
		if err != nil {
			return nil, err
		}

		bundles = append(bundles, SearchBundle{
			RelativePath:      p.RelativePath,
			SnapMounts:        mounts,
			DatasetOfInterest: name,
			FSType:            ds.FSType,
		})
	}

	return bundles, nil
}

// ListSnapMounts reads a dataset's snapshot directory and returns the full
// path to each snapshot mount beneath it. Exported for pkg/deleted, which
// needs the same per-dataset snapshot-mount list that version lookup uses.
func ListSnapMounts(ds inventory.Dataset) ([]string, error) {
	entries, err := os.ReadDir(ds.SnapshotDir)
	if err != nil {
		return nil, paths.NewError(paths.KindIoError, ds.SnapshotDir, err)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, filepath.Join(ds.SnapshotDir, e.Name()))
	}

	return out, nil
}
