// Package format renders a resolved versions.Map for a human (VersionsTable)
// or a machine (VersionsJSON), the two output modes spec.md's
// original_source gave paths.rs's PathMetadata serializer (default vs.
// PrintMode::Raw).
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/jrsnow/timewalk/pkg/versions"
)

// VersionRecord is one line of rendered output: a path plus the size and
// modification time observed for it, or a phantom marker if it doesn't
// exist at that point in time.
type VersionRecord struct {
	Path     string    `json:"path"`
	Phantom  bool      `json:"phantom"`
	Size     uint64    `json:"size,omitempty"`
	Modified time.Time `json:"modified,omitempty"`
}

// Entry is the rendered form of one requested path: its live record
// (if any) followed by its ordered snapshot history.
type Entry struct {
	RequestedPath string          `json:"requested_path"`
	Live          *VersionRecord  `json:"live,omitempty"`
	Snapshots     []VersionRecord `json:"snapshots"`
}

// BuildEntries flattens m into the rendered Entry form shared by both
// formatters.
func BuildEntries(m *versions.Map) []Entry {
	entries := make([]Entry, 0, len(m.Keys()))

	for _, key := range m.Keys() {
		e, ok := m.Entry(key)
		if !ok {
			continue
		}

		out := Entry{RequestedPath: key}

		if e.Live != nil {
			rec := toVersionRecord(e.Live.Path, e.Live.MetadataOrPhantom())
			out.Live = &rec
		}

		for _, snap := range e.Snaps {
			out.Snapshots = append(out.Snapshots, toVersionRecord(snap.Path, snap.MetadataOrPhantom()))
		}

		entries = append(entries, out)
	}

	return entries
}

func toVersionRecord(path string, md paths.Metadata) VersionRecord {
	if md.IsPhantom() {
		return VersionRecord{Path: path, Phantom: true}
	}

	return VersionRecord{Path: path, Size: md.Size, Modified: md.ModifyTime}
}

// VersionsTable writes entries to w as tab-aligned plain text: one section
// per requested path, live version first, then each snapshot oldest to
// newest, sizes rendered with units.HumanSize the way a human skimming a
// terminal expects.
func VersionsTable(w io.Writer, entries []Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, e := range entries {
		if _, err := fmt.Fprintf(tw, "%s\n", e.RequestedPath); err != nil {
			return err
		}

		if e.Live != nil {
			if err := writeRow(tw, "live", *e.Live); err != nil {
				return err
			}
		}

		for _, snap := range e.Snapshots {
			if err := writeRow(tw, "snap", snap); err != nil {
				return err
			}
		}
	}

	return tw.Flush()
}

func writeRow(tw *tabwriter.Writer, label string, rec VersionRecord) error {
	if rec.Phantom {
		_, err := fmt.Fprintf(tw, "  %s\t%s\t(deleted)\n", label, rec.Path)

		return err
	}

	_, err := fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
		label, rec.Path, units.HumanSize(float64(rec.Size)), rec.Modified.Format(time.RFC3339))

	return err
}

// VersionsJSON writes entries to w as a single JSON array. This is the
// "raw" mode: each record's size and modified time are whatever
// json.Marshal produces for the Go types, with no unit conversion --
// a machine consumer wants the number, not "4.2 KB".
func VersionsJSON(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(entries)
}
