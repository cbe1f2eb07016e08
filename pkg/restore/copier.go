// Package restore is the collaborator contract for copying a chosen
// snapshot version back to a live location (spec.md §4.8's restore
// copier). The core only decides where a restore goes; preserving mode,
// ACLs, ownership, xattrs and timestamps is the copier's job.
package restore

import (
	"context"

	"github.com/jrsnow/timewalk/pkg/paths"
)

// Copier restores one snapshot path to a live destination.
type Copier interface {
	Restore(ctx context.Context, snapshotPath, newPath string, preserveAttrs bool) error
}

// Restore runs one Copier.Restore call, validating that snapshotPath and
// newPath don't resolve to the same file first -- spec.md's BadInput
// error kind. It records nothing itself; RecordingRestore wraps it to log
// the outcome to an AuditLog.
func Restore(ctx context.Context, c Copier, snapshotPath, newPath string, preserveAttrs bool) error {
	snapRec, err := paths.NewRecord(snapshotPath)
	if err != nil {
		return err
	}

	newRec, err := paths.NewRecord(newPath)
	if err != nil {
		return err
	}

	if snapRec.Path == newRec.Path {
		return paths.NewError(paths.KindBadInput, newPath,
			errSameFile)
	}

	return c.Restore(ctx, snapshotPath, newPath, preserveAttrs)
}

var errSameFile = restoreError("snapshot path and destination resolve to the same file")

type restoreError string

func (e restoreError) Error() string { return string(e) }
