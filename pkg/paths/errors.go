package paths

import "fmt"

// Kind identifies one of the error categories a path operation can fail with.
type Kind int

const (
	// KindNoProximateDataset means no ancestor of a path matches a known dataset mountpoint.
	KindNoProximateDataset Kind = iota
	// KindNoRelativePath means a relative path could not be computed against a resolved dataset.
	KindNoRelativePath
	// KindNoVersions means neither a live nor a snapshot version exists for a path.
	KindNoVersions
	// KindSnapshotPermissionDenied means a snapshot mount could not be read due to permissions.
	// Callers should treat this kind as fatal, matching the non-continuable case in the
	// collaborator's interactive browser.
	KindSnapshotPermissionDenied
	// KindIoError wraps an underlying filesystem error that isn't one of the kinds above.
	KindIoError
	// KindBadInput means a caller-supplied path or argument was malformed.
	KindBadInput
)

func (k Kind) String() string {
	switch k {
	case KindNoProximateDataset:
		return "no_proximate_dataset"
	case KindNoRelativePath:
		return "no_relative_path"
	case KindNoVersions:
		return "no_versions"
	case KindSnapshotPermissionDenied:
		return "snapshot_permission_denied"
	case KindIoError:
		return "io_error"
	case KindBadInput:
		return "bad_input"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by this package and by pkg/dataset
// and pkg/versions, which share the same error kinds.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether this error kind should abort the calling operation
// entirely rather than being skipped for the offending path.
func (e *Error) Fatal() bool {
	return e.Kind == KindSnapshotPermissionDenied
}

// NewError builds an Error of the given kind for path, optionally wrapping cause.
func NewError(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Err: cause}
}
