package paths

import (
	"io/fs"
	"path/filepath"
)

// Entry is a directory child named during a single readdir, carrying the
// file-type bits the directory read already gave us for free so callers
// don't pay for an extra stat just to tell a directory from a regular
// file. Entry is a plain comparable struct: == and map keys compare both
// Path and FileType, so two values for the same path with different
// file-type bits are distinct.
type Entry struct {
	Path     string
	FileType fs.FileMode
}

// IsDir reports whether the directory read classified this entry as a
// directory (or a symlink the caller has already resolved to one).
func (e Entry) IsDir() bool {
	return e.FileType.IsDir()
}

// EntryFromDirEntry builds an Entry from a single fs.DirEntry, joining its
// name onto parent.
func EntryFromDirEntry(parent string, de fs.DirEntry) Entry {
	return Entry{Path: filepath.Join(parent, de.Name()), FileType: de.Type()}
}
