package versions

import "os"

// openDirNoFollow opens a directory for a single priming read. It uses
// os.Open, which follows a symlink at path. Split out
// as its own function so tests can see exactly what the auto-mount probe
// touches on disk.
func openDirNoFollow(path string) (*os.File, error) {
	return os.Open(path)
}
