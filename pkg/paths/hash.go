package paths

import (
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// hashChunkSize is the read buffer used while streaming a file through the
// hasher.
const hashChunkSize = 64 * 1024

// ContentHash returns the BLAKE2b-256 digest of the file at r.Path,
// computed at most once per Record and cached for subsequent calls. A
// directory or a path with no regular file contents returns an error.
func (r *Record) ContentHash() ([32]byte, error) {
	r.hashOnce.Do(func() {
		r.hashVal, r.hashErr = hashFile(r.Path)
	})

	return r.hashVal, r.hashErr
}

func hashFile(path string) ([32]byte, error) {
	var zero [32]byte

	f, err := os.Open(path)
	if err != nil {
		return zero, NewError(KindIoError, path, err)
	}
	defer func() { _ = f.Close() }()

	h, err := blake2b.New256(nil)
	if err != nil {
		return zero, err
	}

	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return zero, NewError(KindIoError, path, err)
	}

	var out [32]byte

	copy(out[:], h.Sum(nil))

	return out, nil
}

// SameContents reports whether a and b hash to the same BLAKE2b-256 digest.
// Both hashes are computed (and memoized) as needed; an error from either
// side is returned to the caller rather than treated as "not equal".
func SameContents(a, b *Record) (bool, error) {
	ha, err := a.ContentHash()
	if err != nil {
		return false, err
	}

	hb, err := b.ContentHash()
	if err != nil {
		return false, err
	}

	return ha == hb, nil
}
