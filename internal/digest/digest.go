// Package digest computes content digests of files for the hash cache.
package digest

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// maxBufferSize caps the read buffer so a single huge file doesn't force a
// proportionally huge allocation; small non-empty files get a buffer sized
// to their own length instead, and empty files get the full cap.
const maxBufferSize = 1 << 20 // 1 MiB

// File streams the contents of the file at path through MD5 and returns the
// digest as a lowercase hex string. It performs no allocation proportional to
// the file's size and never consults any cache - it is pure and reentrant.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to open '%s'", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrapf(err, "unable to stat '%s'", path)
	}

	bufferSize := info.Size()
	if bufferSize > maxBufferSize || bufferSize <= 0 {
		bufferSize = maxBufferSize
	}

	reader := bufio.NewReaderSize(f, int(bufferSize))
	hasher := md5.New()
	if _, err := io.Copy(hasher, reader); err != nil {
		return "", errors.Wrapf(err, "unable to read '%s'", path)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
