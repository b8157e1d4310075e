// Package filelock provides a cross-platform exclusive file lock used to
// enforce the daemon's single-instance invariant, grounded on the mutagen
// daemon's pkg/filesystem/locking package.
package filelock

import (
	"os"

	"github.com/pkg/errors"
)

// Locker provides file locking facilities on top of a single open file
// descriptor/handle.
type Locker struct {
	file *os.File
}

// New opens (creating if necessary) the file at path and returns a Locker
// for it in an unlocked state.
func New(path string, permissions os.FileMode) (*Locker, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, permissions)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open lock file")
	}
	return &Locker{file: file}, nil
}

// Close closes the underlying file, which also drops any lock still held
// through it; callers normally Unlock first.
func (l *Locker) Close() error {
	return l.file.Close()
}
