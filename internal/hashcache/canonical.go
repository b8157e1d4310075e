package hashcache

import (
	"path/filepath"

	"github.com/pkg/errors"
)

// canonicalize resolves path to an absolute, symlink-free form suitable for
// use as the cache's primary key. Case normalization for case-insensitive
// hosts is applied by the platform-specific normalizeCase helper.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to resolve absolute path for '%s'", path)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.Wrapf(err, "unable to resolve path '%s'", path)
	}
	return normalizeCase(resolved), nil
}

// splitDirBase computes the cleaned parent directory and base name used for
// the directory->basename secondary index. It does not require the file to
// exist and does not resolve symlinks, since it's used both for freshly
// canonicalized keys and for raw paths arriving in watcher events.
func splitDirBase(path string) (dir, base string) {
	dir, base = filepath.Split(filepath.Clean(path))
	return filepath.Clean(dir), base
}
