// Package rundir computes the single per-user runtime directory under which
// every named daemon object (IPC endpoint, singleton lock, ready marker)
// lives, mirroring the shared "subpath" helper pattern in the mutagen
// daemon's pkg/daemon/paths.go.
package rundir

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Path returns the path of name within the clcache runtime directory,
// creating the directory if necessary.
func Path(name string) (string, error) {
	base := os.TempDir()
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		base = xdg
	}
	dir := filepath.Join(base, "clcache")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", errors.Wrap(err, "unable to create runtime directory")
	}
	return filepath.Join(dir, name), nil
}
