// Package must provides small helpers for operations whose errors are worth
// logging but not worth propagating - typically best-effort cleanup during
// shutdown or error paths, grounded on the mutagen daemon's own must package.
package must

import (
	"io"
	"os"

	"github.com/dgehri/clcache/internal/logging"
)

// Close closes c, logging (but not returning) any error.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("unable to close: %s", err.Error())
	}
}

// OSRemove removes the file at path, logging (but not returning) any error
// other than the file already being absent.
func OSRemove(path string, logger *logging.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warnf("unable to remove '%s': %s", path, err.Error())
	}
}
