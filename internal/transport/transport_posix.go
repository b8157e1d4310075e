//go:build !windows

package transport

import (
	"context"
	"net"
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// dial connects to the Unix-domain socket at path.
func dial(ctx context.Context, path string) (net.Conn, error) {
	dialer := &net.Dialer{}
	return dialer.DialContext(ctx, "unix", path)
}

// isBusy reports whether err indicates the endpoint is momentarily
// unavailable (the socket file does not exist yet, or the connection is
// refused because no daemon is listening on it yet) and worth retrying.
func isBusy(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)
}

// listen creates a Unix-domain socket listener at path, removing any stale
// socket file left behind by a crashed instance (the caller must already
// hold the daemon's singleton lock before calling this).
func listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "unable to remove stale endpoint")
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	if err := os.Chmod(path, 0600); err != nil {
		listener.Close()
		return nil, errors.Wrap(err, "unable to set endpoint permissions")
	}

	return listener, nil
}
