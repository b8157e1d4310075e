// Package transport provides the host-local, named, duplex endpoint that
// the connection server listens on and the client dials, grounded on the
// mutagen daemon's pkg/ipc split between a POSIX Unix-domain-socket backend
// and a Windows named-pipe backend (via go-winio).
package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/dgehri/clcache/internal/rundir"
)

const (
	// MaximumMessageSize bounds a single request frame (the server rejects a
	// larger one once read; responses are not checked), mirroring the daemon
	// constants pattern in the teacher's pkg/daemon/constants.go.
	MaximumMessageSize = 25 * 1024 * 1024

	// DialTimeout is the recommended timeout for establishing a client
	// connection to the daemon endpoint.
	DialTimeout = 1 * time.Second

	// ReadTimeout and WriteTimeout bound a single read or write on an
	// accepted connection, per spec §4.5/§5.
	ReadTimeout  = 5 * time.Second
	WriteTimeout = 5 * time.Second

	// busyRetryDelay is the client's backoff between connection attempts
	// when the endpoint reports itself busy, per spec §4.7.
	busyRetryDelay = 50 * time.Millisecond
)

// EndpointPath computes the path to the named endpoint for the given server
// id, creating the runtime directory if necessary.
func EndpointPath(id string) (string, error) {
	return rundir.Path(fmt.Sprintf("clcache-%s.sock", id))
}

// Dial attempts to connect to the daemon endpoint for id, retrying with a
// fixed backoff while the endpoint reports itself busy, per spec §4.7.
func Dial(ctx context.Context, id string) (net.Conn, error) {
	path, err := EndpointPath(id)
	if err != nil {
		return nil, err
	}

	for {
		conn, err := dial(ctx, path)
		if err == nil {
			return conn, nil
		}
		if !isBusy(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(busyRetryDelay):
		}
	}
}

// Listen creates a new daemon listener for the given server id. It must only
// be called by a process holding the daemon's singleton lock, since it may
// remove a stale endpoint left behind by a crashed instance.
func Listen(id string) (net.Listener, error) {
	path, err := EndpointPath(id)
	if err != nil {
		return nil, err
	}

	listener, err := listen(path)
	if err != nil && os.IsExist(err) {
		if removeErr := os.Remove(path); removeErr == nil {
			listener, err = listen(path)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to create listener")
	}
	return listener, nil
}
