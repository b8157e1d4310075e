//go:build windows

package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/user"
	"strings"

	"github.com/Microsoft/go-winio"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// dial reads the recorded pipe name from path and connects to it, mirroring
// the teacher's pkg/ipc/ipc_windows.go.
func dial(ctx context.Context, path string) (net.Conn, error) {
	pipeNameBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read pipe name record")
	}
	return winio.DialPipeContext(ctx, string(pipeNameBytes))
}

// isBusy reports whether err indicates the named pipe is momentarily
// unavailable (the pipe-name record doesn't exist yet, or the pipe reports
// ERROR_PIPE_BUSY while the server recreates its listener for the next
// client) and worth retrying.
func isBusy(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "busy")
}

// pipeListener wraps a named-pipe net.Listener to additionally clean up the
// pipe-name record file on Close, mirroring pkg/ipc/ipc_windows.go.
type pipeListener struct {
	net.Listener
	recordPath string
}

func (l *pipeListener) Close() error {
	os.Remove(l.recordPath)
	return l.Listener.Close()
}

// listen creates a new named pipe, records its (randomized) name at path,
// and returns a listener that cleans up the record file on Close.
func listen(path string) (net.Listener, error) {
	randomUUID, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate pipe name")
	}
	pipeName := fmt.Sprintf(`\\.\pipe\clcache-%s`, randomUUID.String())

	currentUser, err := user.Current()
	if err != nil {
		return nil, errors.Wrap(err, "unable to look up current user")
	}

	// Grant full access only to the owning SID, preventing other local
	// users from connecting to the cache daemon.
	securityDescriptor := fmt.Sprintf("D:P(A;;GA;;;%s)", currentUser.Uid)

	rawListener, err := winio.ListenPipe(pipeName, &winio.PipeConfig{
		SecurityDescriptor: securityDescriptor,
	})
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		rawListener.Close()
		if os.IsExist(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "unable to create pipe name record")
	}
	defer file.Close()

	if _, err := file.WriteString(pipeName); err != nil {
		rawListener.Close()
		return nil, errors.Wrap(err, "unable to write pipe name record")
	}

	return &pipeListener{Listener: rawListener, recordPath: path}, nil
}
