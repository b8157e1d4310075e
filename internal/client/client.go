// Package client implements the client-mode adapter: reading a path list
// from standard input, ensuring a daemon is running for the given server id
// (spawning one if necessary), and round-tripping a single request, grounded
// on spec §4.7 and the teacher's cmd/mutagen/daemon_start.go spawn pattern.
package client

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/dgehri/clcache/internal/lifecycle"
	"github.com/dgehri/clcache/internal/lifecycle/filelock"
	"github.com/dgehri/clcache/internal/logging"
	"github.com/dgehri/clcache/internal/must"
	"github.com/dgehri/clcache/internal/protocol"
	"github.com/dgehri/clcache/internal/rundir"
	"github.com/dgehri/clcache/internal/transport"
)

// Options configures a client-mode run.
type Options struct {
	ID          string
	IdleTimeout time.Duration
	Logger      *logging.Logger
}

// Run reads newline-separated paths from in until EOF or a blank line,
// ensures a daemon is running for opts.ID, sends the assembled request, and
// writes the decoded response to out.
func Run(ctx context.Context, in io.Reader, out io.Writer, opts Options) error {
	paths, err := readPaths(in)
	if err != nil {
		return err
	}

	if err := EnsureRunning(ctx, opts.ID, opts.IdleTimeout, opts.Logger); err != nil {
		return err
	}

	conn, err := transport.Dial(ctx, opts.ID)
	if err != nil {
		return errors.Wrap(err, "unable to connect to daemon")
	}
	defer conn.Close()

	request := protocol.EncodePathListRequest(paths)
	conn.SetWriteDeadline(time.Now().Add(transport.WriteTimeout))
	if _, err := conn.Write(request); err != nil {
		return errors.Wrap(err, "unable to send request")
	}

	response, err := readResponse(conn)
	if err != nil {
		return err
	}

	_, err = out.Write(response)
	return err
}

// readPaths reads newline-separated paths from r, stopping at EOF or the
// first blank line, per spec §4.7.
func readPaths(r io.Reader) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read paths from standard input")
	}
	return paths, nil
}

func readResponse(conn net.Conn) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(transport.ReadTimeout))
	reader := bufio.NewReaderSize(conn, 4096)
	payload, err := reader.ReadBytes(protocol.Terminator)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read response")
	}
	return payload[:len(payload)-1], nil
}

// EnsureRunning guarantees that a daemon is listening for id, spawning a
// detached instance if none is found, per spec §4.7's double-checked idiom:
// open the singleton lock non-blocking; if held by another process the
// daemon is alive; otherwise take a dedicated spawn-guard lock, re-check,
// and spawn only if the daemon is still absent.
func EnsureRunning(ctx context.Context, id string, idleTimeout time.Duration, logger *logging.Logger) error {
	if running, err := daemonRunning(id, logger); err != nil {
		return err
	} else if running {
		return nil
	}

	guardPath, err := rundir.Path("clcache-" + id + ".spawn")
	if err != nil {
		return err
	}
	guard, err := filelock.New(guardPath, 0600)
	if err != nil {
		return errors.Wrap(err, "unable to create spawn guard")
	}
	defer must.Close(guard, logger)

	if err := guard.Lock(true); err != nil {
		return errors.Wrap(err, "unable to acquire spawn guard")
	}
	defer func() {
		if err := guard.Unlock(); err != nil {
			logger.Warn(errors.Wrap(err, "unable to release spawn guard"))
		}
	}()

	if running, err := daemonRunning(id, logger); err != nil {
		return err
	} else if running {
		return nil
	}

	if err := spawn(id, idleTimeout); err != nil {
		return errors.Wrap(err, "unable to spawn daemon")
	}

	return lifecycle.WaitReady(ctx, id)
}

// daemonRunning reports whether a daemon currently holds the singleton lock
// for id. It never leaves the lock held: if no daemon is running, the
// singleton is acquired transiently and released immediately.
func daemonRunning(id string, logger *logging.Logger) (bool, error) {
	singleton, err := lifecycle.AcquireSingleton(id, logger)
	if err != nil {
		if errors.Is(err, lifecycle.ErrAlreadyRunning) {
			return true, nil
		}
		return false, err
	}
	if err := singleton.Release(); err != nil {
		return false, err
	}
	return false, nil
}

// spawn starts a detached copy of the current executable in daemon mode for
// the given server id and idle timeout.
func spawn(id string, idleTimeout time.Duration) error {
	executablePath, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "unable to determine executable path")
	}

	cmd := &exec.Cmd{
		Path: executablePath,
		Args: []string{
			executablePath,
			"--id", id,
			"--idle-timeout", strconv.Itoa(int(idleTimeout.Seconds())),
		},
		SysProcAttr: daemonProcessAttributes(),
	}
	return cmd.Start()
}
