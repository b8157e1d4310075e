package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/dgehri/clcache/internal/logging"
	"github.com/dgehri/clcache/internal/must"
	"github.com/dgehri/clcache/internal/rundir"
)

// pollInterval bounds how long WaitReady can miss a racing fsnotify Create
// event before falling back to noticing the marker via a plain stat.
const pollInterval = 100 * time.Millisecond

// readyPath computes the path of the ready marker file for id.
func readyPath(id string) (string, error) {
	return rundir.Path(fmt.Sprintf("clcache-%s.ready", id))
}

// SignalReady creates (or truncates) the ready marker for id, signaling to
// any waiting client that the daemon's listener is accepting connections.
// It substitutes for a Windows named event per spec §4.6/§9.
func SignalReady(id string) error {
	path, err := readyPath(id)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "unable to signal readiness")
	}
	return file.Close()
}

// ClearReady removes the ready marker for id. It should be called on daemon
// shutdown so a subsequent instance starts from a clean state.
func ClearReady(id string, logger *logging.Logger) {
	path, err := readyPath(id)
	if err != nil {
		return
	}
	must.OSRemove(path, logger)
}

// WaitReady blocks until the ready marker for id appears, the context is
// cancelled, or a 10 second timeout elapses (spec §4.7/§5).
func WaitReady(ctx context.Context, id string) error {
	path, err := readyPath(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			watcher.Close()
			watcher = nil
		}
	} else {
		watcher = nil
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// A nil events channel blocks forever in the select below, leaving the
	// ticker as the sole fallback when no watcher could be set up.
	var events chan fsnotify.Event
	if watcher != nil {
		events = watcher.Events
	}

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}

		select {
		case event := <-events:
			if event.Name == path {
				return nil
			}
		case <-ticker.C:
		case <-ctx.Done():
			return errors.New("timed out waiting for daemon to become ready")
		}
	}
}
