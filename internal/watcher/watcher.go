// Package watcher translates filesystem change notifications into cache
// eviction commands. It is grounded on the mutagen daemon's single-producer
// (OS notification) / single-consumer (eviction loop) channel design, but
// delegates the actual OS-level notification plumbing to fsnotify rather
// than a hand-rolled per-platform backend, since only non-recursive,
// single-directory watches are needed here.
package watcher

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/dgehri/clcache/internal/logging"
)

// EvictFunc is invoked with the path of a file that was created, modified,
// removed, or renamed. It must be non-blocking and must not be called while holding
// any lock belonging to the invoker.
type EvictFunc func(path string)

// Watcher manages a set of non-recursive directory watches and dispatches
// create/modify/remove/rename events for files within them to an EvictFunc.
type Watcher struct {
	logger  *logging.Logger
	fsw     *fsnotify.Watcher
	evict   EvictFunc
	mu      sync.Mutex
	watched map[string]struct{}
	done    chan struct{}
}

// New creates a Watcher and starts its event-draining goroutine. evict is
// called for every create/modify/remove/rename event seen on a watched
// directory.
// Create is included so an atomic replace (write temp file, rename over the
// target) evicts the destination path; evict is a no-op for basenames that
// aren't cached.
func New(logger *logging.Logger, evict EvictFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "unable to create filesystem watcher")
	}

	w := &Watcher{
		logger:  logger,
		fsw:     fsw,
		evict:   evict,
		watched: make(map[string]struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// run is the sole consumer of fsw.Events/fsw.Errors. It survives individual
// malformed events per spec §4.3.
func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.evict(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn(err)
			}
		case <-w.done:
			return
		}
	}
}

// Watch registers a non-recursive watch on dir. Transitions are idempotent:
// watching an already-watched directory is a no-op, per spec §4.3's
// Unwatched->Watched state machine.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watched[dir]; ok {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return errors.Wrapf(err, "unable to watch directory '%s'", dir)
	}
	w.watched[dir] = struct{}{}
	return nil
}

// Unwatch retires the watch on dir. It is a no-op if dir is not currently
// watched.
func (w *Watcher) Unwatch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watched[dir]; !ok {
		return nil
	}
	delete(w.watched, dir)
	if err := w.fsw.Remove(dir); err != nil {
		return errors.Wrapf(err, "unable to unwatch directory '%s'", dir)
	}
	return nil
}

// Close stops the event-draining goroutine and releases the underlying OS
// watch handles.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
