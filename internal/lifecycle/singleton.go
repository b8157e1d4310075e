// Package lifecycle implements the daemon's startup/shutdown orchestration:
// the single-instance guard, the ready handshake, and the idle-timeout main
// loop, grounded on the mutagen daemon's pkg/daemon (lock.go, ipc.go) and
// cmd/mutagen/daemon_run.go, generalized to a single cross-platform design
// per spec §9's direction for non-Windows hosts.
package lifecycle

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/dgehri/clcache/internal/lifecycle/filelock"
	"github.com/dgehri/clcache/internal/logging"
	"github.com/dgehri/clcache/internal/must"
	"github.com/dgehri/clcache/internal/rundir"
)

// ErrAlreadyRunning indicates that another daemon instance already holds the
// singleton lock for the given id.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Singleton represents the daemon's exclusive claim on a server id. Only one
// process may hold a Singleton for a given id at a time.
type Singleton struct {
	locker *filelock.Locker
	logger *logging.Logger
}

// AcquireSingleton attempts to acquire the singleton lock for id. If another
// process already holds it, it returns ErrAlreadyRunning - the caller should
// treat this as a clean, zero-exit-code no-op per spec §4.6/§7.
func AcquireSingleton(id string, logger *logging.Logger) (*Singleton, error) {
	path, err := rundir.Path(fmt.Sprintf("clcache-%s.lock", id))
	if err != nil {
		return nil, errors.Wrap(err, "unable to compute singleton lock path")
	}

	locker, err := filelock.New(path, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create singleton locker")
	}
	if err := locker.Lock(false); err != nil {
		must.Close(locker, logger)
		return nil, ErrAlreadyRunning
	}

	return &Singleton{locker: locker, logger: logger}, nil
}

// Release releases the singleton lock. It should be deferred immediately
// after a successful AcquireSingleton.
func (s *Singleton) Release() error {
	if err := s.locker.Unlock(); err != nil {
		must.Close(s.locker, s.logger)
		return errors.Wrap(err, "unable to release singleton lock")
	}
	return s.locker.Close()
}
