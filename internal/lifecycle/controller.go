package lifecycle

import (
	"context"
	"os/signal"
	"time"

	"github.com/pkg/errors"

	"github.com/dgehri/clcache/internal/logging"
)

// Controller runs the daemon's main select loop, grounded on
// cmd/mutagen/daemon_run.go's termination select and the Rust original's
// tokio::select! idle-timer/reset/exit/ctrl-c loop. It owns no network
// state of its own - the connection server reports activity to it via
// ResetIdle, and an exit-command handler reports shutdown via RequestExit.
type Controller struct {
	idleTimeout time.Duration
	logger      *logging.Logger
	reset       chan struct{}
	exit        chan struct{}
}

// NewController creates a Controller with the given idle timeout. A timeout
// of zero or less disables idle-exit; the daemon then runs until an explicit
// exit command or an OS interrupt.
func NewController(idleTimeout time.Duration, logger *logging.Logger) *Controller {
	return &Controller{
		idleTimeout: idleTimeout,
		logger:      logger,
		reset:       make(chan struct{}, 1),
		exit:        make(chan struct{}),
	}
}

// ResetIdle notifies the controller of accepted-connection activity,
// restarting the idle countdown. Safe to call concurrently and from the
// connection server's accept loop.
func (c *Controller) ResetIdle() {
	select {
	case c.reset <- struct{}{}:
	default:
		// A pending reset already covers this notification.
	}
}

// RequestExit notifies the controller that an explicit exit command was
// received, causing Run to return.
func (c *Controller) RequestExit() {
	select {
	case <-c.exit:
		// Already requested.
	default:
		close(c.exit)
	}
}

// Run blocks until the idle timer expires, an explicit exit is requested, an
// OS interrupt arrives, or ctx is cancelled. It returns nil on idle timeout,
// exit request or interrupt; if ctx is cancelled it returns ctx's error,
// wrapped.
func (c *Controller) Run(ctx context.Context) error {
	signalCtx, stop := signal.NotifyContext(ctx, terminationSignals...)
	defer stop()

	var idle <-chan time.Time
	var timer *time.Timer
	if c.idleTimeout > 0 {
		timer = time.NewTimer(c.idleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		select {
		case <-c.reset:
			c.logger.Debug("resetting idle timer")
			if timer != nil {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(c.idleTimeout)
			}
		case <-idle:
			c.logger.Info("idle timeout elapsed, shutting down")
			return nil
		case <-c.exit:
			c.logger.Info("exit requested, shutting down")
			return nil
		case <-signalCtx.Done():
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), "daemon context cancelled")
			}
			c.logger.Info("received interrupt, shutting down")
			return nil
		}
	}
}
