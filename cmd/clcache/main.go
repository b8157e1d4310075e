// Command clcache is the single binary implementing both the hash-caching
// daemon and the client adapter that talks to it, selected by the
// --client-mode flag, grounded on the teacher's cmd/mutagen layout and
// cmd/mutagen/daemon_run.go's server lifecycle.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dgehri/clcache/internal/client"
	"github.com/dgehri/clcache/internal/hashcache"
	"github.com/dgehri/clcache/internal/lifecycle"
	"github.com/dgehri/clcache/internal/logging"
	"github.com/dgehri/clcache/internal/server"
	"github.com/dgehri/clcache/internal/transport"
)

// defaultServerID is used when --id is not specified. It is fixed rather
// than randomly generated so that independent invocations of the client
// adapter agree on which daemon to talk to.
const defaultServerID = "9f3f6f2e-9a7b-4e36-8f8f-9a49ab0c9f43"

var rootConfiguration struct {
	id             string
	idleTimeout    int
	monitoringMode string
	clientMode     bool
	verbosity      int
}

var rootCommand = &cobra.Command{
	Use:   "clcache",
	Short: "clcache caches source file digests for a compiler wrapper",
	Run:   mainify(rootMain),
}

func init() {
	flags := rootCommand.Flags()
	flags.StringVar(&rootConfiguration.id, "id", defaultServerID, "server identifier shared between client and daemon")
	flags.IntVar(&rootConfiguration.idleTimeout, "idle-timeout", 180, "idle time in seconds before the daemon exits")
	flags.StringVar(&rootConfiguration.monitoringMode, "monitoring-mode", "watch", "cache invalidation mode: watch or timestamp")
	flags.BoolVar(&rootConfiguration.clientMode, "client-mode", false, "run as the client adapter instead of the daemon")
	flags.CountVarP(&rootConfiguration.verbosity, "verbose", "v", "increase logging verbosity (repeatable)")
}

// mainify wraps an error-returning entry point in a standard Cobra Run
// function, letting the entry point rely on defer-based cleanup instead of
// terminating the process directly.
func mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		if err := entry(command, arguments); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	}
}

func rootMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 0 {
		return errors.New("unexpected arguments provided")
	}

	level := logging.LevelForVerbosity(rootConfiguration.verbosity)
	logger := logging.NewLogger(level, os.Stderr)

	idleTimeout := time.Duration(rootConfiguration.idleTimeout) * time.Second

	if rootConfiguration.clientMode {
		return runClient(rootConfiguration.id, idleTimeout, logger)
	}
	return runDaemon(rootConfiguration.id, idleTimeout, rootConfiguration.monitoringMode, logger)
}

func runClient(id string, idleTimeout time.Duration, logger *logging.Logger) error {
	return client.Run(context.Background(), os.Stdin, os.Stdout, client.Options{
		ID:          id,
		IdleTimeout: idleTimeout,
		Logger:      logger,
	})
}

func runDaemon(id string, idleTimeout time.Duration, monitoringModeName string, logger *logging.Logger) error {
	mode, err := hashcache.ParseMode(monitoringModeName)
	if err != nil {
		return err
	}

	singleton, err := lifecycle.AcquireSingleton(id, logger)
	if err != nil {
		if errors.Is(err, lifecycle.ErrAlreadyRunning) {
			logger.Info("another instance is already running for id '" + id + "'")
			return nil
		}
		return errors.Wrap(err, "unable to acquire singleton lock")
	}
	defer singleton.Release()

	cache, err := hashcache.New(mode, logger.Sublogger("cache"))
	if err != nil {
		return errors.Wrap(err, "unable to create hash cache")
	}
	defer cache.Close()

	listener, err := transport.Listen(id)
	if err != nil {
		return errors.Wrap(err, "unable to create listener")
	}
	defer listener.Close()

	controller := lifecycle.NewController(idleTimeout, logger.Sublogger("lifecycle"))

	srv := server.New(listener, cache, controller, logger.Sublogger("server"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(ctx)
	}()

	if err := lifecycle.SignalReady(id); err != nil {
		return errors.Wrap(err, "unable to signal readiness")
	}
	defer lifecycle.ClearReady(id, logger)

	logger.Infof("hash server is ready with idle timeout of %s", idleTimeout)

	runErr := controller.Run(context.Background())
	cancel()

	if serveErr := <-serverErrors; serveErr != nil {
		logger.Warn(errors.Wrap(serveErr, "connection server reported an error during shutdown"))
	}

	return runErr
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
