// Package server implements the daemon's connection server: the accept loop
// and per-connection request handler, grounded on spec §4.5 and the Rust
// original's handle_client loop (original_source/clcache_server/src/main.rs),
// adapted to the framing in internal/protocol.
package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/dgehri/clcache/internal/hashcache"
	"github.com/dgehri/clcache/internal/logging"
	"github.com/dgehri/clcache/internal/protocol"
	"github.com/dgehri/clcache/internal/transport"
)

// activityReporter is the subset of *lifecycle.Controller the server depends
// on, kept narrow so tests can substitute a fake without an idle timer.
type activityReporter interface {
	ResetIdle()
	RequestExit()
}

// Server accepts connections on a transport listener and serves requests
// against a hash cache.
type Server struct {
	listener net.Listener
	cache    *hashcache.Cache
	activity activityReporter
	logger   *logging.Logger
}

// New creates a Server bound to listener, serving requests against cache and
// reporting connection activity to activity.
func New(listener net.Listener, cache *hashcache.Cache, activity activityReporter, logger *logging.Logger) *Server {
	return &Server{listener: listener, cache: cache, activity: activity, logger: logger}
}

// Serve runs the accept loop until the listener is closed or ctx is
// cancelled, spawning a concurrent handler for each accepted connection so
// no connection is held up behind another, per spec §4.5.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "unable to accept connection")
		}
		s.activity.ResetIdle()
		go s.handle(conn)
	}
}

// handle services a single connection: read one request frame, decode,
// dispatch, encode and write the response, then close.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	payload, err := readFrame(conn)
	if err != nil {
		s.logger.Warn(errors.Wrap(err, "unable to read request"))
		return
	}

	request, err := protocol.DecodeRequest(payload)
	if err != nil {
		s.writeResponse(conn, protocol.EncodeError(err.Error()))
		return
	}

	s.writeResponse(conn, s.dispatch(request))
}

func (s *Server) dispatch(request protocol.Request) []byte {
	ctx := context.Background()

	switch request.Kind {
	case protocol.KindCommand:
		switch request.Command {
		case protocol.CommandClear:
			if err := s.cache.Clear(ctx); err != nil {
				return protocol.EncodeError(err.Error())
			}
			return protocol.EncodeOK()
		case protocol.CommandExit:
			s.activity.RequestExit()
			return protocol.EncodeOK()
		default:
			return protocol.EncodeUnknownCommand()
		}
	default:
		digests, err := s.cache.GetMany(ctx, request.Paths)
		if err != nil {
			return protocol.EncodeError(err.Error())
		}
		return protocol.EncodeDigests(digests)
	}
}

func (s *Server) writeResponse(conn net.Conn, response []byte) {
	conn.SetWriteDeadline(time.Now().Add(transport.WriteTimeout))
	if _, err := conn.Write(response); err != nil {
		s.logger.Warn(errors.Wrap(err, "unable to write response"))
	}
}

// readFrame reads bytes from conn up to and including the next NUL
// terminator, bounded by the configured read timeout, and returns the
// payload excluding the terminator.
func readFrame(conn net.Conn) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(transport.ReadTimeout))

	reader := bufio.NewReaderSize(conn, 4096)
	payload, err := reader.ReadBytes(protocol.Terminator)
	if err != nil {
		if err == io.EOF && len(payload) == 0 {
			return nil, errors.New("connection closed before a request was sent")
		}
		return nil, err
	}
	if len(payload) > transport.MaximumMessageSize {
		return nil, errors.New("request exceeds maximum message size")
	}
	return payload[:len(payload)-1], nil
}
