// Package protocol implements the daemon's wire framing: a NUL-terminated
// request whose first byte discriminates a command from a path list, and a
// NUL-terminated response that is either a digest list or an error report.
// Framing is bit-exact with spec §4.4/§6 - there is no length prefix.
package protocol

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Terminator is the sole framing byte: every request and response ends with
// exactly one of these.
const Terminator = 0x00

// Commands recognized in a '*'-prefixed request.
const (
	CommandClear = "clear"
	CommandExit  = "exit"
)

// Kind discriminates a decoded Request.
type Kind int

const (
	// KindPathList is a request carrying an ordered list of file paths.
	KindPathList Kind = iota
	// KindCommand is a request carrying a single '*'-prefixed command.
	KindCommand
)

// Request is a decoded request frame.
type Request struct {
	Kind Kind

	// Command holds the command name for KindCommand requests ("clear",
	// "exit", or an arbitrary unrecognized string).
	Command string

	// Paths holds the ordered, non-empty path list for KindPathList
	// requests. Any trailing '?' do-not-monitor marker has already been
	// stripped; monitoring mode is a cache-wide, construction-time choice
	// per spec §9, so the marker carries no behavioral effect here and is
	// accepted purely for wire compatibility.
	Paths []string
}

// DecodeRequest decodes a request payload - the bytes of a request frame
// excluding its terminating NUL.
func DecodeRequest(payload []byte) (Request, error) {
	if !utf8.Valid(payload) {
		return Request{}, errors.New("request payload is not valid UTF-8")
	}

	if len(payload) > 0 && payload[0] == '*' {
		return Request{Kind: KindCommand, Command: string(payload[1:])}, nil
	}

	var paths []string
	for _, line := range strings.Split(string(payload), "\n") {
		if line == "" {
			continue
		}
		paths = append(paths, strings.TrimSuffix(line, "?"))
	}
	return Request{Kind: KindPathList, Paths: paths}, nil
}

// EncodePathListRequest encodes a client request carrying an ordered list of
// file paths, one per line.
func EncodePathListRequest(paths []string) []byte {
	var b strings.Builder
	for _, path := range paths {
		b.WriteString(path)
		b.WriteByte('\n')
	}
	return terminate([]byte(b.String()))
}

// EncodeCommandRequest encodes a client request carrying a single
// '*'-prefixed command.
func EncodeCommandRequest(command string) []byte {
	return terminate([]byte("*" + command))
}

// EncodeOK encodes the "*ok\n" response sent for both clear and exit.
func EncodeOK() []byte {
	return terminate([]byte("*ok\n"))
}

// EncodeUnknownCommand encodes the literal response for an unrecognized
// command.
func EncodeUnknownCommand() []byte {
	return terminate([]byte("Unknown command"))
}

// EncodeDigests encodes a successful path-list response: each digest
// followed by a newline, in input order.
func EncodeDigests(digests []string) []byte {
	var b strings.Builder
	for _, d := range digests {
		b.WriteString(d)
		b.WriteByte('\n')
	}
	return terminate([]byte(b.String()))
}

// EncodeError encodes a failure response: a leading '!' followed by a
// UTF-8 error message.
func EncodeError(message string) []byte {
	return terminate(append([]byte{'!'}, []byte(message)...))
}

func terminate(payload []byte) []byte {
	return append(payload, Terminator)
}
