//go:build !windows

package lifecycle

import (
	"os"
	"syscall"
)

// terminationSignals are the OS signals the daemon treats as a shutdown
// request, per the teacher's cmd/signals_posix.go.
var terminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}
