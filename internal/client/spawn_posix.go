//go:build !windows

package client

import "syscall"

// daemonProcessAttributes detaches the spawned daemon into its own session
// so it outlives the client process, per the teacher's cmd/mutagen/daemon
// start_posix.go.
func daemonProcessAttributes() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true,
	}
}
