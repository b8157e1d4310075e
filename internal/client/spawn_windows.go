//go:build windows

package client

import "syscall"

// detachedProcess and createNewProcessGroup mirror the CreateProcess flags
// used by the teacher's cmd/mutagen/daemon start_windows.go to spawn a
// daemon with no console and no dependence on the launching process group.
const (
	detachedProcess       = 0x00000008
	createNewProcessGroup = 0x00000200
)

func daemonProcessAttributes() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: detachedProcess | createNewProcessGroup,
	}
}
