//go:build !windows

package filelock

import (
	"syscall"
)

// Lock attempts to acquire the exclusive lock. If block is false and the
// lock is already held, it returns an error immediately instead of
// waiting. The lock belongs to this Locker's open file, so two Lockers on
// the same path conflict even within one process.
func (l *Locker) Lock(block bool) error {
	operation := syscall.LOCK_EX
	if !block {
		operation |= syscall.LOCK_NB
	}
	return syscall.Flock(int(l.file.Fd()), operation)
}

// Unlock releases the lock.
func (l *Locker) Unlock() error {
	return syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
}
