//go:build !linux

package recovery

import (
	"os"
	"syscall"
)

// processAlive reports whether pid names a running process, using the
// portable signal-0 probe. EPERM means the process exists but belongs to
// another user, which still counts as alive.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}
