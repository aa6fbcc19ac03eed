//go:build linux

package recovery

import (
	"fmt"
	"os"
)

// processAlive reports whether pid names a running process. On Linux the
// procfs entry is authoritative and needs no signal permission.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	return err == nil
}
