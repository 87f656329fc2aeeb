//go:build !windows

package runlock

import "syscall"

// alive reports whether a process with pid exists. Signal 0 only checks.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
