//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// shutdownSignals returns the OS signals that cancel a running batch.
func shutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}
