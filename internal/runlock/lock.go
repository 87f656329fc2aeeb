// Package runlock keeps two pipeline runs from working the same state
// directory at once. The lock is a PID file; a file left by a dead process
// is taken over.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrLocked is returned when a live process holds the lock.
var ErrLocked = errors.New("another run is in progress")

// Lock is a PID file lock.
type Lock struct {
	Path string
}

// New returns a lock backed by the file at path.
func New(path string) *Lock {
	return &Lock{Path: path}
}

// Acquire takes the lock for the current process.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	for range 2 {
		f, err := os.OpenFile(l.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
			cerr := f.Close()
			if werr != nil {
				return werr
			}
			return cerr
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create lock: %w", err)
		}

		pid, running := l.Holder()
		if running && pid != os.Getpid() {
			return fmt.Errorf("%w (pid %d, lock %s)", ErrLocked, pid, l.Path)
		}
		if err := os.Remove(l.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale lock: %w", err)
		}
	}
	return fmt.Errorf("%w (lock %s)", ErrLocked, l.Path)
}

// Release removes the lock if the current process holds it.
func (l *Lock) Release() error {
	pid, err := l.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(l.Path)
}

// Holder returns the PID in the lock file and whether that process is alive.
func (l *Lock) Holder() (int, bool) {
	pid, err := l.read()
	if err != nil {
		return 0, false
	}
	return pid, alive(pid)
}

func (l *Lock) read() (int, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid lock file content: %w", err)
	}
	return pid, nil
}
