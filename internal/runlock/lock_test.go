package runlock

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "mergeq.lock")
	l := New(path)

	require.NoError(t, l.Acquire())
	pid, running := l.Holder()
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, running)

	require.NoError(t, l.Release())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAcquire_Reentrant(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "mergeq.lock"))

	require.NoError(t, l.Acquire())
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Release())
}

func TestAcquire_HeldByLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mergeq.lock")
	// The parent of the test binary is alive for the whole test.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())+"\n"), 0o644))

	err := New(path).Acquire()
	assert.ErrorIs(t, err, ErrLocked)
}

func TestAcquire_TakesOverStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mergeq.lock")
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o644))

	l := New(path)
	require.NoError(t, l.Acquire())
	pid, _ := l.Holder()
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquire_GarbageLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mergeq.lock")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))

	require.NoError(t, New(path).Acquire())
}

func TestRelease_NotHeld(t *testing.T) {
	dir := t.TempDir()
	l := New(filepath.Join(dir, "missing.lock"))
	assert.NoError(t, l.Release())

	other := filepath.Join(dir, "other.lock")
	require.NoError(t, os.WriteFile(other, []byte("1\n"), 0o644))
	require.NoError(t, New(other).Release())
	_, err := os.Stat(other)
	assert.NoError(t, err, "lock held by another process must stay")
}

func TestHolder_Missing(t *testing.T) {
	pid, running := New(filepath.Join(t.TempDir(), "x.lock")).Holder()
	assert.Zero(t, pid)
	assert.False(t, running)
}
