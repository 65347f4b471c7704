package syncrun

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// RunLock serializes sync runs against one data directory. Two concurrent
// runs would race on the same sync-state rows, so the second one fails fast
// instead of interleaving.
type RunLock struct {
	path string
	lock *flock.Flock
}

// NewRunLock prepares a lock at path without acquiring it.
func NewRunLock(path string) *RunLock {
	return &RunLock{path: path, lock: flock.New(path)}
}

// Acquire takes the lock, failing immediately when another run holds it.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("prepare lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return errors.New("another sync run is already in progress")
	}
	return nil
}

// Release drops the lock. Safe to call when the lock was never acquired.
func (l *RunLock) Release() error {
	return l.lock.Unlock()
}
