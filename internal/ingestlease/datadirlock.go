package ingestlease

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// DataDirLock is an advisory cross-process lock over a data directory,
// guarding against two separate OS processes opening the same SQLite/bleve/
// hnsw state concurrently. It is the cross-process counterpart to Table:
// Table serializes ingests within one process, DataDirLock serializes
// whole-process access to the directory those ingests write into.
type DataDirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDataDirLock creates a lock for the given data directory. The lock
// file is created at <dir>/.docsearch.lock.
func NewDataDirLock(dir string) *DataDirLock {
	lockPath := filepath.Join(dir, ".docsearch.lock")
	return &DataDirLock{path: lockPath, flock: flock.New(lockPath)}
}

// Lock acquires an exclusive lock on the data directory, blocking until
// available. The directory is created if it doesn't exist.
func (l *DataDirLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire data directory lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *DataDirLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire data directory lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times or when unlocked.
func (l *DataDirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		l.locked = false
		return fmt.Errorf("release data directory lock: %w", err)
	}
	l.locked = false
	return nil
}

func (l *DataDirLock) Path() string    { return l.path }
func (l *DataDirLock) IsLocked() bool  { return l.locked }
