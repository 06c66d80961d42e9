// Package lockedfile provides cross-process mutual exclusion backed by
// advisory file locks.
package lockedfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// A Mutex provides mutual exclusion within and across processes by locking a
// well-known file. The zero Mutex is not valid; use MutexAt.
type Mutex struct {
	path string
}

// MutexAt returns a new Mutex with the given file as its lock file.
// The file is created on first Lock if needed and never removed.
func MutexAt(path string) *Mutex {
	if path == "" {
		panic("lockedfile.MutexAt: empty path")
	}
	return &Mutex{path: path}
}

func (mu *Mutex) String() string {
	return fmt.Sprintf("lockedfile.Mutex(%s)", mu.path)
}

// Lock blocks until the exclusive lock is held and returns a function that
// releases it.
func (mu *Mutex) Lock() (unlock func(), err error) {
	if err := os.MkdirAll(filepath.Dir(mu.path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(mu.path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", mu.path, err)
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
