//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd || windows)

package lockedfile

import (
	"os"
	"sync"
)

// Platforms without advisory locks only get in-process exclusion.
var (
	mu   sync.Mutex
	held = map[string]*sync.Mutex{}
)

func lockFile(f *os.File) error {
	mu.Lock()
	m, ok := held[f.Name()]
	if !ok {
		m = new(sync.Mutex)
		held[f.Name()] = m
	}
	mu.Unlock()
	m.Lock()
	return nil
}

func unlockFile(f *os.File) error {
	mu.Lock()
	m := held[f.Name()]
	mu.Unlock()
	if m != nil {
		m.Unlock()
	}
	return nil
}
