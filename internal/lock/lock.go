// Package lock keeps two engines from sharing one data directory.
package lock

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

var ErrLocked = errors.New("data directory is in use by another engine")

type Lock struct {
	fl *flock.Flock
}

// Acquire takes an exclusive, non-blocking lock on dataDir/engine.lock.
func Acquire(dataDir string) (*Lock, error) {
	fl := flock.New(filepath.Join(dataDir, "engine.lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dataDir)
	}
	return &Lock{fl: fl}, nil
}

func (l *Lock) Path() string { return l.fl.Path() }

func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
