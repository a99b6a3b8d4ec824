package supervisor

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked means another process already holds the instance lock.
var ErrLocked = errors.New("another instance is already running")

// Lock is a held instance lock.
type Lock struct {
	file *flock.Flock
}

// AcquireLock takes the lock at path without waiting. The first process to
// start wins; later ones get ErrLocked.
func AcquireLock(path string) (*Lock, error) {
	file := flock.New(path)

	locked, err := file.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		_ = file.Close()
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}

	return &Lock{file: file}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.file.Path()
}

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Unlock()
}
