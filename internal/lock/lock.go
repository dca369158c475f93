// Package lock provides the cross-process guard every run holds for its whole duration.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrContention is returned when another process already holds the lock.
var ErrContention = errors.New("another instance is already running")

// Guard is an acquired exclusive lock on a file.
type Guard struct {
	path string
	file *os.File
}

// Acquire takes an exclusive, non-blocking advisory lock on path, creating the file
// if needed. It fails with ErrContention when the lock is held elsewhere.
func Acquire(path string) (*Guard, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create lock directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (lock %s)", ErrContention, path)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return &Guard{path: path, file: f}, nil
}

// Release unlocks and closes the file. It is safe to call more than once.
func (g *Guard) Release() error {
	if g == nil || g.file == nil {
		return nil
	}
	f := g.file
	g.file = nil

	unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	closeErr := f.Close()
	if unlockErr != nil {
		return fmt.Errorf("failed to unlock %s: %w", g.path, unlockErr)
	}
	return closeErr
}

// With runs fn while holding the lock at path and releases it on every return path,
// including a panic in fn.
func With(path string, fn func() error) (err error) {
	g, err := Acquire(path)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := g.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn()
}
