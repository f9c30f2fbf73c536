// Package pidlock keeps a second shaderlock from starting while one is
// running.
package pidlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"golang.org/x/sys/unix"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("another instance is already running")

// Lock is a held exclusive flock on a pid file.
type Lock struct {
	path string
	file *os.File
}

// DefaultPath is the lock file in the XDG runtime directory.
func DefaultPath(name string) string {
	return filepath.Join(xdg.RuntimeDir, name+".lock")
}

// Acquire creates path if needed, takes a non-blocking exclusive lock on it
// and writes the current pid into it.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("write pid: %w", err)
	}
	return &Lock{path: path, file: f}, nil
}

// Path is the lock file location.
func (l *Lock) Path() string { return l.path }

// Release removes the file and drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	rmErr := os.Remove(l.path)
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if errors.Is(rmErr, os.ErrNotExist) {
		rmErr = nil
	}
	return errors.Join(rmErr, unlockErr, closeErr)
}
