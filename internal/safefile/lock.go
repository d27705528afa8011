package safefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ErrLockTimeout is returned when the lock cannot be acquired within the
// configured timeout.
var ErrLockTimeout = errors.New("timed out acquiring file lock")

// DefaultLockTimeout bounds how long Acquire polls before giving up.
const DefaultLockTimeout = 10 * time.Second

// lockPollInterval is the backoff between non-blocking acquisition tries.
const lockPollInterval = 50 * time.Millisecond

// Lock is a cross-platform advisory file lock guarding a data file.
// The lock lives in a sibling file with a ".lock" suffix.
type Lock struct {
	path    string // lock file path
	timeout time.Duration
	file    *os.File
}

// NewLock creates a lock for the given data file. A non-positive timeout
// selects DefaultLockTimeout.
func NewLock(dataPath string, timeout time.Duration) *Lock {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &Lock{
		path:    dataPath + ".lock",
		timeout: timeout,
	}
}

// Acquire takes the lock, polling with a short backoff until it succeeds
// or the timeout elapses, in which case ErrLockTimeout is returned.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	deadline := time.Now().Add(l.timeout)
	for {
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return fmt.Errorf("opening lock file %s: %w", l.path, err)
		}

		if err := flockExclusive(file); err == nil {
			// PID in the lock file helps debugging stuck locks.
			_ = file.Truncate(0)
			_, _ = file.WriteString(strconv.Itoa(os.Getpid()))
			l.file = file
			return nil
		}
		file.Close()

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, l.path)
		}
		time.Sleep(lockPollInterval)
	}
}

// Release drops the lock. Safe to call on a never-acquired lock.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = flockUnlock(l.file)
	l.file.Close()
	l.file = nil
	_ = os.Remove(l.path)
}

// WithLock runs fn while holding the lock for dataPath.
func WithLock(dataPath string, timeout time.Duration, fn func() error) error {
	lock := NewLock(dataPath, timeout)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()
	return fn()
}
