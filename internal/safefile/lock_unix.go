//go:build !windows

package safefile

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockExclusive takes a non-blocking exclusive flock on the file.
func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// flockUnlock releases the flock.
func flockUnlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
