//go:build unix

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileLock holds an advisory flock on a sidecar lock file. The lock
// lives next to the data file rather than on it so an exclusive holder
// keeps excluding readers across the rename that replaces the data
// inode.
type fileLock struct {
	f *os.File
}

// acquireLock takes a shared (read) or exclusive (write) advisory lock
// on path, blocking until granted.
func acquireLock(path string, exclusive bool) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		return nil, err
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) release() {
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	_ = l.f.Close()
}
