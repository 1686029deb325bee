//go:build darwin

package nativefile

import (
	"os"

	"golang.org/x/sys/unix"
)

func openPlatform(path string, sizeHint int64) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}

	// darwin has no Fallocate equivalent in x/sys/unix; F_PREALLOCATE via
	// fcntl would work but needs cgo-free struct plumbing this writer does
	// not otherwise need, so preallocation is Linux-only and sizeHint is
	// simply ignored here.
	_ = sizeHint

	return &File{
		File:   f,
		unlock: func() error { return unix.Flock(int(f.Fd()), unix.LOCK_UN) },
	}, nil
}
