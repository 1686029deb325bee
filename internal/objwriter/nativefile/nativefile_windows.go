//go:build windows

package nativefile

import (
	"os"

	"golang.org/x/sys/windows"
)

// openPlatform opens path exclusively via CreateFile with a zero share mode,
// so no other process (in particular a second emitter run against the same
// output path) can open it concurrently, mirroring Flock's exclusivity on
// Unix — the exclusivity is enforced entirely at open time, so there is no
// separate unlock step on Close. Preallocation uses a Seek+Write of a zero
// byte at the target offset, a portable stand-in for a dedicated fallocate
// call.
func openPlatform(path string, sizeHint int64) (*File, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}

	h, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, // exclusive: no FILE_SHARE_* flags
		nil,
		windows.CREATE_ALWAYS,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, err
	}

	f := os.NewFile(uintptr(h), path)

	if sizeHint > 0 {
		if _, err := f.Seek(sizeHint-1, 0); err == nil {
			_, _ = f.Write([]byte{0})
			_, _ = f.Seek(0, 0)
		}
	}

	return &File{File: f}, nil
}
