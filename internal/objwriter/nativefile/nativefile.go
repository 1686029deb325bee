// Package nativefile opens the emitter's output object file with the same
// per-OS locking discipline the teacher codebase applies to its async I/O
// backends (see internal/runtime/asyncio's epoll/iocp/kqueue split): one
// exclusive lock per file, held from Open until Close, plus a best-effort
// preallocation of the estimated final size so the container backend's
// sequential writes don't force repeated file growth. container.Writer opens,
// writes and closes the file inside its own Close, so the lock covers that
// final write, not the whole life of the Writer Handle.
package nativefile

import "os"

// File wraps an *os.File along with whatever OS-native lock/preallocation
// state the platform-specific Open needs to release on Close.
type File struct {
	*os.File

	unlock func() error
}

// Close releases any OS-native lock before closing the underlying file.
func (f *File) Close() error {
	var unlockErr error
	if f.unlock != nil {
		unlockErr = f.unlock()
	}

	closeErr := f.File.Close()
	if unlockErr != nil {
		return unlockErr
	}

	return closeErr
}

// Open creates (or truncates) path for exclusive writing and preallocates
// sizeHint bytes when the platform supports it. sizeHint is advisory — zero
// or a wrong guess never causes a failure, only a missed optimization.
func Open(path string, sizeHint int64) (*File, error) {
	return openPlatform(path, sizeHint)
}
