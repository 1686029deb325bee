package objwriter

// WriterHandle is the narrow C-ABI-shaped interface the emitter drives. In
// production it is backed by a native container library (see package
// container, which implements this interface directly in Go rather than
// through cgo); in tests it is backed by fakewriter, which records the exact
// call sequence for assertions.
//
// Implementations are exclusively owned by one emitter instance for their
// lifetime. Close must be safe to call more than once — the second and
// subsequent calls are no-ops.
type WriterHandle interface {
	SwitchSection(name string)
	EmitAlignment(bytes int)
	EmitBlob(data []byte)
	EmitInt(value uint64, size int)
	EmitSymbolDef(name string)
	EmitSymbolRef(name string, size int, pcRelative bool, delta int64)
	EmitWinFrameInfo(method string, start, end int, blob []byte)
	EmitCFIStart(offset int)
	EmitCFIEnd(offset int)
	EmitCFIBlob(offset int, record [8]byte)
	EmitDebugFileInfo(names []string)
	EmitDebugLoc(offset int, fileID int, line, col int)
	FlushDebugLocs(method string, methodSize int)

	// ContainerVersion reports the native container's ABI version so callers
	// can gate against incompatible builds (see the semver check in
	// GatedHandleFactory). A handle that cannot report a version returns "".
	ContainerVersion() string

	// Close finalizes and releases the handle (finish_writer). Safe to call
	// more than once.
	Close() error
}

// HandleFactory opens a Writer Handle for a given output path, target OS,
// and architecture. It mirrors init_writer in the native ABI: a nil handle
// with a non-nil error means the container failed to open the target file.
type HandleFactory func(path string, os TargetOS, arch Arch) (WriterHandle, error)
