// Package fakewriter is a hand-written stand-in for the native container
// Writer Handle, used by objwriter's tests to assert on the exact ABI call
// sequence the driver produces. It plays the same role the teacher
// codebase's testrunner/mockgen would generate for a small fixed interface,
// but is written by hand here since the ABI has few methods and rarely
// changes.
package fakewriter

import "fmt"

// Call records a single native-ABI invocation.
type Call struct {
	Op   string
	Args []interface{}
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Op, c.Args)
}

// Writer records every call made to it in order. It never fails: Close
// always returns nil, and tests that need a failing open supply their own
// HandleFactory instead.
type Writer struct {
	Calls   []Call
	Version string
	closed  bool
}

// New returns an empty recording Writer reporting version as its
// ContainerVersion.
func New(version string) *Writer {
	return &Writer{Version: version}
}

func (w *Writer) record(op string, args ...interface{}) {
	w.Calls = append(w.Calls, Call{Op: op, Args: args})
}

func (w *Writer) SwitchSection(name string) { w.record("switch_section", name) }
func (w *Writer) EmitAlignment(bytes int)   { w.record("emit_alignment", bytes) }
func (w *Writer) EmitBlob(data []byte)      { w.record("emit_blob", append([]byte(nil), data...)) }
func (w *Writer) EmitInt(value uint64, size int) {
	w.record("emit_int", value, size)
}
func (w *Writer) EmitSymbolDef(name string) { w.record("emit_symbol_def", name) }
func (w *Writer) EmitSymbolRef(name string, size int, pcRelative bool, delta int64) {
	w.record("emit_symbol_ref", name, size, pcRelative, delta)
}
func (w *Writer) EmitWinFrameInfo(method string, start, end int, blob []byte) {
	w.record("emit_win_frame_info", method, start, end, append([]byte(nil), blob...))
}
func (w *Writer) EmitCFIStart(offset int) { w.record("emit_cfi_start", offset) }
func (w *Writer) EmitCFIEnd(offset int)   { w.record("emit_cfi_end", offset) }
func (w *Writer) EmitCFIBlob(offset int, record [8]byte) {
	w.record("emit_cfi_blob", offset, record)
}
func (w *Writer) EmitDebugFileInfo(names []string) {
	w.record("emit_debug_file_info", append([]string(nil), names...))
}
func (w *Writer) EmitDebugLoc(offset int, fileID int, line, col int) {
	w.record("emit_debug_loc", offset, fileID, line, col)
}
func (w *Writer) FlushDebugLocs(method string, methodSize int) {
	w.record("flush_debug_locs", method, methodSize)
}
func (w *Writer) ContainerVersion() string { return w.Version }

// Close is idempotent; a second call records nothing and returns nil rather
// than an error, matching the "never double-close" discipline of the real
// handle.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	w.record("finish_writer")

	return nil
}

// Closed reports whether Close has been called.
func (w *Writer) Closed() bool { return w.closed }

// Ops returns just the operation names, in order, for terse assertions.
func (w *Writer) Ops() []string {
	ops := make([]string, len(w.Calls))
	for i, c := range w.Calls {
		ops[i] = c.Op
	}

	return ops
}
