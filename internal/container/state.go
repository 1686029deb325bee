// Package container implements the native object-file container library
// that the emitter drives through a narrow ABI (see objwriter.WriterHandle).
// In a real toolchain this ABI is satisfied by a linked native library
// reached through cgo; here — as the teacher codebase already does for its
// own minimal COFF/ELF/Mach-O writers — it is implemented directly in Go,
// producing real container bytes without an external dependency. The final
// write goes through objwriter/nativefile, so the handle's "exclusively
// owned, one file per handle" invariant is backed by an OS-level lock
// rather than a bare os.WriteFile.
package container

import (
	"bytes"
	"fmt"

	"github.com/orizon-lang/orizon-objemit/internal/objwriter"
	"github.com/orizon-lang/orizon-objemit/internal/objwriter/nativefile"
)

// ABIVersion is the version this container reports through ContainerVersion.
// Bump alongside any change to the accumulated state this package encodes.
const ABIVersion = "1.2.0"

// symbolRecord is one emit_symbol_def call.
type symbolRecord struct {
	Name    string
	Section string
	Offset  int
}

// relocRecord is one emit_symbol_ref call.
type relocRecord struct {
	Section    string
	Offset     int
	TargetName string
	Width      int
	PCRelative bool
	Delta      int64
}

// winFrameRecord is one emit_win_frame_info call.
type winFrameRecord struct {
	Method  string
	Section string
	Start   int
	End     int
	Blob    []byte
}

// cfiOp identifies which of the three Unix CFI directives a cfiRecord is.
type cfiOp int

const (
	cfiStartOp cfiOp = iota
	cfiEndOp
	cfiBlobOp
)

type cfiRecord struct {
	Section string
	Op      cfiOp
	Offset  int
	Blob    [8]byte
}

type debugLocRecord struct {
	Section string
	Offset  int
	FileID  int
	Line    int
	Col     int
}

type flushRecord struct {
	Method string
	Size   int
}

// state accumulates every ABI call the driver makes over the lifetime of one
// Writer Handle. Concrete backends (coff.go, elf.go, macho.go) each consume
// a finished state and lay out their own container format from it — the
// state itself carries no format-specific knowledge.
type state struct {
	arch objwriter.Arch

	sectionOrder []string
	sectionData  map[string]*bytes.Buffer
	current      string

	symbols   []symbolRecord
	relocs    []relocRecord
	winFrames []winFrameRecord
	cfi       []cfiRecord
	debugFile []string
	debugLoc  []debugLocRecord
	flushes   []flushRecord
}

func newState(arch objwriter.Arch) *state {
	return &state{arch: arch, sectionData: make(map[string]*bytes.Buffer)}
}

func (s *state) ensureSection(name string) *bytes.Buffer {
	if b, ok := s.sectionData[name]; ok {
		return b
	}

	b := &bytes.Buffer{}
	s.sectionData[name] = b
	s.sectionOrder = append(s.sectionOrder, name)

	return b
}

func (s *state) offset() int {
	return s.ensureSection(s.current).Len()
}

// Writer implements objwriter.WriterHandle by recording every call into a
// state, then delegating to a format-specific encode function on Close.
type Writer struct {
	path   string
	st     *state
	encode func(*state) ([]byte, error)
	closed bool
}

func newWriter(path string, arch objwriter.Arch, encode func(*state) ([]byte, error)) *Writer {
	return &Writer{path: path, st: newState(arch), encode: encode}
}

func (w *Writer) SwitchSection(name string) {
	w.st.current = name
	w.st.ensureSection(name)
}

func (w *Writer) EmitAlignment(alignBytes int) {
	if alignBytes <= 1 {
		return
	}

	buf := w.st.ensureSection(w.st.current)
	for buf.Len()%alignBytes != 0 {
		buf.WriteByte(0)
	}
}

func (w *Writer) EmitBlob(data []byte) {
	w.st.ensureSection(w.st.current).Write(data)
}

func (w *Writer) EmitInt(value uint64, size int) {
	buf := w.st.ensureSection(w.st.current)
	for i := 0; i < size; i++ {
		buf.WriteByte(byte(value >> (8 * i)))
	}
}

func (w *Writer) EmitSymbolDef(name string) {
	w.st.symbols = append(w.st.symbols, symbolRecord{
		Name:    name,
		Section: w.st.current,
		Offset:  w.st.offset(),
	})
}

func (w *Writer) EmitSymbolRef(name string, size int, pcRelative bool, delta int64) {
	w.st.relocs = append(w.st.relocs, relocRecord{
		Section:    w.st.current,
		Offset:     w.st.offset(),
		TargetName: name,
		Width:      size,
		PCRelative: pcRelative,
		Delta:      delta,
	})
	// The container reserves the slot for the linker to patch at link time.
	// The addend is baked into the slot bytes (implicit-addend relocation,
	// as COFF and Mach-O require); ELF additionally carries it in the RELA
	// entry itself.
	buf := w.st.ensureSection(w.st.current)
	for i := 0; i < size; i++ {
		buf.WriteByte(byte(delta >> (8 * i)))
	}
}

func (w *Writer) EmitWinFrameInfo(method string, start, end int, blob []byte) {
	w.st.winFrames = append(w.st.winFrames, winFrameRecord{
		Method:  method,
		Section: w.st.current,
		Start:   start,
		End:     end,
		Blob:    append([]byte(nil), blob...),
	})
}

func (w *Writer) EmitCFIStart(offset int) {
	w.st.cfi = append(w.st.cfi, cfiRecord{Section: w.st.current, Op: cfiStartOp, Offset: offset})
}

func (w *Writer) EmitCFIEnd(offset int) {
	w.st.cfi = append(w.st.cfi, cfiRecord{Section: w.st.current, Op: cfiEndOp, Offset: offset})
}

func (w *Writer) EmitCFIBlob(offset int, record [8]byte) {
	w.st.cfi = append(w.st.cfi, cfiRecord{Section: w.st.current, Op: cfiBlobOp, Offset: offset, Blob: record})
}

func (w *Writer) EmitDebugFileInfo(names []string) {
	w.st.debugFile = append([]string(nil), names...)
}

func (w *Writer) EmitDebugLoc(offset int, fileID int, line, col int) {
	w.st.debugLoc = append(w.st.debugLoc, debugLocRecord{
		Section: w.st.current,
		Offset:  offset,
		FileID:  fileID,
		Line:    line,
		Col:     col,
	})
}

func (w *Writer) FlushDebugLocs(method string, methodSize int) {
	w.st.flushes = append(w.st.flushes, flushRecord{Method: method, Size: methodSize})
}

func (w *Writer) ContainerVersion() string { return ABIVersion }

func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	b, err := w.encode(w.st)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", w.path, err)
	}

	// The output file is opened exclusively and preallocated to the final
	// encoded size, the same discipline the ABI's "one handle per file"
	// invariant demands of a native container library reached over cgo.
	f, err := nativefile.Open(w.path, int64(len(b)))
	if err != nil {
		return fmt.Errorf("opening %s: %w", w.path, err)
	}

	if _, err := f.Write(b); err != nil {
		f.Close()

		return fmt.Errorf("writing %s: %w", w.path, err)
	}

	return f.Close()
}

var _ objwriter.WriterHandle = (*Writer)(nil)
