// Package objwriter implements the object-file emitter: it walks the ordered
// node sequence produced by an external dependency-graph walker and drives a
// native container Writer Handle (see the container package) through the
// symbol, relocation, unwind and debug-line directives needed to produce a
// linkable object file.
package objwriter

import "fmt"

// TargetOS enumerates the platforms the emitter supports.
type TargetOS int

const (
	Linux TargetOS = iota
	Windows
	OSX
)

func (t TargetOS) String() string {
	switch t {
	case Linux:
		return "linux"
	case Windows:
		return "windows"
	case OSX:
		return "darwin"
	default:
		return fmt.Sprintf("TargetOS(%d)", int(t))
	}
}

// Arch enumerates the instruction-set architectures the emitter supports
// alongside TargetOS. Every (TargetOS, Arch) pair is a valid combination —
// the container backend switches machine-type and relocation-type constants
// on Arch, independently of the format switch on TargetOS.
type Arch int

const (
	AMD64 Arch = iota
	ARM64
)

func (a Arch) String() string {
	switch a {
	case AMD64:
		return "amd64"
	case ARM64:
		return "arm64"
	default:
		return fmt.Sprintf("Arch(%d)", int(a))
	}
}

// RelocKind is the set of relocation kinds the emitter knows how to lower.
// Adding a kind requires an explicit entry in relocWidths; there is no
// generic fallback.
type RelocKind int

const (
	ABS64 RelocKind = iota
	REL32
)

func (k RelocKind) String() string {
	switch k {
	case ABS64:
		return "ABS64"
	case REL32:
		return "REL32"
	default:
		return fmt.Sprintf("RelocKind(%d)", int(k))
	}
}

// relocInfo describes the fixed width/pc-relative behavior of a relocation
// kind. Any kind absent from this table is fatal — see relocWidth.
type relocInfo struct {
	width      int
	pcRelative bool
}

var relocWidths = map[RelocKind]relocInfo{
	ABS64: {width: 8, pcRelative: false},
	REL32: {width: 4, pcRelative: true},
}

// Symbol is a defined symbol at a byte offset within a node's data.
type Symbol struct {
	Name   string
	Offset int
}

// Relocation is a placeholder within node data that the container/linker
// resolves to the address of TargetSymbol plus Delta.
type Relocation struct {
	Offset       int
	Kind         RelocKind
	TargetSymbol string
	Delta        int64
}

// FrameInfo carries unwind information for a contiguous instruction range
// within a node. On Windows Blob is an opaque UNWIND_INFO record emitted
// whole; on Unix Blob is a concatenation of fixed-size (8-byte) CFI records
// whose first byte is the in-frame offset the directive applies at.
type FrameInfo struct {
	StartOffset int
	EndOffset   int
	Blob        []byte
}

// DebugLocInfo maps one byte offset in a node's data to a source location.
type DebugLocInfo struct {
	NativeOffset int
	FileName     string
	LineNumber   int
	ColNumber    int
}

// Node is one unit of emitted output — typically one compiled function or
// one data blob — produced by the (external) dependency-graph walker.
//
// The first entry of DefinedSymbols must be located at offset 0; it is the
// node's canonical name (used for frame records and debug-line flushes).
type Node interface {
	Section() string
	Alignment() int
	Data() []byte
	DefinedSymbols() []Symbol
	Relocations() []Relocation
	FrameInfos() []FrameInfo
	DebugLocInfos() []DebugLocInfo
	Name() string
	ShouldSkip() bool
	// GetData allows a node to lazily materialize its byte payload once the
	// factory (and therefore the final target) is known. Nodes that already
	// carry their bytes may simply return Data().
	GetData(factory Factory) ([]byte, error)
}

// Factory supplies target and per-symbol aliasing information the driver
// needs but that does not belong to any single node.
type Factory interface {
	TargetOS() TargetOS
	Arch() Arch
	AlternateName(symbol string) (string, bool)
}

// relocWidth resolves a RelocKind to its slot width and pc-relative flag, or
// reports it as unimplemented. Any relocation kind outside the fixed table
// is a fatal error — see design note in package errors.
func relocWidth(k RelocKind) (info relocInfo, ok bool) {
	info, ok = relocWidths[k]
	return
}
