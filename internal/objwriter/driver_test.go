package objwriter

import (
	"reflect"
	"testing"

	"github.com/orizon-lang/orizon-objemit/internal/objwriter/fakewriter"
)

func openFake(w *fakewriter.Writer) HandleFactory {
	return func(path string, os TargetOS, arch Arch) (WriterHandle, error) {
		return w, nil
	}
}

// Scenario 1: empty node with one symbol at offset 0, no relocs, no frames.
func TestEmitObject_EmptyNode(t *testing.T) {
	node := &testNode{
		section: "text",
		align:   1,
		data:    []byte{},
		symbols: []Symbol{{Name: "foo", Offset: 0}},
	}
	fw := fakewriter.New("")
	factory := &testFactory{os: Linux}

	if err := EmitObject("out.o", []Node{node}, factory, openFake(fw)); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	want := []string{"switch_section", "emit_alignment", "emit_symbol_def", "switch_section", "finish_writer"}
	if got := fw.Ops(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}

	if fw.Calls[2].Args[0] != "foo" {
		t.Fatalf("symbol def = %v, want foo", fw.Calls[2].Args[0])
	}
}

func TestEmitObject_EmptyNode_OSXUnderscore(t *testing.T) {
	node := &testNode{
		section: "text",
		align:   1,
		symbols: []Symbol{{Name: "foo", Offset: 0}},
	}
	fw := fakewriter.New("")
	factory := &testFactory{os: OSX}

	if err := EmitObject("out.o", []Node{node}, factory, openFake(fw)); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	if fw.Calls[2].Args[0] != "_foo" {
		t.Fatalf("symbol def = %v, want _foo", fw.Calls[2].Args[0])
	}
}

// Scenario 2: single REL32 relocation mid-buffer.
func TestEmitObject_SingleREL32(t *testing.T) {
	node := &testNode{
		section: "text",
		align:   1,
		data:    []byte{0x90, 0, 0, 0, 0, 0x90},
		symbols: []Symbol{{Name: "fn", Offset: 0}},
		relocs:  []Relocation{{Offset: 1, Kind: REL32, TargetSymbol: "bar", Delta: -4}},
	}
	fw := fakewriter.New("")
	factory := &testFactory{os: Linux}

	if err := EmitObject("out.o", []Node{node}, factory, openFake(fw)); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	var refCall *fakewriter.Call

	byteVals := []uint64{}

	for i := range fw.Calls {
		c := fw.Calls[i]
		switch c.Op {
		case "emit_symbol_ref":
			refCall = &fw.Calls[i]
		case "emit_int":
			byteVals = append(byteVals, c.Args[0].(uint64))
		}
	}

	if refCall == nil {
		t.Fatalf("no emit_symbol_ref recorded; calls=%v", fw.Calls)
	}

	if refCall.Args[0] != "bar" || refCall.Args[1] != 4 || refCall.Args[2] != true || refCall.Args[3] != int64(-4) {
		t.Fatalf("symbol ref = %+v, want (bar,4,true,-4)", refCall.Args)
	}

	if len(byteVals) != 2 || byteVals[0] != 0x90 || byteVals[1] != 0x90 {
		t.Fatalf("literal bytes = %v, want [0x90 0x90]", byteVals)
	}
}

// Scenario 6: ABS64 relocation.
func TestEmitObject_ABS64(t *testing.T) {
	node := &testNode{
		section: "text",
		align:   1,
		data:    make([]byte, 10),
		symbols: []Symbol{{Name: "fn", Offset: 0}},
		relocs:  []Relocation{{Offset: 2, Kind: ABS64, TargetSymbol: "sym", Delta: 0}},
	}
	fw := fakewriter.New("")
	factory := &testFactory{os: Linux}

	if err := EmitObject("out.o", []Node{node}, factory, openFake(fw)); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	literalBytes := 0
	sawRef := false

	for _, c := range fw.Calls {
		switch c.Op {
		case "emit_int":
			literalBytes++
		case "emit_symbol_ref":
			sawRef = true

			if c.Args[1] != 8 || c.Args[2] != false {
				t.Fatalf("ref args = %v, want width 8 pc_relative=false", c.Args)
			}
		}
	}

	if !sawRef {
		t.Fatalf("expected an emit_symbol_ref call")
	}

	// two literal bytes before the relocation, none after (2 + 8 == 10).
	if literalBytes != 2 {
		t.Fatalf("literal byte count = %d, want 2", literalBytes)
	}
}

// Scenario 4: alternate name at the same offset, immediately following.
func TestEmitObject_AlternateName(t *testing.T) {
	node := &testNode{
		section: "text",
		align:   1,
		data:    make([]byte, 16),
		symbols: []Symbol{{Name: "fn", Offset: 0}, {Name: "Foo", Offset: 8}},
	}
	fw := fakewriter.New("")
	factory := &testFactory{os: Linux, alts: map[string]string{"Foo": "Foo$entry"}}

	if err := EmitObject("out.o", []Node{node}, factory, openFake(fw)); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	var defs []string

	for _, c := range fw.Calls {
		if c.Op == "emit_symbol_def" {
			defs = append(defs, c.Args[0].(string))
		}
	}

	want := []string{"fn", "Foo", "Foo$entry"}
	if !reflect.DeepEqual(defs, want) {
		t.Fatalf("symbol defs = %v, want %v", defs, want)
	}
}

// Scenario 3: two adjacent Unix frames touching at offset 16.
func TestEmitObject_AdjacentUnixFrames(t *testing.T) {
	rec := func(inFrameOffset byte) []byte {
		b := make([]byte, 8)
		b[0] = inFrameOffset
		return b
	}
	node := &testNode{
		section: "text",
		align:   1,
		data:    make([]byte, 32),
		symbols: []Symbol{{Name: "fn", Offset: 0}},
		frames: []FrameInfo{
			{StartOffset: 0, EndOffset: 16, Blob: rec(0)},
			{StartOffset: 16, EndOffset: 32, Blob: rec(0)},
		},
	}
	fw := fakewriter.New("")
	factory := &testFactory{os: Linux}

	if err := EmitObject("out.o", []Node{node}, factory, openFake(fw)); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	var ops []string

	for _, c := range fw.Calls {
		if c.Op == "emit_cfi_start" || c.Op == "emit_cfi_end" || c.Op == "emit_cfi_blob" {
			if c.Args[0].(int) == 16 {
				ops = append(ops, c.Op)
			}
		}
	}

	want := []string{"emit_cfi_end", "emit_cfi_start", "emit_cfi_blob"}
	if !reflect.DeepEqual(ops, want) {
		t.Fatalf("ops at offset 16 = %v, want %v", ops, want)
	}
}

// Scenario 5: debug info present but target is Linux — must be fully
// suppressed.
func TestEmitObject_DebugInfoSuppressedOnLinux(t *testing.T) {
	node := &testNode{
		section: "text",
		align:   1,
		data:    make([]byte, 4),
		symbols: []Symbol{{Name: "fn", Offset: 0}},
		debug:   []DebugLocInfo{{NativeOffset: 0, FileName: "main.oriz", LineNumber: 1, ColNumber: 1}},
	}
	fw := fakewriter.New("")
	factory := &testFactory{os: Linux}

	if err := EmitObject("out.o", []Node{node}, factory, openFake(fw)); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	for _, c := range fw.Calls {
		if c.Op == "emit_debug_file_info" || c.Op == "emit_debug_loc" || c.Op == "flush_debug_locs" {
			t.Fatalf("unexpected debug call on Linux target: %v", c)
		}
	}
}

func TestEmitObject_DebugInfoOnWindows(t *testing.T) {
	node := &testNode{
		section: "text",
		align:   1,
		data:    make([]byte, 4),
		symbols: []Symbol{{Name: "fn", Offset: 0}},
		debug:   []DebugLocInfo{{NativeOffset: 0, FileName: "main.oriz", LineNumber: 1, ColNumber: 1}},
	}
	fw := fakewriter.New("")
	factory := &testFactory{os: Windows}

	if err := EmitObject("out.o", []Node{node}, factory, openFake(fw)); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	var sawFileInfo, sawLoc, sawFlush bool

	for _, c := range fw.Calls {
		switch c.Op {
		case "emit_debug_file_info":
			sawFileInfo = true
		case "emit_debug_loc":
			sawLoc = true
		case "flush_debug_locs":
			sawFlush = true
		}
	}

	if !sawFileInfo || !sawLoc || !sawFlush {
		t.Fatalf("expected file info, loc and flush calls on Windows; calls=%v", fw.Calls)
	}
}

func TestEmitObject_DuplicateNodeName(t *testing.T) {
	DebugChecksEnabled = true
	defer func() { DebugChecksEnabled = false }()

	a := &testNode{section: "text", align: 1, symbols: []Symbol{{Name: "fn", Offset: 0}}}
	b := &testNode{section: "text", align: 1, symbols: []Symbol{{Name: "fn", Offset: 0}}}
	fw := fakewriter.New("")
	factory := &testFactory{os: Linux}

	err := EmitObject("out.o", []Node{a, b}, factory, openFake(fw))
	if err == nil {
		t.Fatalf("expected an error for duplicate node names")
	}
}

func TestEmitObject_DuplicateNodeName_AllowedOutsideDebug(t *testing.T) {
	a := &testNode{section: "text", align: 1, symbols: []Symbol{{Name: "fn", Offset: 0}}}
	b := &testNode{section: "text", align: 1, symbols: []Symbol{{Name: "fn", Offset: 0}}}
	fw := fakewriter.New("")
	factory := &testFactory{os: Linux}

	if err := EmitObject("out.o", []Node{a, b}, factory, openFake(fw)); err != nil {
		t.Fatalf("expected no duplicate-name check outside DebugChecksEnabled, got: %v", err)
	}
}

func TestEmitObject_UnsupportedRelocKind(t *testing.T) {
	node := &testNode{
		section: "text",
		align:   1,
		data:    make([]byte, 4),
		symbols: []Symbol{{Name: "fn", Offset: 0}},
		relocs:  []Relocation{{Offset: 0, Kind: RelocKind(99), TargetSymbol: "x"}},
	}
	fw := fakewriter.New("")
	factory := &testFactory{os: Linux}

	err := EmitObject("out.o", []Node{node}, factory, openFake(fw))
	if err == nil {
		t.Fatalf("expected an error for an unsupported relocation kind")
	}
}

func TestEmitObject_ContainerInitFailure(t *testing.T) {
	factory := &testFactory{os: Linux}
	open := func(path string, os TargetOS, arch Arch) (WriterHandle, error) { return nil, nil }

	err := EmitObject("out.o", nil, factory, open)
	if err == nil {
		t.Fatalf("expected a container-init error")
	}
}

func TestEmitObject_SkipsNodesMarkedSkip(t *testing.T) {
	skipped := &testNode{section: "text", align: 1, symbols: []Symbol{{Name: "skip", Offset: 0}}, skip: true}
	kept := &testNode{section: "text", align: 1, symbols: []Symbol{{Name: "keep", Offset: 0}}}
	fw := fakewriter.New("")
	factory := &testFactory{os: Linux}

	if err := EmitObject("out.o", []Node{skipped, kept}, factory, openFake(fw)); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	for _, c := range fw.Calls {
		if c.Op == "emit_symbol_def" && c.Args[0] == "skip" {
			t.Fatalf("skipped node was emitted")
		}
	}
}
