package container

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/orizon-lang/orizon-objemit/internal/objwriter"
)

type fnNode struct {
	name    string
	section string
	align   int
	data    []byte
	symbols []objwriter.Symbol
	relocs  []objwriter.Relocation
	frames  []objwriter.FrameInfo
	debug   []objwriter.DebugLocInfo
}

func (n *fnNode) Section() string                            { return n.section }
func (n *fnNode) Alignment() int                              { return n.align }
func (n *fnNode) Data() []byte                                { return n.data }
func (n *fnNode) DefinedSymbols() []objwriter.Symbol          { return n.symbols }
func (n *fnNode) Relocations() []objwriter.Relocation         { return n.relocs }
func (n *fnNode) FrameInfos() []objwriter.FrameInfo           { return n.frames }
func (n *fnNode) DebugLocInfos() []objwriter.DebugLocInfo     { return n.debug }
func (n *fnNode) ShouldSkip() bool                            { return false }
func (n *fnNode) Name() string                                { return n.name }
func (n *fnNode) GetData(_ objwriter.Factory) ([]byte, error) { return n.data, nil }

type fnFactory struct {
	os   objwriter.TargetOS
	arch objwriter.Arch
}

func (f *fnFactory) TargetOS() objwriter.TargetOS         { return f.os }
func (f *fnFactory) Arch() objwriter.Arch                 { return f.arch }
func (f *fnFactory) AlternateName(string) (string, bool)  { return "", false }

func sampleNodes() []objwriter.Node {
	return []objwriter.Node{
		&fnNode{
			name:    "add",
			section: "text",
			align:   16,
			data:    []byte{0x55, 0x48, 0x89, 0xe5, 0x00, 0x00, 0x00, 0x00, 0x5d, 0xc3},
			symbols: []objwriter.Symbol{{Name: "add", Offset: 0}},
			relocs:  []objwriter.Relocation{{Offset: 4, Kind: objwriter.REL32, TargetSymbol: "helper", Delta: 0}},
		},
	}
}

func TestOpen_ELF_ProducesValidMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.o")

	err := objwriter.EmitObject(path, sampleNodes(), &fnFactory{os: objwriter.Linux}, Open)
	if err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if len(b) < 4 || b[0] != 0x7f || b[1] != 'E' || b[2] != 'L' || b[3] != 'F' {
		t.Fatalf("expected ELF magic, got % x", b[:4])
	}
}

func TestOpen_COFF_ProducesPlausibleHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.obj")

	err := objwriter.EmitObject(path, sampleNodes(), &fnFactory{os: objwriter.Windows}, Open)
	if err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	machine := binary.LittleEndian.Uint16(b[0:2])
	if machine != machineAMD64 {
		t.Fatalf("expected machine field %x, got %x", machineAMD64, machine)
	}
}

func TestOpen_MachO_ProducesValidMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.o")

	err := objwriter.EmitObject(path, sampleNodes(), &fnFactory{os: objwriter.OSX}, Open)
	if err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	magic := binary.LittleEndian.Uint32(b[0:4])
	if magic != machMagic64 {
		t.Fatalf("expected Mach-O magic %x, got %x", machMagic64, magic)
	}
}

func TestOpen_UnknownTarget(t *testing.T) {
	_, err := Open("x", objwriter.TargetOS(99), objwriter.AMD64)
	if err == nil {
		t.Fatalf("expected an error for an unknown target OS")
	}
}

func TestGatedHandleFactory_AcceptsReportedVersion(t *testing.T) {
	gated := objwriter.GatedHandleFactory(Open)

	dir := t.TempDir()
	w, err := gated(filepath.Join(dir, "out.o"), objwriter.Linux, objwriter.AMD64)
	if err != nil {
		t.Fatalf("gated open: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpen_ELF_ARM64_MachineField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.o")

	factory := &fnFactory{os: objwriter.Linux, arch: objwriter.ARM64}
	if err := objwriter.EmitObject(path, sampleNodes(), factory, Open); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	machine := binary.LittleEndian.Uint16(b[18:20])
	if machine != emAARCH64 {
		t.Fatalf("expected e_machine %x, got %x", emAARCH64, machine)
	}
}

func TestOpen_COFF_ARM64_MachineField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.obj")

	factory := &fnFactory{os: objwriter.Windows, arch: objwriter.ARM64}
	if err := objwriter.EmitObject(path, sampleNodes(), factory, Open); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	machine := binary.LittleEndian.Uint16(b[0:2])
	if machine != machineARM64 {
		t.Fatalf("expected machine field %x, got %x", machineARM64, machine)
	}
}

func TestOpen_MachO_ARM64_CPUType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.o")

	factory := &fnFactory{os: objwriter.OSX, arch: objwriter.ARM64}
	if err := objwriter.EmitObject(path, sampleNodes(), factory, Open); err != nil {
		t.Fatalf("EmitObject: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	cpuType := binary.LittleEndian.Uint32(b[4:8])
	if cpuType != cpuTypeARM64 {
		t.Fatalf("expected cputype %x, got %x", cpuTypeARM64, cpuType)
	}
}
