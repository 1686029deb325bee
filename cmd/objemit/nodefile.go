package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/orizon-lang/orizon-objemit/internal/objwriter"
)

// jsonSymbol/jsonRelocation/jsonFrame/jsonDebugLoc/jsonNode mirror
// objwriter's Node model as a wire format: this is the boundary at which
// the foreign dependency-graph walker hands off to this repository, so it
// is a plain, versionless JSON document rather than anything gob/protobuf
// based.
type jsonSymbol struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
}

type jsonRelocation struct {
	Offset       int    `json:"offset"`
	Kind         string `json:"kind"` // "abs64" | "rel32"
	TargetSymbol string `json:"target_symbol"`
	Delta        int64  `json:"delta"`
}

type jsonFrame struct {
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	BlobHex     string `json:"blob_hex"`
}

type jsonDebugLoc struct {
	NativeOffset int    `json:"native_offset"`
	FileName     string `json:"file_name"`
	Line         int    `json:"line"`
	Col          int    `json:"col"`
}

type jsonNode struct {
	Name       string           `json:"name"`
	Section    string           `json:"section"`
	Alignment  int              `json:"alignment"`
	DataHex    string           `json:"data_hex"`
	Symbols    []jsonSymbol     `json:"symbols,omitempty"`
	Relocs     []jsonRelocation `json:"relocations,omitempty"`
	Frames     []jsonFrame      `json:"frames,omitempty"`
	DebugLocs  []jsonDebugLoc   `json:"debug_locs,omitempty"`
	Skip       bool             `json:"skip,omitempty"`
	Alternates map[string]string `json:"alternate_names,omitempty"`
}

type jsonDump struct {
	Nodes []jsonNode `json:"nodes"`
}

func loadNodeDump(path string) ([]objwriter.Node, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading node dump %s: %w", path, err)
	}

	var dump jsonDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, nil, fmt.Errorf("parsing node dump %s: %w", path, err)
	}

	alternates := map[string]string{}
	nodes := make([]objwriter.Node, 0, len(dump.Nodes))

	for _, jn := range dump.Nodes {
		blob, err := hex.DecodeString(jn.DataHex)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: invalid data_hex: %w", jn.Name, err)
		}

		symbols := make([]objwriter.Symbol, len(jn.Symbols))
		for i, s := range jn.Symbols {
			symbols[i] = objwriter.Symbol{Name: s.Name, Offset: s.Offset}
		}

		relocs := make([]objwriter.Relocation, len(jn.Relocs))
		for i, r := range jn.Relocs {
			kind, err := parseRelocKind(r.Kind)
			if err != nil {
				return nil, nil, fmt.Errorf("node %q: %w", jn.Name, err)
			}

			relocs[i] = objwriter.Relocation{Offset: r.Offset, Kind: kind, TargetSymbol: r.TargetSymbol, Delta: r.Delta}
		}

		frames := make([]objwriter.FrameInfo, len(jn.Frames))
		for i, f := range jn.Frames {
			blob, err := hex.DecodeString(f.BlobHex)
			if err != nil {
				return nil, nil, fmt.Errorf("node %q: invalid frame blob_hex: %w", jn.Name, err)
			}

			frames[i] = objwriter.FrameInfo{StartOffset: f.StartOffset, EndOffset: f.EndOffset, Blob: blob}
		}

		debugLocs := make([]objwriter.DebugLocInfo, len(jn.DebugLocs))
		for i, d := range jn.DebugLocs {
			debugLocs[i] = objwriter.DebugLocInfo{NativeOffset: d.NativeOffset, FileName: d.FileName, LineNumber: d.Line, ColNumber: d.Col}
		}

		for k, v := range jn.Alternates {
			alternates[k] = v
		}

		nodes = append(nodes, &fileNode{
			name:    jn.Name,
			section: jn.Section,
			align:   jn.Alignment,
			data:    blob,
			symbols: symbols,
			relocs:  relocs,
			frames:  frames,
			debug:   debugLocs,
			skip:    jn.Skip,
		})
	}

	return nodes, alternates, nil
}

func parseRelocKind(s string) (objwriter.RelocKind, error) {
	switch s {
	case "abs64":
		return objwriter.ABS64, nil
	case "rel32":
		return objwriter.REL32, nil
	default:
		return 0, fmt.Errorf("unknown relocation kind %q", s)
	}
}

// fileNode is the concrete objwriter.Node backing a loaded JSON node dump.
type fileNode struct {
	name    string
	section string
	align   int
	data    []byte
	symbols []objwriter.Symbol
	relocs  []objwriter.Relocation
	frames  []objwriter.FrameInfo
	debug   []objwriter.DebugLocInfo
	skip    bool
}

func (n *fileNode) Section() string                            { return n.section }
func (n *fileNode) Alignment() int                              { return n.align }
func (n *fileNode) Data() []byte                                { return n.data }
func (n *fileNode) DefinedSymbols() []objwriter.Symbol          { return n.symbols }
func (n *fileNode) Relocations() []objwriter.Relocation         { return n.relocs }
func (n *fileNode) FrameInfos() []objwriter.FrameInfo           { return n.frames }
func (n *fileNode) DebugLocInfos() []objwriter.DebugLocInfo     { return n.debug }
func (n *fileNode) ShouldSkip() bool                            { return n.skip }
func (n *fileNode) Name() string                                { return n.name }
func (n *fileNode) GetData(_ objwriter.Factory) ([]byte, error) { return n.data, nil }

// fileFactory implements objwriter.Factory from the -os flag and the
// per-node alternate-name table collected while loading the dump.
type fileFactory struct {
	os         objwriter.TargetOS
	arch       objwriter.Arch
	alternates map[string]string
}

func (f *fileFactory) TargetOS() objwriter.TargetOS { return f.os }

func (f *fileFactory) Arch() objwriter.Arch { return f.arch }

func (f *fileFactory) AlternateName(symbol string) (string, bool) {
	alt, ok := f.alternates[symbol]
	return alt, ok
}
