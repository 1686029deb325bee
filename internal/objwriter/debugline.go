package objwriter

import "golang.org/x/text/unicode/norm"

// debugFileTable is the global filename→id table built once per emission,
// in first-seen order, before any node is emitted. It is dropped at the end
// of the call — no cross-call state.
//
// File names are interned under Unicode NFC normalization: two nodes that
// name "the same" source file with differently-composed Unicode (common
// when nodes originate from different platform toolchains feeding the
// upstream dependency-graph walker) collapse to a single file id.
type debugFileTable struct {
	ids   map[string]int
	names []string
}

func newDebugFileTable() *debugFileTable {
	return &debugFileTable{ids: make(map[string]int)}
}

// intern assigns file an id on first sight and returns it (existing or new).
func (t *debugFileTable) intern(file string) int {
	key := norm.NFC.String(file)
	if id, ok := t.ids[key]; ok {
		return id
	}

	id := len(t.names)
	t.ids[key] = id
	t.names = append(t.names, key)

	return id
}

// build walks every node's debug locations to populate the table. It must
// run before any node is emitted, and only when the target OS carries debug
// info at all (see shouldEmitDebugInfo).
func (t *debugFileTable) build(nodes []Node) {
	for _, n := range nodes {
		if n.ShouldSkip() {
			continue
		}

		for _, loc := range n.DebugLocInfos() {
			t.intern(loc.FileName)
		}
	}
}

// shouldEmitDebugInfo reports whether the target platform carries debug
// records through this ABI at all. Debug info on Linux/OSX is intentionally
// suppressed for now — the container's debug-record calls are never
// reached, and the global file table stays empty. See the design notes for
// why this gap exists: DWARF emission through the container is unspecified.
func shouldEmitDebugInfo(target TargetOS) bool {
	return target == Windows
}

// debugLocMap is the per-node offset→DebugLocInfo map, phase 2 of the
// protocol. Cleared and rebuilt for every node.
type debugLocMap struct {
	byOffset map[int]DebugLocInfo
	emitted  bool
}

func newDebugLocMap() *debugLocMap {
	return &debugLocMap{byOffset: make(map[int]DebugLocInfo)}
}

func (m *debugLocMap) build(locs []DebugLocInfo) {
	for _, l := range locs {
		m.byOffset[l.NativeOffset] = l
	}
}

// emitAt emits the debug-line record registered at offset o, if any, using
// the global file id from table. Records whether anything was emitted so
// the caller knows whether to flush.
func (m *debugLocMap) emitAt(w WriterHandle, table *debugFileTable, o int) {
	loc, ok := m.byOffset[o]
	if !ok {
		return
	}

	fileID := table.intern(loc.FileName)
	w.EmitDebugLoc(o, fileID, loc.LineNumber, loc.ColNumber)
	m.emitted = true
}
