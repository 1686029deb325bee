package objwriter

// symbolMap indexes a node's defined symbols by byte offset, applying the
// platform name-mangling rule and appending any factory-supplied alternate
// name at the same offset.
//
// The symbol at offset 0, first in insertion order, is the node's canonical
// name — used by the frame and debug-line engines.
type symbolMap struct {
	byOffset map[int][]string
	order    []int // offsets in first-seen order; lookups go through byOffset
}

func newSymbolMap() *symbolMap {
	return &symbolMap{byOffset: make(map[int][]string)}
}

// build populates the map from a node's defined symbols.
func (m *symbolMap) build(symbols []Symbol, factory Factory) {
	target := factory.TargetOS()
	for _, s := range symbols {
		m.addAt(s.Offset, platformName(s.Name, target))
		if alt, ok := factory.AlternateName(s.Name); ok {
			m.addAt(s.Offset, platformName(alt, target))
		}
	}
}

// addAt inserts name at offset, appending to any names already registered
// there and preserving insertion order.
func (m *symbolMap) addAt(offset int, name string) {
	if _, seen := m.byOffset[offset]; !seen {
		m.order = append(m.order, offset)
	}
	m.byOffset[offset] = append(m.byOffset[offset], name)
}

// namesAt returns the names registered at offset, in insertion order.
func (m *symbolMap) namesAt(offset int) []string {
	return m.byOffset[offset]
}

// canonicalName returns the node's canonical name: the first symbol
// registered at offset 0, or "" if none.
func (m *symbolMap) canonicalName() string {
	if names := m.byOffset[0]; len(names) > 0 {
		return names[0]
	}
	return ""
}

// platformName applies the OSX leading-underscore rule; Linux and Windows
// pass the mangled name through unchanged.
func platformName(s string, target TargetOS) string {
	if target == OSX {
		return "_" + s
	}
	return s
}
