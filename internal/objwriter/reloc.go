package objwriter

import stderrors "github.com/orizon-lang/orizon-objemit/internal/errors"

// relocCursor walks a node's relocation array in lockstep with the driver's
// byte cursor. Relocations are required to be sorted strictly ascending by
// offset — this is the input contract from the dependency-graph walker, not
// re-validated here beyond what the linear walk itself assumes.
type relocCursor struct {
	relocs []Relocation
	next   int
}

func newRelocCursor(relocs []Relocation) *relocCursor {
	return &relocCursor{relocs: relocs}
}

// pending reports whether there is a relocation not yet consumed whose
// offset equals i, and if so returns it.
func (c *relocCursor) pending(i int) (Relocation, bool) {
	if c.next >= len(c.relocs) {
		return Relocation{}, false
	}
	if c.relocs[c.next].Offset != i {
		return Relocation{}, false
	}
	return c.relocs[c.next], true
}

// advance marks the current relocation consumed.
func (c *relocCursor) advance() {
	c.next++
}

// widthOf resolves kind to (width, pcRelative), or returns an
// UnsupportedRelocationKind error for kinds outside the fixed table in
// node.go. There is no generic mechanism: adding a relocation kind means
// adding an entry to relocWidths.
func widthOf(kind RelocKind) (width int, pcRelative bool, err error) {
	info, ok := relocWidth(kind)
	if !ok {
		return 0, false, stderrors.UnsupportedRelocationKind(kind)
	}
	return info.width, info.pcRelative, nil
}
