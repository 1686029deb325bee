package objwriter

import "testing"

func TestWidthOf(t *testing.T) {
	if w, pc, err := widthOf(ABS64); err != nil || w != 8 || pc != false {
		t.Fatalf("ABS64 = (%d,%v,%v), want (8,false,nil)", w, pc, err)
	}

	if w, pc, err := widthOf(REL32); err != nil || w != 4 || pc != true {
		t.Fatalf("REL32 = (%d,%v,%v), want (4,true,nil)", w, pc, err)
	}

	if _, _, err := widthOf(RelocKind(42)); err == nil {
		t.Fatalf("expected an error for an unknown relocation kind")
	}
}

func TestRelocCursor_PendingAdvance(t *testing.T) {
	c := newRelocCursor([]Relocation{
		{Offset: 2, Kind: ABS64},
		{Offset: 20, Kind: REL32},
	})

	if _, ok := c.pending(0); ok {
		t.Fatalf("pending(0) should be false")
	}

	r, ok := c.pending(2)
	if !ok || r.Kind != ABS64 {
		t.Fatalf("pending(2) = (%v,%v)", r, ok)
	}

	c.advance()

	if _, ok := c.pending(2); ok {
		t.Fatalf("pending(2) should be false after advance")
	}

	r, ok = c.pending(20)
	if !ok || r.Kind != REL32 {
		t.Fatalf("pending(20) = (%v,%v)", r, ok)
	}
}
