package objwriter

import "testing"

func TestDebugFileTable_FirstSeenOrder(t *testing.T) {
	table := newDebugFileTable()

	nodes := []Node{
		&testNode{symbols: []Symbol{{Name: "a"}}, debug: []DebugLocInfo{{FileName: "b.oriz"}, {FileName: "a.oriz"}}},
		&testNode{symbols: []Symbol{{Name: "b"}}, debug: []DebugLocInfo{{FileName: "a.oriz"}, {FileName: "c.oriz"}}},
	}
	table.build(nodes)

	want := []string{"b.oriz", "a.oriz", "c.oriz"}
	if len(table.names) != len(want) {
		t.Fatalf("names = %v, want %v", table.names, want)
	}

	for i, w := range want {
		if table.names[i] != w {
			t.Fatalf("names[%d] = %q, want %q", i, table.names[i], w)
		}
	}
}

func TestDebugFileTable_UnicodeNormalization(t *testing.T) {
	table := newDebugFileTable()

	// "e" with an acute accent, once as the precomposed codepoint U+00E9 and
	// once as "e" (U+0065) followed by a combining acute accent (U+0301) —
	// the same rendered filename, two different byte sequences.
	precomposed := "caf\u00e9.oriz"
	decomposed := "cafe\u0301.oriz"

	id1 := table.intern(precomposed)
	id2 := table.intern(decomposed)

	if id1 != id2 {
		t.Fatalf("expected NFC-normalized names to collapse to one id, got %d and %d", id1, id2)
	}

	if len(table.names) != 1 {
		t.Fatalf("expected exactly one interned name, got %v", table.names)
	}
}

func TestShouldEmitDebugInfo(t *testing.T) {
	if !shouldEmitDebugInfo(Windows) {
		t.Fatalf("expected debug info to be enabled on Windows")
	}

	if shouldEmitDebugInfo(Linux) || shouldEmitDebugInfo(OSX) {
		t.Fatalf("expected debug info to be suppressed on Unix targets")
	}
}
