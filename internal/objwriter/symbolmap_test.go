package objwriter

import "testing"

func TestSymbolMap_OrderAndAlternate(t *testing.T) {
	m := newSymbolMap()
	factory := &testFactory{os: Linux, alts: map[string]string{"Foo": "Foo$entry"}}

	m.build([]Symbol{
		{Name: "fn", Offset: 0},
		{Name: "Foo", Offset: 8},
		{Name: "Bar", Offset: 8},
	}, factory)

	if got := m.namesAt(8); len(got) != 3 || got[0] != "Foo" || got[1] != "Foo$entry" || got[2] != "Bar" {
		t.Fatalf("namesAt(8) = %v", got)
	}

	if m.canonicalName() != "fn" {
		t.Fatalf("canonicalName = %q, want fn", m.canonicalName())
	}
}

func TestPlatformName(t *testing.T) {
	cases := []struct {
		os   TargetOS
		want string
	}{
		{Linux, "foo"},
		{Windows, "foo"},
		{OSX, "_foo"},
	}
	for _, c := range cases {
		if got := platformName("foo", c.os); got != c.want {
			t.Errorf("platformName(foo, %v) = %q, want %q", c.os, got, c.want)
		}
	}
}
