package objwriter

import (
	"testing"

	"github.com/orizon-lang/orizon-objemit/internal/objwriter/fakewriter"
)

func TestFrameEngine_MalformedBlob(t *testing.T) {
	f := newFrameEngine(Linux)

	err := f.build("fn", []FrameInfo{{StartOffset: 0, EndOffset: 8, Blob: []byte{1, 2, 3}}})
	if err == nil {
		t.Fatalf("expected an error for a blob length not a multiple of 8")
	}
}

func TestFrameEngine_CFIOffsetRebase(t *testing.T) {
	blob := make([]byte, 8)
	blob[0] = 3 // in-frame delta

	f := newFrameEngine(Linux)
	if err := f.build("fn", []FrameInfo{{StartOffset: 100, EndOffset: 116, Blob: blob}}); err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, ok := f.cfiBlobs[103]; !ok {
		t.Fatalf("expected a blob rebased to offset 103 (100+3), got keys %v", f.cfiBlobs)
	}
}

func TestFrameEngine_OverlapDetected(t *testing.T) {
	f := newFrameEngine(Linux)
	fw := fakewriter.New("")

	if err := f.build("fn", nil); err != nil {
		t.Fatalf("build: %v", err)
	}

	f.cfiEnd[5] = true

	if err := f.emitAt(fw, "fn", 5); err == nil {
		t.Fatalf("expected FrameOverlap for cfi_end with no frame open")
	}
}

func TestFrameEngine_WindowsSkipsCFI(t *testing.T) {
	f := newFrameEngine(Windows)
	fw := fakewriter.New("")

	if err := f.build("fn", []FrameInfo{{StartOffset: 0, EndOffset: 10, Blob: []byte("winblobxx")}}); err != nil {
		t.Fatalf("build: %v", err)
	}

	if err := f.emitAt(fw, "fn", 0); err != nil {
		t.Fatalf("emitAt should be a no-op on Windows: %v", err)
	}

	if len(fw.Calls) != 0 {
		t.Fatalf("expected no CFI calls on Windows, got %v", fw.Calls)
	}
}
