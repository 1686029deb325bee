//go:build linux || darwin

package nativefile

import (
	"path/filepath"
	"testing"
)

func TestOpen_ExclusiveSecondOpenFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.o")

	f1, err := Open(path, 0)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	defer f1.Close()

	if _, err := Open(path, 0); err == nil {
		t.Fatalf("expected second exclusive Open on the same file to fail")
	}
}

func TestOpen_CloseReleasesLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.o")

	f1, err := Open(path, 4096)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := f1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f2, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open after Close should succeed: %v", err)
	}

	f2.Close()
}
