// Package objcache implements a remote, content-addressed cache for emitted
// object files: repeated emissions of a byte-identical node set fetch a
// previously produced object instead of re-running the driver, over an
// HTTP/3 transport (see server.go/client.go), adapted from the teacher's
// internal/runtime/netstack HTTP/3 wrapper.
package objcache

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/orizon-lang/orizon-objemit/internal/objwriter"
)

// Key returns the content-address for a node set under a given target OS and
// factory: a hex-encoded blake2b-256 digest of each node's (name, section,
// alignment, data, symbols plus their resolved alternate names,
// relocations, frame infos, debug locations) tuple in emission order. Two calls with an identical node
// sequence, target, arch, and alternate-name mapping always produce the
// same key, regardless of which process computed it, so a cache hit here
// means the object file EmitObject would have produced is already
// available.
//
// factory.AlternateName is folded in because symbolMap.build resolves it
// into the emitted symbol table: two node sets that are byte-identical but
// carry different alternate-name mappings produce different object files
// and must not collide on the same key. factory.Arch is folded in for the
// same reason: the container backend switches machine-type and
// relocation-type constants on it.
//
// Each node's bytes are read through GetData(factory), not Data(), because
// that is what the driver's emitNode actually writes to the container —
// Data() is only the fallback a node's own GetData may return.
func Key(target objwriter.TargetOS, nodes []objwriter.Node, factory objwriter.Factory) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}

	writeByte := func(b byte) { h.Write([]byte{b}) }
	writeString := func(s string) {
		writeUint64(h, uint64(len(s)))
		h.Write([]byte(s))
	}

	writeByte(byte(target))
	writeByte(byte(factory.Arch()))

	for _, n := range nodes {
		if n.ShouldSkip() {
			continue
		}

		data, err := n.GetData(factory)
		if err != nil {
			return "", err
		}

		writeString(n.Name())
		writeString(n.Section())
		writeUint64(h, uint64(n.Alignment()))
		writeString(string(data))

		for _, sym := range n.DefinedSymbols() {
			writeString(sym.Name)
			writeUint64(h, uint64(sym.Offset))

			if alt, ok := factory.AlternateName(sym.Name); ok {
				writeByte(1)
				writeString(alt)
			} else {
				writeByte(0)
			}
		}

		for _, rl := range n.Relocations() {
			writeUint64(h, uint64(rl.Offset))
			writeByte(byte(rl.Kind))
			writeString(rl.TargetSymbol)
			writeUint64(h, uint64(rl.Delta))
		}

		for _, fr := range n.FrameInfos() {
			writeUint64(h, uint64(fr.StartOffset))
			writeUint64(h, uint64(fr.EndOffset))
			writeString(string(fr.Blob))
		}

		for _, loc := range n.DebugLocInfos() {
			writeUint64(h, uint64(loc.NativeOffset))
			writeString(loc.FileName)
			writeUint64(h, uint64(loc.LineNumber))
			writeUint64(h, uint64(loc.ColNumber))
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeUint64(w interface{ Write([]byte) (int, error) }, v uint64) {
	var b [8]byte
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}

	w.Write(b[:])
}
