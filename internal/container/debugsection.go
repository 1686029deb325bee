package container

import "bytes"

// encodeDebugSection packs the accumulated debug-file/debug-loc/flush
// records into a compact private section. This is not CodeView or DWARF —
// it is a minimal, self-describing encoding sufficient for a symbolizer that
// understands this container, in the same "minimal, does not attempt full
// fidelity" spirit as the rest of this package's format writers.
//
// Layout: uleb128 file count, then that many null-terminated names; uleb128
// loc count, then per loc: section-index (uleb128 into sectionOrder),
// offset, file id, line, col (all uleb128); uleb128 flush count, then per
// flush: method name (null-terminated), size (uleb128).
func encodeDebugSection(st *state) []byte {
	if len(st.debugFile) == 0 && len(st.debugLoc) == 0 && len(st.flushes) == 0 {
		return nil
	}

	sectionIndex := make(map[string]int, len(st.sectionOrder))
	for i, name := range st.sectionOrder {
		sectionIndex[name] = i
	}

	buf := &bytes.Buffer{}

	uleb128(buf, uint64(len(st.debugFile)))
	for _, name := range st.debugFile {
		buf.WriteString(name)
		buf.WriteByte(0)
	}

	uleb128(buf, uint64(len(st.debugLoc)))
	for _, loc := range st.debugLoc {
		uleb128(buf, uint64(sectionIndex[loc.Section]))
		uleb128(buf, uint64(loc.Offset))
		uleb128(buf, uint64(loc.FileID))
		uleb128(buf, uint64(loc.Line))
		uleb128(buf, uint64(loc.Col))
	}

	uleb128(buf, uint64(len(st.flushes)))
	for _, fl := range st.flushes {
		buf.WriteString(fl.Method)
		buf.WriteByte(0)
		uleb128(buf, uint64(fl.Size))
	}

	return buf.Bytes()
}

// uleb128 appends the unsigned LEB128 encoding of v to b.
func uleb128(b *bytes.Buffer, v uint64) {
	for {
		c := byte(v & 0x7f)
		v >>= 7

		if v != 0 {
			c |= 0x80
		}

		b.WriteByte(c)

		if v == 0 {
			return
		}
	}
}
