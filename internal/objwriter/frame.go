package objwriter

import stderrors "github.com/orizon-lang/orizon-objemit/internal/errors"

const cfiRecordSize = 8

// frameEngine implements the two disjoint unwind strategies described in the
// design: a single opaque blob per FrameInfo on Windows, or a stream of
// fixed-size CFI micro-records distributed per instruction offset on Unix.
//
// A frameEngine is rebuilt fresh for every node; nothing survives across
// nodes.
type frameEngine struct {
	target TargetOS

	// Unix-only precomputed maps.
	cfiStart map[int]bool
	cfiEnd   map[int]bool
	cfiBlobs map[int][][8]byte

	// Windows-only: the raw FrameInfos, emitted whole and not interleaved.
	winFrames []FrameInfo

	open bool
}

func newFrameEngine(target TargetOS) *frameEngine {
	return &frameEngine{
		target:   target,
		cfiStart: make(map[int]bool),
		cfiEnd:   make(map[int]bool),
		cfiBlobs: make(map[int][][8]byte),
	}
}

// build precomputes the per-offset maps (Unix) or stashes the frame list
// (Windows) for the given node.
func (f *frameEngine) build(nodeName string, frames []FrameInfo) error {
	if f.target == Windows {
		f.winFrames = frames
		return nil
	}

	for _, fr := range frames {
		if len(fr.Blob)%cfiRecordSize != 0 {
			return stderrors.MalformedCFIBlob(nodeName, len(fr.Blob))
		}

		f.cfiStart[fr.StartOffset] = true
		f.cfiEnd[fr.EndOffset] = true

		for i := 0; i+cfiRecordSize <= len(fr.Blob); i += cfiRecordSize {
			var rec [8]byte
			copy(rec[:], fr.Blob[i:i+cfiRecordSize])
			// The record's first byte is the in-frame delta; rebase it to
			// the node by adding the frame's start offset.
			codeOffset := int(rec[0]) + fr.StartOffset
			f.cfiBlobs[codeOffset] = append(f.cfiBlobs[codeOffset], rec)
		}
	}

	return nil
}

// emitWindowsFrames emits every FrameInfo for the node as a single opaque
// win_frame_info record. Called once per node, outside the byte loop.
func (f *frameEngine) emitWindowsFrames(w WriterHandle, nodeName string) {
	for _, fr := range f.winFrames {
		w.EmitWinFrameInfo(nodeName, fr.StartOffset, fr.EndOffset, fr.Blob)
	}
}

// emitAt runs the Unix per-offset protocol at offset o: end-before-start,
// then blobs, each precondition-checked against the single-frame-open flag.
func (f *frameEngine) emitAt(w WriterHandle, nodeName string, o int) error {
	if f.target == Windows {
		return nil
	}

	if f.cfiEnd[o] {
		if !f.open {
			return stderrors.FrameOverlap(nodeName, o, "cfi_end with no frame open")
		}

		w.EmitCFIEnd(o)
		f.open = false
	}

	if f.cfiStart[o] {
		if f.open {
			return stderrors.FrameOverlap(nodeName, o, "cfi_start while a frame is already open")
		}

		w.EmitCFIStart(o)
		f.open = true
	}

	for _, rec := range f.cfiBlobs[o] {
		if !f.open {
			return stderrors.FrameOverlap(nodeName, o, "cfi_blob with no frame open")
		}

		w.EmitCFIBlob(o, rec)
	}

	return nil
}
