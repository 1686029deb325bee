package objwriter

import (
	"fmt"

	stderrors "github.com/orizon-lang/orizon-objemit/internal/errors"
)

// DebugChecksEnabled gates the duplicate-node-name guard below. It is
// process-wide, process-lifetime state, not per-call: a release build never
// pays for the guard's bookkeeping, matching the native container's own
// debug/release split. Callers (see cmd/objemit's -debug flag) set it once
// at startup, before any EmitObject call.
var DebugChecksEnabled bool

// EmitObject produces the object file at path from the ordered node
// sequence, using open to acquire the native container Writer Handle.
//
// The driver is a strict leaf: per node it rebuilds the symbol, relocation,
// frame and debug-line maps and forwards to the handle in offset order. It
// never suspends, blocks cancellably, or reorders nodes.
func EmitObject(path string, nodes []Node, factory Factory, open HandleFactory) (err error) {
	w, openErr := open(path, factory.TargetOS(), factory.Arch())
	if openErr != nil || w == nil {
		return stderrors.ContainerInitFailed(path, openErr)
	}

	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	fileTable := newDebugFileTable()
	if shouldEmitDebugInfo(factory.TargetOS()) {
		fileTable.build(nodes)
		if len(fileTable.names) > 0 {
			w.EmitDebugFileInfo(fileTable.names)
		}
	}

	var seen map[string]bool
	if DebugChecksEnabled {
		seen = make(map[string]bool)
	}

	currentSection := ""

	for _, node := range nodes {
		if node.ShouldSkip() {
			continue
		}

		name := node.Name()

		if seen != nil {
			if seen[name] {
				return stderrors.DuplicateNodeName(name)
			}

			seen[name] = true
		}

		if err := emitNode(w, node, factory, fileTable, &currentSection); err != nil {
			return err
		}
	}

	return nil
}

// emitNode runs the per-node protocol described in the design: section
// switch, alignment, map rebuild, then the byte-granular interleaving loop.
func emitNode(w WriterHandle, node Node, factory Factory, fileTable *debugFileTable, currentSection *string) error {
	if node.Section() != *currentSection {
		w.SwitchSection(node.Section())
		*currentSection = node.Section()
	}

	w.EmitAlignment(node.Alignment())

	data, err := node.GetData(factory)
	if err != nil {
		return fmt.Errorf("materializing data for node %q: %w", node.Name(), err)
	}

	n := len(data)

	symbols := newSymbolMap()
	symbols.build(node.DefinedSymbols(), factory)
	canonical := symbols.canonicalName()

	frames := newFrameEngine(factory.TargetOS())
	if err := frames.build(node.Name(), node.FrameInfos()); err != nil {
		return err
	}

	if factory.TargetOS() == Windows {
		frames.emitWindowsFrames(w, canonical)
	}

	debugLocs := newDebugLocMap()
	if shouldEmitDebugInfo(factory.TargetOS()) {
		debugLocs.build(node.DebugLocInfos())
	}

	relocs := newRelocCursor(node.Relocations())

	for i := 0; i <= n; i++ {
		emitSymbolsAt(w, symbols, i)

		if err := frames.emitAt(w, node.Name(), i); err != nil {
			return err
		}

		debugLocs.emitAt(w, fileTable, i)

		if i == n {
			break
		}

		if reloc, ok := relocs.pending(i); ok {
			width, pcRelative, err := widthOf(reloc.Kind)
			if err != nil {
				return err
			}

			targetName := platformName(reloc.TargetSymbol, factory.TargetOS())
			w.EmitSymbolRef(targetName, width, pcRelative, reloc.Delta)
			relocs.advance()
			i += width - 1 // the loop's i++ contributes the remaining unit

			continue
		}

		w.EmitInt(uint64(data[i]), 1)
	}

	if shouldEmitDebugInfo(factory.TargetOS()) && debugLocs.emitted {
		w.FlushDebugLocs(canonical, n)
	}

	w.SwitchSection(*currentSection)

	return nil
}

// emitSymbolsAt emits every symbol definition registered at offset i, in
// insertion order (alternate names immediately follow their primary — see
// symbolMap.build).
func emitSymbolsAt(w WriterHandle, symbols *symbolMap, i int) {
	for _, name := range symbols.namesAt(i) {
		w.EmitSymbolDef(name)
	}
}
