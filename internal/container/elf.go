package container

import (
	"bytes"
	"encoding/binary"

	"github.com/orizon-lang/orizon-objemit/internal/objwriter"
)

// ELF64 constants needed for a relocatable (ET_REL) amd64 or arm64 object.
// Grounded on the teacher's elf_writer.go, extended with a symbol table,
// string table, and .rela sections carrying real relocation entries instead
// of bare section payloads.
const (
	elfHeaderSize        = 64
	elfSectionHeaderSize = 64
	elfSymbolSize        = 24
	elfRelaSize          = 24

	etREL      = 2
	emX86_64   = 62
	emAARCH64  = 183
	evCurrent  = 1
	elfClass64 = 2
	elfData2LSB = 1

	shtNull     = 0
	shtProgBits = 1
	shtSymTab   = 2
	shtStrTab   = 3
	shtRela     = 4
	shtNoBits   = 8

	shfWrite     = 0x1
	shfAlloc     = 0x2
	shfExecInstr = 0x4

	stbLocal  = 0
	stbGlobal = 1

	sttNoType   = 0
	sttObject   = 1
	sttFunc     = 2
	sttSection  = 3

	rX8664_64    = 1   // R_X86_64_64, absolute 64-bit
	rX8664_PC32  = 2   // R_X86_64_PC32, PC-relative 32-bit
	rAARCH64_ABS64  = 257 // R_AARCH64_ABS64, absolute 64-bit
	rAARCH64_PREL32 = 261 // R_AARCH64_PREL32, PC-relative 32-bit
)

// elfMachine and elfRelocTypes resolve the arch-dependent e_machine field
// and relocation-type pair; the rest of the ELF64 layout is arch-independent.
func elfMachine(arch objwriter.Arch) uint16 {
	if arch == objwriter.ARM64 {
		return emAARCH64
	}

	return emX86_64
}

func elfRelocTypes(arch objwriter.Arch) (abs64, prel32 uint64) {
	if arch == objwriter.ARM64 {
		return rAARCH64_ABS64, rAARCH64_PREL32
	}

	return rX8664_64, rX8664_PC32
}

type elfStrtab struct {
	buf  bytes.Buffer
	off  map[string]uint32
}

func newElfStrtab() *elfStrtab {
	t := &elfStrtab{off: map[string]uint32{}}
	t.buf.WriteByte(0)

	return t
}

func (t *elfStrtab) add(s string) uint32 {
	if s == "" {
		return 0
	}

	if off, ok := t.off[s]; ok {
		return off
	}

	off := uint32(t.buf.Len())
	t.buf.WriteString(s)
	t.buf.WriteByte(0)
	t.off[s] = off

	return off
}

// encodeELF lays out a real ELF64 relocatable object: a null section, one
// section per emitted name (plus synthesized frame/debug sections), a
// symtab/strtab pair, one .rela<name> per section carrying relocations, and
// a final .shstrtab.
func encodeELF(st *state) ([]byte, error) {
	sections := buildELFSections(st)

	shstrtab := newElfStrtab()
	strtab := newElfStrtab()

	symIndex := map[string]int{}

	type elfSym struct {
		nameOff uint32
		info    byte
		shndx   uint16
		value   uint64
		size    uint64
	}

	symbols := []elfSym{{}} // index 0 is the null symbol by convention

	// One STT_SECTION symbol per real section, then the user-defined and
	// external symbols.
	for i, sec := range sections {
		symIndex["@section:"+sec.name] = len(symbols)
		symbols = append(symbols, elfSym{info: byte(stbLocal<<4 | sttSection), shndx: uint16(i + 1)})
	}

	for i, sec := range sections {
		for _, sym := range sec.symbols {
			symIndex[sym.Name] = len(symbols)
			symbols = append(symbols, elfSym{
				nameOff: strtab.add(sym.Name),
				info:    byte(stbGlobal<<4 | sttFunc),
				shndx:   uint16(i + 1),
				value:   uint64(sym.Offset),
			})
		}
	}

	for _, sec := range sections {
		for _, rl := range sec.relocs {
			if _, ok := symIndex[rl.TargetName]; ok {
				continue
			}

			symIndex[rl.TargetName] = len(symbols)
			symbols = append(symbols, elfSym{nameOff: strtab.add(rl.TargetName), info: byte(stbGlobal<<4 | sttNoType)})
		}
	}

	// Section index layout: [0]=NULL, [1..n]=user/synth sections,
	// then .symtab, .strtab, one .rela<name> per section with relocations,
	// then .shstrtab.
	var shdrs []elfSectionHeader
	shdrs = append(shdrs, elfSectionHeader{}) // NULL

	body := &bytes.Buffer{}
	body.Grow(1 << 16)

	dataOff := make([]uint64, len(sections))

	for i, sec := range sections {
		for body.Len()%8 != 0 {
			body.WriteByte(0)
		}

		dataOff[i] = uint64(elfHeaderSize) + uint64(body.Len())
		body.Write(sec.data)

		shdrs = append(shdrs, elfSectionHeader{
			nameOff: shstrtab.add(sec.name),
			shtype:  progOrBits(sec.data),
			flags:   flagsFor(sec.name),
			offset:  dataOff[i],
			size:    uint64(len(sec.data)),
			align:   1,
		})
	}

	type relaSection struct {
		targetIdx int
		relocs    []relocRecord
	}

	var relaSections []relaSection
	for i, sec := range sections {
		if len(sec.relocs) > 0 {
			relaSections = append(relaSections, relaSection{targetIdx: i, relocs: sec.relocs})
		}
	}

	abs64, prel32 := elfRelocTypes(st.arch)

	relaOff := make([]uint64, len(relaSections))
	for i, rs := range relaSections {
		for body.Len()%8 != 0 {
			body.WriteByte(0)
		}

		relaOff[i] = uint64(elfHeaderSize) + uint64(body.Len())
		for _, rl := range rs.relocs {
			typ := abs64
			if rl.PCRelative {
				typ = prel32
			}

			info := uint64(symIndex[rl.TargetName])<<32 | typ
			binary.Write(body, binary.LittleEndian, uint64(rl.Offset))
			binary.Write(body, binary.LittleEndian, info)
			binary.Write(body, binary.LittleEndian, rl.Delta)
		}
	}

	symtabOff := uint64(elfHeaderSize) + uint64(body.Len())
	for _, s := range symbols {
		binary.Write(body, binary.LittleEndian, s.nameOff)
		body.WriteByte(s.info)
		body.WriteByte(0)
		binary.Write(body, binary.LittleEndian, s.shndx)
		binary.Write(body, binary.LittleEndian, s.value)
		binary.Write(body, binary.LittleEndian, s.size)
	}

	strtabOff := uint64(elfHeaderSize) + uint64(body.Len())
	body.Write(strtab.buf.Bytes())

	// Symbol table + string table + one section header per relocation table
	// + .shstrtab all get their own section-header entries after the data
	// sections, mirroring a real linker's layout order.
	symtabShidx := len(shdrs)
	shdrs = append(shdrs, elfSectionHeader{
		nameOff: shstrtab.add(".symtab"),
		shtype:  shtSymTab,
		offset:  symtabOff,
		size:    uint64(len(symbols)) * elfSymbolSize,
		link:    uint32(symtabShidx + 1), // points at .strtab, filled below
		entsize: elfSymbolSize,
		align:   8,
	})

	strtabShidx := len(shdrs)
	shdrs = append(shdrs, elfSectionHeader{
		nameOff: shstrtab.add(".strtab"),
		shtype:  shtStrTab,
		offset:  strtabOff,
		size:    uint64(strtab.buf.Len()),
		align:   1,
	})
	shdrs[symtabShidx].link = uint32(strtabShidx)

	for i, rs := range relaSections {
		shdrs = append(shdrs, elfSectionHeader{
			nameOff: shstrtab.add(".rela" + sections[rs.targetIdx].name),
			shtype:  shtRela,
			offset:  relaOff[i],
			size:    uint64(len(rs.relocs)) * elfRelaSize,
			link:    uint32(symtabShidx),
			info:    uint32(rs.targetIdx + 1),
			entsize: elfRelaSize,
			align:   8,
		})
	}

	shstrtabShidx := len(shdrs)
	shstrtabOff := uint64(elfHeaderSize) + uint64(body.Len())
	body.Write(shstrtab.buf.Bytes())
	shdrs = append(shdrs, elfSectionHeader{
		nameOff: shstrtab.add(".shstrtab"),
		shtype:  shtStrTab,
		offset:  shstrtabOff,
		size:    uint64(shstrtab.buf.Len()),
		align:   1,
	})

	shoff := uint64(elfHeaderSize) + uint64(body.Len())

	out := &bytes.Buffer{}
	out.Grow(int(shoff) + len(shdrs)*elfSectionHeaderSize)

	writeELFIdent(out)
	binary.Write(out, binary.LittleEndian, uint16(etREL))
	binary.Write(out, binary.LittleEndian, elfMachine(st.arch))
	binary.Write(out, binary.LittleEndian, uint32(evCurrent))
	binary.Write(out, binary.LittleEndian, uint64(0)) // e_entry
	binary.Write(out, binary.LittleEndian, uint64(0)) // e_phoff
	binary.Write(out, binary.LittleEndian, shoff)
	binary.Write(out, binary.LittleEndian, uint32(0)) // e_flags
	binary.Write(out, binary.LittleEndian, uint16(elfHeaderSize))
	binary.Write(out, binary.LittleEndian, uint16(0)) // e_phentsize
	binary.Write(out, binary.LittleEndian, uint16(0)) // e_phnum
	binary.Write(out, binary.LittleEndian, uint16(elfSectionHeaderSize))
	binary.Write(out, binary.LittleEndian, uint16(len(shdrs)))
	binary.Write(out, binary.LittleEndian, uint16(shstrtabShidx))

	out.Write(body.Bytes())

	for _, sh := range shdrs {
		binary.Write(out, binary.LittleEndian, sh.nameOff)
		binary.Write(out, binary.LittleEndian, sh.shtype)
		binary.Write(out, binary.LittleEndian, sh.flags)
		binary.Write(out, binary.LittleEndian, uint64(0)) // sh_addr
		binary.Write(out, binary.LittleEndian, sh.offset)
		binary.Write(out, binary.LittleEndian, sh.size)
		binary.Write(out, binary.LittleEndian, sh.link)
		binary.Write(out, binary.LittleEndian, sh.info)
		binary.Write(out, binary.LittleEndian, sh.align)
		binary.Write(out, binary.LittleEndian, sh.entsize)
	}

	return out.Bytes(), nil
}

type elfSectionHeader struct {
	nameOff uint32
	shtype  uint32
	flags   uint64
	offset  uint64
	size    uint64
	link    uint32
	info    uint32
	align   uint64
	entsize uint64
}

func writeELFIdent(out *bytes.Buffer) {
	ident := make([]byte, 16)
	ident[0], ident[1], ident[2], ident[3] = 0x7f, 'E', 'L', 'F'
	ident[4] = elfClass64
	ident[5] = elfData2LSB
	ident[6] = evCurrent
	out.Write(ident)
}

func progOrBits(data []byte) uint32 {
	if len(data) == 0 {
		return shtNoBits
	}

	return shtProgBits
}

func flagsFor(sectionName string) uint64 {
	switch sectionName {
	case "text", ".text":
		return shfAlloc | shfExecInstr
	default:
		return shfAlloc | shfWrite
	}
}

type elfSection struct {
	name    string
	data    []byte
	symbols []symbolRecord
	relocs  []relocRecord
}

// buildELFSections mirrors buildCOFFSections but packs Unix CFI data (from
// EmitCFIStart/End/Blob) into a .oriz_cfi section instead of .xdata/.pdata,
// since Unix targets carry unwind info as raw CFI micro-records rather than
// a Windows-style UNWIND_INFO blob.
func buildELFSections(st *state) []elfSection {
	var out []elfSection

	for _, name := range st.sectionOrder {
		out = append(out, elfSection{name: name, data: st.sectionData[name].Bytes()})
	}

	for i := range out {
		for _, sym := range st.symbols {
			if sym.Section == out[i].name {
				out[i].symbols = append(out[i].symbols, sym)
			}
		}

		for _, rl := range st.relocs {
			if rl.Section == out[i].name {
				out[i].relocs = append(out[i].relocs, rl)
			}
		}
	}

	if len(st.cfi) > 0 {
		out = append(out, elfSection{name: ".oriz_cfi", data: encodeCFISection(st)})
	}

	if dbg := encodeDebugSection(st); dbg != nil {
		out = append(out, elfSection{name: ".dbg.oriz", data: dbg})
	}

	return out
}

// encodeCFISection packs each cfiRecord as a tagged 10-byte entry: 1 tag
// byte, 1 padding byte, then either an 8-byte offset (start/end) or the raw
// 8-byte CFI micro-record (blob).
func encodeCFISection(st *state) []byte {
	buf := &bytes.Buffer{}

	for _, rec := range st.cfi {
		buf.WriteByte(byte(rec.Op))
		buf.WriteByte(0)

		if rec.Op == cfiBlobOp {
			buf.Write(rec.Blob[:])
		} else {
			binary.Write(buf, binary.LittleEndian, uint64(rec.Offset))
		}
	}

	return buf.Bytes()
}
