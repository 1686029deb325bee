package container

import (
	"bytes"
	"encoding/binary"

	"github.com/orizon-lang/orizon-objemit/internal/objwriter"
)

// Mach-O 64-bit constants, extending the subset the teacher's
// macho_writer.go already establishes (MH_MAGIC_64, CPU_TYPE_X86_64,
// LC_SEGMENT_64) — now also CPU_TYPE_ARM64 — with LC_SYMTAB and real
// relocation_info entries so this writer can carry symbols and relocations
// instead of just bundling raw section payloads under one segment.
const (
	machMagic64        = 0xfeedfacf
	cpuTypeX8664       = 0x01000007
	cpuSubtypeX8664All = 0x00000003
	cpuTypeARM64       = 0x0100000C
	cpuSubtypeARM64All = 0x00000000
	machObject         = 0x1
	lcSegment64        = 0x19
	lcSymtab           = 0x2

	nListExt = 0x01 // N_EXT

	// genericRelocVanilla (GENERIC_RELOC_VANILLA) doubles as ARM64_RELOC_UNSIGNED
	// on arm64: both are numerically 0. This writer never emits the
	// ARM64-specific addend/page relocation kinds, only the generic
	// vanilla/unsigned form, so one constant covers both architectures.
	genericRelocVanilla = 0
)

// machoCPU resolves the arch-dependent (cputype, cpusubtype) pair; the rest
// of the Mach-O layout below is arch-independent.
func machoCPU(arch objwriter.Arch) (cpuType, cpuSubtype uint32) {
	if arch == objwriter.ARM64 {
		return cpuTypeARM64, cpuSubtypeARM64All
	}

	return cpuTypeX8664, cpuSubtypeX8664All
}

type machHeader64 struct {
	Magic      uint32
	CPUType    uint32
	CPUSubtype uint32
	FileType   uint32
	NCmds      uint32
	SizeOfCmds uint32
	Flags      uint32
	Reserved   uint32
}

type segmentCommand64 struct {
	Cmd      uint32
	Cmdsize  uint32
	Segname  [16]byte
	Vmaddr   uint64
	Vmsize   uint64
	Fileoff  uint64
	Filesize uint64
	Maxprot  int32
	Initprot int32
	Nsects   uint32
	Flags    uint32
}

type section64 struct {
	Sectname  [16]byte
	Segname   [16]byte
	Addr      uint64
	Size      uint64
	Offset    uint32
	Align     uint32
	Reloff    uint32
	Nreloc    uint32
	Flags     uint32
	Reserved1 uint32
	Reserved2 uint32
	Reserved3 uint32
}

type symtabCommand struct {
	Cmd     uint32
	Cmdsize uint32
	Symoff  uint32
	Nsyms   uint32
	Stroff  uint32
	Strsize uint32
}

type nlist64 struct {
	Strx  uint32
	Type  byte
	Sect  byte
	Desc  uint16
	Value uint64
}

// relocationInfo mirrors Mach-O's packed relocation_info bitfield: r_symbolnum
// (24 bits), r_pcrel/r_length/r_extern/r_type packed into the top byte. Go
// has no bitfield syntax, so it is assembled with shifts at encode time.
type relocationInfo struct {
	address   uint32
	symbolnum uint32
	pcrel     bool
	length    uint32 // log2 byte count: 0=1,1=2,2=4,3=8
	extern    bool
	rtype     uint32
}

func (r relocationInfo) encode() [8]byte {
	var out [8]byte
	binary.LittleEndian.PutUint32(out[0:4], r.address)

	word := r.symbolnum & 0x00ffffff
	if r.pcrel {
		word |= 1 << 24
	}

	word |= (r.length & 0x3) << 25

	if r.extern {
		word |= 1 << 27
	}

	word |= (r.rtype & 0xf) << 28
	binary.LittleEndian.PutUint32(out[4:8], word)

	return out
}

func setPaddedName(dst *[16]byte, name string) {
	n := len(name)
	if n > 16 {
		n = 16
	}

	copy(dst[:], []byte(name)[:n])
}

type machoSection struct {
	name    string
	data    []byte
	symbols []symbolRecord
	relocs  []relocRecord
}

func buildMachOSections(st *state) []machoSection {
	var out []machoSection

	for _, name := range st.sectionOrder {
		out = append(out, machoSection{name: name, data: st.sectionData[name].Bytes()})
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
		out = append(out, machoSection{name: "oriz_cfi", data: encodeCFISection(st)})
	}

	if dbg := encodeDebugSection(st); dbg != nil {
		out = append(out, machoSection{name: "oriz_dbg", data: dbg})
	}

	return out
}

// encodeMachO lays out a single __ORIZON segment holding every emitted
// section (OSX symbol names carry the leading-underscore mangling already
// applied by objwriter's symbol map, so no further renaming happens here),
// an LC_SYMTAB command, and one relocation table per section referenced by
// its section64.Reloff/Nreloc fields.
func encodeMachO(st *state) ([]byte, error) {
	sections := buildMachOSections(st)

	strtab := &bytes.Buffer{}
	strtab.WriteByte(0)

	strOff := map[string]uint32{}
	internStr := func(s string) uint32 {
		if s == "" {
			return 0
		}

		if off, ok := strOff[s]; ok {
			return off
		}

		off := uint32(strtab.Len())
		strtab.WriteString(s)
		strtab.WriteByte(0)
		strOff[s] = off

		return off
	}

	symIndex := map[string]int{}
	var symbols []nlist64

	for i, sec := range sections {
		for _, sym := range sec.symbols {
			symIndex[sym.Name] = len(symbols)
			symbols = append(symbols, nlist64{
				Strx:  internStr(sym.Name),
				Type:  nListExt | 0x0e, // N_SECT | N_EXT
				Sect:  byte(i + 1),
				Value: uint64(sym.Offset),
			})
		}
	}

	for _, sec := range sections {
		for _, rl := range sec.relocs {
			if _, ok := symIndex[rl.TargetName]; ok {
				continue
			}

			symIndex[rl.TargetName] = len(symbols)
			symbols = append(symbols, nlist64{Strx: internStr(rl.TargetName), Type: nListExt})
		}
	}

	mhSize := uint32(binary.Size(machHeader64{}))
	segSize := uint32(binary.Size(segmentCommand64{}))
	secSize := uint32(binary.Size(section64{}))
	symtabCmdSize := uint32(binary.Size(symtabCommand{}))

	nsects := len(sections)
	segCmdsize := segSize + secSize*uint32(nsects)
	ncmds := uint32(2)
	sizeOfCmds := segCmdsize + symtabCmdSize

	cur := mhSize + sizeOfCmds

	dataOff := make([]uint32, nsects)
	relocOff := make([]uint32, nsects)

	for i, sec := range sections {
		dataOff[i] = cur
		cur += uint32(len(sec.data))
	}

	for i, sec := range sections {
		if len(sec.relocs) == 0 {
			continue
		}

		relocOff[i] = cur
		cur += uint32(len(sec.relocs)) * 8
	}

	symoff := cur
	cur += uint32(len(symbols)) * uint32(binary.Size(nlist64{}))

	stroff := cur
	cur += uint32(strtab.Len())

	buf := &bytes.Buffer{}
	buf.Grow(int(cur))

	cpuType, cpuSubtype := machoCPU(st.arch)

	mh := machHeader64{
		Magic:      machMagic64,
		CPUType:    cpuType,
		CPUSubtype: cpuSubtype,
		FileType:   machObject,
		NCmds:      ncmds,
		SizeOfCmds: sizeOfCmds,
	}
	binary.Write(buf, binary.LittleEndian, mh)

	seg := segmentCommand64{
		Cmd:      lcSegment64,
		Cmdsize:  segCmdsize,
		Fileoff:  uint64(mhSize + sizeOfCmds),
		Filesize: uint64(symoff - (mhSize + sizeOfCmds)),
		Maxprot:  7,
		Initprot: 7,
		Nsects:   uint32(nsects),
	}
	setPaddedName(&seg.Segname, "__ORIZON")
	binary.Write(buf, binary.LittleEndian, seg)

	for i, sec := range sections {
		s := section64{
			Addr:   0,
			Size:   uint64(len(sec.data)),
			Offset: dataOff[i],
			Align:  0,
		}
		setPaddedName(&s.Sectname, truncatedMachOName(sec.name))
		setPaddedName(&s.Segname, "__ORIZON")

		if len(sec.relocs) > 0 {
			s.Reloff = relocOff[i]
			s.Nreloc = uint32(len(sec.relocs))
		}

		binary.Write(buf, binary.LittleEndian, s)
	}

	binary.Write(buf, binary.LittleEndian, symtabCommand{
		Cmd:     lcSymtab,
		Cmdsize: symtabCmdSize,
		Symoff:  symoff,
		Nsyms:   uint32(len(symbols)),
		Stroff:  stroff,
		Strsize: uint32(strtab.Len()),
	})

	for _, sec := range sections {
		buf.Write(sec.data)
	}

	for _, sec := range sections {
		if len(sec.relocs) == 0 {
			continue
		}

		for _, rl := range sec.relocs {
			length := uint32(2) // 4 bytes
			if rl.Width == 8 {
				length = 3
			}

			ri := relocationInfo{
				address:   uint32(rl.Offset),
				symbolnum: uint32(symIndex[rl.TargetName]),
				pcrel:     rl.PCRelative,
				length:    length,
				extern:    true,
				rtype:     genericRelocVanilla,
			}

			enc := ri.encode()
			buf.Write(enc[:])
		}
	}

	for _, s := range symbols {
		binary.Write(buf, binary.LittleEndian, s)
	}

	buf.Write(strtab.Bytes())

	return buf.Bytes(), nil
}

// truncatedMachOName strips a leading dot (Mach-O section names conventionally
// omit it, e.g. "__text" not ".text") and caps at 16 bytes.
func truncatedMachOName(name string) string {
	if len(name) > 0 && name[0] == '.' {
		name = name[1:]
	}

	if len(name) > 16 {
		name = name[:16]
	}

	return name
}
