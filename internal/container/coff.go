package container

import (
	"bytes"
	"encoding/binary"
	"strconv"

	"github.com/orizon-lang/orizon-objemit/internal/objwriter"
)

// COFF constants (subset of winnt.h needed for an amd64 or arm64 relocatable
// object). Grounded on the teacher's own coff_writer.go, extended here with
// a real symbol table and relocation records instead of just bundling raw
// section payloads.
const (
	imageFileHeaderSize    = 20
	imageSectionHeaderSize = 40
	imageSymbolSize        = 18
	imageRelocationSize    = 10

	machineAMD64 = 0x8664
	machineARM64 = 0xAA64

	imageSCNCntCode             = 0x00000020
	imageSCNCntInitializedData  = 0x00000040
	imageSCNMemExecute          = 0x20000000
	imageSCNMemRead             = 0x40000000
	imageSCNMemWrite            = 0x80000000
	imageSCNAlign1Bytes         = 0x00100000
	imageSCNLnkNRelocOvfl       = 0x01000000
	imageSymClassExternal       = 2
	imageSymClassStatic         = 3
	imageRelAMD64Addr64         = 0x0001
	imageRelAMD64Rel32          = 0x0004
	imageRelARM64Addr64         = 0x000E
	imageRelARM64Rel32          = 0x0011
	textSectionCharacteristics  = imageSCNCntCode | imageSCNMemExecute | imageSCNMemRead
	dataSectionCharacteristics  = imageSCNCntInitializedData | imageSCNMemRead | imageSCNMemWrite
	debugSectionCharacteristics = imageSCNCntInitializedData | imageSCNMemRead | imageSCNAlign1Bytes
)

// coffMachine and coffRelocTypes resolve the arch-dependent machine field
// and relocation-type pair; every other part of the COFF layout (section
// table, symbol table, string table) is arch-independent.
func coffMachine(arch objwriter.Arch) uint16 {
	if arch == objwriter.ARM64 {
		return machineARM64
	}

	return machineAMD64
}

func coffRelocTypes(arch objwriter.Arch) (addr64, rel32 uint16) {
	if arch == objwriter.ARM64 {
		return imageRelARM64Addr64, imageRelARM64Rel32
	}

	return imageRelAMD64Addr64, imageRelAMD64Rel32
}

// encodeCOFF lays out a real (if minimal) amd64 or arm64 COFF object: one section
// per emitted section name, a symbol table with one entry per section, one
// per user-defined symbol, and one per external relocation target, and a
// relocation table per section. Unwind data (from EmitWinFrameInfo) is
// packed into synthetic .xdata/.pdata sections; debug records go into a
// private .dbg.oriz section (see debugsection.go).
func encodeCOFF(st *state) ([]byte, error) {
	sections := buildCOFFSections(st)

	strtab := &bytes.Buffer{}
	nameField := func(name string) [8]byte {
		var out [8]byte
		if len(name) <= 8 {
			copy(out[:], name)
			return out
		}

		off := uint32(strtab.Len()) + 4
		strtab.WriteString(name)
		strtab.WriteByte(0)
		copy(out[:], "/"+strconv.FormatUint(uint64(off), 10))

		return out
	}

	symIndex := map[string]int{}
	var symbols []coffSymbol

	for i, sec := range sections {
		symbols = append(symbols, coffSymbol{name: sec.name, sectionNumber: int16(i + 1), storageClass: imageSymClassStatic})
	}

	for i, sec := range sections {
		for _, sym := range sec.symbols {
			symIndex[sym.Name] = len(symbols)
			symbols = append(symbols, coffSymbol{
				name:          sym.Name,
				value:         uint32(sym.Offset),
				sectionNumber: int16(i + 1),
				storageClass:  imageSymClassExternal,
			})
		}
	}

	for _, sec := range sections {
		for _, rl := range sec.relocs {
			if _, ok := symIndex[rl.TargetName]; ok {
				continue
			}

			symIndex[rl.TargetName] = len(symbols)
			symbols = append(symbols, coffSymbol{name: rl.TargetName, sectionNumber: 0, storageClass: imageSymClassExternal})
		}
	}

	headerSize := imageFileHeaderSize + imageSectionHeaderSize*len(sections)
	cur := uint32(headerSize)

	align4 := func(v uint32) uint32 { return (v + 3) &^ 3 }

	dataOff := make([]uint32, len(sections))
	relocOff := make([]uint32, len(sections))
	relocCount := make([]uint16, len(sections))

	for i, sec := range sections {
		if len(sec.data) > 0 {
			cur = align4(cur)
			dataOff[i] = cur
			cur += uint32(len(sec.data))
		}
	}

	for i, sec := range sections {
		if len(sec.relocs) > 0 {
			relocOff[i] = cur
			relocCount[i] = uint16(len(sec.relocs))
			cur += uint32(len(sec.relocs)) * imageRelocationSize
		}
	}

	symtabOff := cur
	cur += uint32(len(symbols)) * imageSymbolSize

	buf := &bytes.Buffer{}
	buf.Grow(int(cur) + 4 + strtab.Len())

	binary.Write(buf, binary.LittleEndian, coffMachine(st.arch))
	binary.Write(buf, binary.LittleEndian, uint16(len(sections)))
	binary.Write(buf, binary.LittleEndian, uint32(0)) // TimeDateStamp
	binary.Write(buf, binary.LittleEndian, symtabOff)
	binary.Write(buf, binary.LittleEndian, uint32(len(symbols)))
	binary.Write(buf, binary.LittleEndian, uint16(0)) // SizeOfOptionalHeader
	binary.Write(buf, binary.LittleEndian, uint16(0)) // Characteristics

	for i, sec := range sections {
		nf := nameField(sec.name)
		buf.Write(nf[:])
		binary.Write(buf, binary.LittleEndian, uint32(len(sec.data)))
		binary.Write(buf, binary.LittleEndian, uint32(0)) // VirtualAddress
		binary.Write(buf, binary.LittleEndian, uint32(len(sec.data)))
		binary.Write(buf, binary.LittleEndian, dataOff[i])
		binary.Write(buf, binary.LittleEndian, relocOff[i])
		binary.Write(buf, binary.LittleEndian, uint32(0)) // PointerToLinenumbers
		binary.Write(buf, binary.LittleEndian, relocCount[i])
		binary.Write(buf, binary.LittleEndian, uint16(0)) // NumberOfLinenumbers
		binary.Write(buf, binary.LittleEndian, sec.characteristics)
	}

	for i, sec := range sections {
		if len(sec.data) == 0 {
			continue
		}

		for uint32(buf.Len()) < dataOff[i] {
			buf.WriteByte(0)
		}

		buf.Write(sec.data)
	}

	addr64, rel32 := coffRelocTypes(st.arch)

	for _, sec := range sections {
		for _, rl := range sec.relocs {
			binary.Write(buf, binary.LittleEndian, uint32(rl.Offset))
			binary.Write(buf, binary.LittleEndian, uint32(symIndex[rl.TargetName]))

			typ := addr64
			if rl.PCRelative {
				typ = rel32
			}

			binary.Write(buf, binary.LittleEndian, typ)
		}
	}

	for _, sym := range symbols {
		writeCOFFSymbol(buf, nameField(sym.name), sym)
	}

	binary.Write(buf, binary.LittleEndian, uint32(4+strtab.Len()))
	buf.Write(strtab.Bytes())

	return buf.Bytes(), nil
}

type coffSymbol struct {
	name          string
	value         uint32
	sectionNumber int16
	storageClass  byte
}

func writeCOFFSymbol(buf *bytes.Buffer, name [8]byte, sym coffSymbol) {
	buf.Write(name[:])
	binary.Write(buf, binary.LittleEndian, sym.value)
	binary.Write(buf, binary.LittleEndian, sym.sectionNumber)
	binary.Write(buf, binary.LittleEndian, uint16(0)) // Type
	buf.WriteByte(sym.storageClass)
	buf.WriteByte(0) // NumberOfAuxSymbols
}

type coffSection struct {
	name            string
	data            []byte
	characteristics uint32
	symbols         []symbolRecord
	relocs          []relocRecord
}

// buildCOFFSections assembles one coffSection per user section plus the
// synthetic .xdata/.pdata (from win-frame records) and .dbg.oriz (from
// debug records) sections, in a stable order.
func buildCOFFSections(st *state) []coffSection {
	var out []coffSection

	for _, name := range st.sectionOrder {
		out = append(out, coffSection{
			name:            name,
			data:            st.sectionData[name].Bytes(),
			characteristics: characteristicsFor(name),
		})
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

	if len(st.winFrames) > 0 {
		xdata, pdata := buildPDataXData(st)
		out = append(out,
			coffSection{name: ".xdata", data: xdata, characteristics: debugSectionCharacteristics},
			coffSection{name: ".pdata", data: pdata, characteristics: debugSectionCharacteristics},
		)
	}

	if dbg := encodeDebugSection(st); dbg != nil {
		out = append(out, coffSection{name: ".dbg.oriz", data: dbg, characteristics: debugSectionCharacteristics})
	}

	return out
}

func characteristicsFor(sectionName string) uint32 {
	switch sectionName {
	case "text", ".text":
		return textSectionCharacteristics
	default:
		return dataSectionCharacteristics
	}
}

// buildPDataXData packs each Windows FrameInfo blob into .xdata and records
// a (begin, end, unwindOffset) triple per entry in .pdata. This is a
// simplified stand-in for the real RUNTIME_FUNCTION/UNWIND_INFO relationship
// (which normally ties .pdata entries to their function via relocations);
// here the offsets are recorded directly since this writer does not track
// per-section base addresses across a full link.
func buildPDataXData(st *state) (xdata, pdata []byte) {
	xb := &bytes.Buffer{}
	pb := &bytes.Buffer{}

	for _, fr := range st.winFrames {
		unwindOff := uint32(xb.Len())
		xb.Write(fr.Blob)

		binary.Write(pb, binary.LittleEndian, uint32(fr.Start))
		binary.Write(pb, binary.LittleEndian, uint32(fr.End))
		binary.Write(pb, binary.LittleEndian, unwindOff)
	}

	return xb.Bytes(), pb.Bytes()
}
