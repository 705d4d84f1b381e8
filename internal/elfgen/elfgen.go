// Package elfgen writes minimal ELF64 executables: an ELF header, one
// program header per segment, and the segment bytes. The build tooling
// uses it to wrap raw user code for the loader, and tests use it to
// make loadable images without a cross toolchain.
package elfgen

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

/// Seg_t is one loadable segment.
type Seg_t struct {
	Vaddr uint64
	Flags elf.ProgFlag
	Data  []uint8
	// Memsz beyond len(Data) becomes zero-initialized memory; zero
	// means len(Data).
	Memsz uint64
}

const ehsize = 64
const phentsize = 56

/// MkELF64 assembles a little-endian RISC-V executable with the given
/// entry point and segments.
func MkELF64(entry uint64, segs []Seg_t) []uint8 {
	var buf bytes.Buffer
	phnum := len(segs)
	dataoff := uint64(ehsize + phentsize*phnum)

	ident := [16]uint8{0x7f, 'E', 'L', 'F'}
	ident[elf.EI_CLASS] = uint8(elf.ELFCLASS64)
	ident[elf.EI_DATA] = uint8(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = uint8(elf.EV_CURRENT)

	ehdr := elf.Header64{
		Ident:     ident,
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     entry,
		Phoff:     ehsize,
		Ehsize:    ehsize,
		Phentsize: phentsize,
		Phnum:     uint16(phnum),
	}
	if err := binary.Write(&buf, binary.LittleEndian, &ehdr); err != nil {
		panic(err)
	}

	off := dataoff
	for _, s := range segs {
		memsz := s.Memsz
		if memsz == 0 {
			memsz = uint64(len(s.Data))
		}
		phdr := elf.Prog64{
			Type:   uint32(elf.PT_LOAD),
			Flags:  uint32(s.Flags),
			Off:    off,
			Vaddr:  s.Vaddr,
			Paddr:  s.Vaddr,
			Filesz: uint64(len(s.Data)),
			Memsz:  memsz,
			Align:  0x1000,
		}
		if err := binary.Write(&buf, binary.LittleEndian, &phdr); err != nil {
			panic(err)
		}
		off += uint64(len(s.Data))
	}
	for _, s := range segs {
		buf.Write(s.Data)
	}
	return buf.Bytes()
}
