package vm

import (
	"bytes"
	"debug/elf"
	"io"

	"github.com/rcore-go/kernel/internal/defs"
	"github.com/rcore-go/kernel/internal/util"
)

/// Mkuvm_elf builds a user address space from an ELF image: one framed
/// area per PT_LOAD segment with the segment's permissions, a guard gap
/// and user stack above the image, the trap-context page, and the
/// trampoline. It returns the space, the initial user stack pointer,
/// and the entry point.
func Mkuvm_elf(data []uint8) (*Vm_t, uint64, uint64, defs.Err_t) {
	ef, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, -defs.ENOENT
	}
	if ef.Class != elf.ELFCLASS64 || ef.Data != elf.ELFDATA2LSB {
		return nil, 0, 0, -defs.ENOENT
	}

	as := Mkvm()
	var maxend Va_t
	for _, ph := range ef.Progs {
		if ph.Type != elf.PT_LOAD {
			continue
		}
		start := Va_t(ph.Vaddr)
		end := start + Va_t(ph.Memsz)
		perm := PERM_U
		if ph.Flags&elf.PF_R != 0 {
			perm |= PERM_R
		}
		if ph.Flags&elf.PF_W != 0 {
			perm |= PERM_W
		}
		if ph.Flags&elf.PF_X != 0 {
			perm |= PERM_X
		}
		seg, rerr := io.ReadAll(io.LimitReader(ph.Open(), int64(ph.Filesz)))
		if rerr != nil {
			as.Recycle()
			return nil, 0, 0, -defs.ENOENT
		}
		as.push(Mkvminfo(start, end, MAP_FRAMED, perm), seg, start.Off())
		if end > maxend {
			maxend = end
		}
	}

	// one unmapped guard page between the image and the stack
	stackbase := Va_t(util.Roundup(uint64(maxend), uint64(defs.PGSIZE))) +
		Va_t(defs.PGSIZE)
	stacktop := stackbase + Va_t(defs.USER_STACK_SIZE)
	as.push(Mkvminfo(stackbase, stacktop, MAP_FRAMED, PERM_R|PERM_W|PERM_U), nil, 0)

	// the heap starts empty at the stack top and grows by sbrk
	as.push(Mkvminfo(stacktop, stacktop, MAP_FRAMED, PERM_R|PERM_W|PERM_U), nil, 0)

	as.map_trapctx()
	return as, uint64(stacktop), ef.Entry, 0
}
