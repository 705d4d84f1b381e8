package vm

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/mem"
import "github.com/rcore-go/kernel/internal/riscv"

// The trampoline's switch code must stay executable across an satp
// change, so the same physical frame is mapped at TRAMPOLINE in every
// address space. A native build copies the trampoline text into it at
// boot; here the frame stays empty and only the mapping matters.
var trampframe *mem.Frame_t
var trampgen int

func trampoline_ppn() mem.Ppn_t {
	if trampframe == nil || trampgen != mem.Physmem.Generation() {
		f, ok := mem.Mkframe()
		if !ok {
			panic("oom for trampoline")
		}
		trampframe = f
		trampgen = mem.Physmem.Generation()
	}
	return trampframe.Ppn
}

/// Vm_t is one address space: a page table plus the ordered collection
/// of map areas whose union is everything mapped below the trampoline.
type Vm_t struct {
	pmap  *Pmap_t
	areas []*Vminfo_t
}

/// Mkvm creates a bare address space holding only the trampoline.
func Mkvm() *Vm_t {
	pm, ok := Mkpmap()
	if !ok {
		panic("oom for root pmap")
	}
	as := &Vm_t{pmap: pm}
	as.pmap.Map(Va_t(defs.TRAMPOLINE).Vpn(), trampoline_ppn(), PTE_R|PTE_X)
	return as
}

/// Token returns the satp value that activates this space.
func (as *Vm_t) Token() riscv.Satp_t {
	return as.pmap.Token()
}

/// Activate programs satp with this space's token and flushes the TLB.
func (as *Vm_t) Activate() {
	riscv.W_satp(as.Token())
	riscv.Sfence_vma()
}

/// Translate returns the leaf entry for vpn if present.
func (as *Vm_t) Translate(vpn Vpn_t) (Pte_t, bool) {
	return as.pmap.Translate(vpn)
}

/// Translate_va resolves a byte address through this space.
func (as *Vm_t) Translate_va(va Va_t) (mem.Pa_t, bool) {
	return as.pmap.Translate_va(va)
}

// map the area's pages and take ownership of it.
func (as *Vm_t) push(vmi *Vminfo_t, data []uint8, off uint64) {
	vmi.Map(as.pmap)
	if data != nil {
		vmi.Copy_data(as.pmap, data, off)
	}
	as.areas = append(as.areas, vmi)
}

// the framed area starting exactly at vpn, or nil.
func (as *Vm_t) area_at(vpn Vpn_t) *Vminfo_t {
	for _, vmi := range as.areas {
		if vmi.Mtype == MAP_FRAMED && vmi.Start == vpn {
			return vmi
		}
	}
	return nil
}

/// Insert_framed creates and maps a new framed area over
/// [startva, endva). It fails if any page in the range intersects an
/// existing area.
func (as *Vm_t) Insert_framed(startva, endva Va_t, perm Perm_t) defs.Err_t {
	s, e := startva.Floor(), endva.Ceil()
	for _, vmi := range as.areas {
		if vmi.Intersects(s, e) {
			return defs.EGENERIC
		}
	}
	as.push(Mkvminfo(startva, endva, MAP_FRAMED, perm), nil, 0)
	return 0
}

/// Remove_framed unmaps [startva, startva+len) and frees the frames.
/// Every page in the range must currently be mapped. Areas partially
/// covered by the range are split around it.
func (as *Vm_t) Remove_framed(startva Va_t, length int) defs.Err_t {
	s := startva.Floor()
	e := (startva + Va_t(length)).Ceil()
	for vpn := s; vpn < e; vpn++ {
		if pte, ok := as.pmap.Translate(vpn); !ok || !pte.Valid() {
			return defs.EGENERIC
		}
	}
	var keep []*Vminfo_t
	for _, vmi := range as.areas {
		if vmi.Mtype != MAP_FRAMED || !vmi.Intersects(s, e) {
			keep = append(keep, vmi)
			continue
		}
		lo, hi := vmi.Start, vmi.End
		if s > lo {
			lo = s
		}
		if e < hi {
			hi = e
		}
		for vpn := lo; vpn < hi; vpn++ {
			vmi.unmap_one(as.pmap, vpn)
		}
		// the uncovered remainders survive as their own areas
		if vmi.Start < lo {
			left := &Vminfo_t{Start: vmi.Start, End: lo, Mtype: MAP_FRAMED,
				Perm: vmi.Perm, frames: make(map[Vpn_t]*mem.Frame_t)}
			for vpn := left.Start; vpn < left.End; vpn++ {
				left.frames[vpn] = vmi.frames[vpn]
			}
			keep = append(keep, left)
		}
		if e < vmi.End {
			right := &Vminfo_t{Start: e, End: vmi.End, Mtype: MAP_FRAMED,
				Perm: vmi.Perm, frames: make(map[Vpn_t]*mem.Frame_t)}
			for vpn := right.Start; vpn < right.End; vpn++ {
				right.frames[vpn] = vmi.frames[vpn]
			}
			keep = append(keep, right)
		}
	}
	as.areas = keep
	riscv.Sfence_vma()
	return 0
}

/// Shrink_to truncates the framed area starting at startva so it ends
/// at endva. False if no such area exists.
func (as *Vm_t) Shrink_to(startva, endva Va_t) bool {
	vmi := as.area_at(startva.Floor())
	if vmi == nil {
		return false
	}
	vmi.Shrink_to(as.pmap, endva.Ceil())
	riscv.Sfence_vma()
	return true
}

/// Append_to extends the framed area starting at startva so it ends at
/// endva. False if no such area exists.
func (as *Vm_t) Append_to(startva, endva Va_t) bool {
	vmi := as.area_at(startva.Floor())
	if vmi == nil {
		return false
	}
	vmi.Append_to(as.pmap, endva.Ceil())
	return true
}

/// Mapped reports whether every page of [startva, startva+len) is
/// present.
func (as *Vm_t) Mapped(startva Va_t, length int) bool {
	s := startva.Floor()
	e := (startva + Va_t(length)).Ceil()
	for vpn := s; vpn < e; vpn++ {
		if _, ok := as.pmap.Translate(vpn); !ok {
			return false
		}
	}
	return true
}

/// Recycle releases every framed page and the page-table frames. The
/// space is dead afterwards; a task that exits calls this eagerly while
/// its TCB record lingers until reaped.
func (as *Vm_t) Recycle() {
	for _, vmi := range as.areas {
		if vmi.Mtype == MAP_FRAMED {
			for vpn, f := range vmi.frames {
				f.Drop()
				delete(vmi.frames, vpn)
			}
		}
	}
	as.areas = nil
	as.pmap.drop()
}

/// Trapctx_ppn returns the frame backing the trap-context page.
func (as *Vm_t) Trapctx_ppn() mem.Ppn_t {
	pte, ok := as.pmap.Translate(Va_t(defs.TRAP_CONTEXT).Vpn())
	if !ok {
		panic("no trap context page")
	}
	return pte.Ppn()
}

/// Areas exposes the area list for invariant checks.
func (as *Vm_t) Areas() []*Vminfo_t {
	return as.areas
}

// map the per-process trap-context page just below the trampoline.
// Supervisor-only: the user program must not scribble on its saved
// registers.
func (as *Vm_t) map_trapctx() {
	tva := Va_t(defs.TRAP_CONTEXT)
	as.push(Mkvminfo(tva, Va_t(defs.TRAMPOLINE), MAP_FRAMED, PERM_R|PERM_W), nil, 0)
}

/// Mkuvm_fork deep-copies a user address space: every framed area is
/// re-created with fresh frames and the parent's bytes. Pages are
/// copied eagerly; there is no copy-on-write here.
func Mkuvm_fork(parent *Vm_t) *Vm_t {
	child := Mkvm()
	for _, vmi := range parent.areas {
		if vmi.Mtype != MAP_FRAMED {
			continue
		}
		nvmi := Mkvminfo(vmi.Start.Va(), vmi.End.Va(), MAP_FRAMED, vmi.Perm)
		child.push(nvmi, nil, 0)
		for vpn := vmi.Start; vpn < vmi.End; vpn++ {
			src, ok := vmi.frames[vpn]
			if !ok {
				panic("framed area missing frame")
			}
			*nvmi.frames[vpn].Pg() = *src.Pg()
		}
	}
	return child
}
