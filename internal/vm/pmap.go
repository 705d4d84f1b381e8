package vm

import "unsafe"

import "github.com/rcore-go/kernel/internal/mem"
import "github.com/rcore-go/kernel/internal/riscv"

/// Ptepg_t views a frame as the 512 entries of one table level.
type Ptepg_t [512]Pte_t

func ptepg(ppn mem.Ppn_t) *Ptepg_t {
	pg := mem.Physmem.Dmap(ppn.Pa())
	return (*Ptepg_t)(unsafe.Pointer(pg))
}

/// Pmap_t is one Sv39 page table: the root frame plus every
/// intermediate table frame the walks below it allocated. The
/// intermediate frames belong to the table and die with it; leaf data
/// frames belong to whoever mapped them.
type Pmap_t struct {
	root   mem.Ppn_t
	frames []*mem.Frame_t
}

/// Mkpmap allocates an empty page table.
func Mkpmap() (*Pmap_t, bool) {
	f, ok := mem.Mkframe()
	if !ok {
		return nil, false
	}
	return &Pmap_t{root: f.Ppn, frames: []*mem.Frame_t{f}}, true
}

/// Mkpmap_token wraps the table a satp value points at, for reading a
/// foreign address space. The wrapper owns no frames; tearing it down
/// is not its business.
func Mkpmap_token(token riscv.Satp_t) *Pmap_t {
	return &Pmap_t{root: mem.Ppn_t(token.Ppn())}
}

/// Token encodes this table's root into an satp value.
func (pm *Pmap_t) Token() riscv.Satp_t {
	return riscv.MkSatp(uint64(pm.root))
}

// walk to the leaf entry for vpn, allocating intermediate tables.
func (pm *Pmap_t) find_pte_create(vpn Vpn_t) (*Pte_t, bool) {
	idxs := vpn.Indexes()
	ppn := pm.root
	for lvl := 0; ; lvl++ {
		pte := &ptepg(ppn)[idxs[lvl]]
		if lvl == 2 {
			return pte, true
		}
		if !pte.Valid() {
			f, ok := mem.Mkframe()
			if !ok {
				return nil, false
			}
			pm.frames = append(pm.frames, f)
			*pte = Mkpte(f.Ppn, PTE_V)
		}
		ppn = pte.Ppn()
	}
}

// walk to the leaf entry for vpn without allocating; nil if any level
// is missing.
func (pm *Pmap_t) find_pte(vpn Vpn_t) *Pte_t {
	idxs := vpn.Indexes()
	ppn := pm.root
	for lvl := 0; ; lvl++ {
		pte := &ptepg(ppn)[idxs[lvl]]
		if lvl == 2 {
			return pte
		}
		if !pte.Valid() {
			return nil
		}
		ppn = pte.Ppn()
	}
}

/// Map installs a leaf mapping vpn -> ppn. Mapping over a valid entry
/// is a kernel bug; callers that care check first.
func (pm *Pmap_t) Map(vpn Vpn_t, ppn mem.Ppn_t, flags Pte_t) {
	pte, ok := pm.find_pte_create(vpn)
	if !ok {
		panic("oom during pmap walk")
	}
	if pte.Valid() {
		panic("vpn is mapped before mapping")
	}
	*pte = Mkpte(ppn, flags|PTE_V)
}

/// Unmap removes the leaf mapping for vpn. The underlying data frame is
/// the owner's to free, not ours.
func (pm *Pmap_t) Unmap(vpn Vpn_t) {
	pte := pm.find_pte(vpn)
	if pte == nil || !pte.Valid() {
		panic("vpn is invalid before unmapping")
	}
	*pte = 0
}

/// Translate returns the leaf entry for vpn if one is present.
func (pm *Pmap_t) Translate(vpn Vpn_t) (Pte_t, bool) {
	pte := pm.find_pte(vpn)
	if pte == nil || !pte.Valid() {
		return 0, false
	}
	return *pte, true
}

/// Translate_va resolves a byte address, preserving the offset within
/// the page.
func (pm *Pmap_t) Translate_va(va Va_t) (mem.Pa_t, bool) {
	pte, ok := pm.Translate(va.Vpn())
	if !ok {
		return 0, false
	}
	return mem.Pa_t(uint64(pte.Ppn().Pa()) + va.Off()), true
}

// free the root and intermediate table frames.
func (pm *Pmap_t) drop() {
	for _, f := range pm.frames {
		f.Drop()
	}
	pm.frames = nil
}
