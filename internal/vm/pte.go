// Package vm implements Sv39 address translation and per-process
// address spaces: the three-level page table over the frame pool, map
// areas with ownership of their frames, the trampoline and trap-context
// mappings every space carries, and the user-memory access helpers the
// syscall layer goes through.
package vm

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/mem"

/// Pte_t is a 64-bit Sv39 page table entry: a PPN in bits 10..53 plus
/// the flag bits below.
type Pte_t uint64

/// PTE_V marks an entry valid.
const PTE_V Pte_t = 1 << 0

/// PTE_R marks a page readable.
const PTE_R Pte_t = 1 << 1

/// PTE_W marks a page writable.
const PTE_W Pte_t = 1 << 2

/// PTE_X marks a page executable.
const PTE_X Pte_t = 1 << 3

/// PTE_U marks a page user-accessible.
const PTE_U Pte_t = 1 << 4

/// PTE_G marks a global page.
const PTE_G Pte_t = 1 << 5

/// PTE_A is the hardware accessed bit.
const PTE_A Pte_t = 1 << 6

/// PTE_D is the hardware dirty bit.
const PTE_D Pte_t = 1 << 7

/// Mkpte builds a leaf or non-leaf entry for the given frame.
func Mkpte(ppn mem.Ppn_t, flags Pte_t) Pte_t {
	return Pte_t(uint64(ppn)<<10) | flags
}

/// Ppn extracts the physical page number an entry points at.
func (pte Pte_t) Ppn() mem.Ppn_t {
	return mem.Ppn_t((uint64(pte) >> 10) & ((1 << 44) - 1))
}

/// Valid reports whether the entry is present.
func (pte Pte_t) Valid() bool {
	return pte&PTE_V != 0
}

/// Readable reports the R bit.
func (pte Pte_t) Readable() bool {
	return pte&PTE_R != 0
}

/// Writable reports the W bit.
func (pte Pte_t) Writable() bool {
	return pte&PTE_W != 0
}

/// Executable reports the X bit.
func (pte Pte_t) Executable() bool {
	return pte&PTE_X != 0
}

/// User reports the U bit.
func (pte Pte_t) User() bool {
	return pte&PTE_U != 0
}

/// Va_t represents a virtual address.
type Va_t uint64

/// Vpn_t is a virtual page number.
type Vpn_t uint64

/// Vpn returns the page number containing the virtual address.
func (va Va_t) Vpn() Vpn_t {
	return Vpn_t(uint64(va) >> defs.PGSHIFT)
}

/// Floor returns the page number of the page containing va.
func (va Va_t) Floor() Vpn_t {
	return va.Vpn()
}

/// Ceil returns the page number of the first page at or above va.
func (va Va_t) Ceil() Vpn_t {
	return Vpn_t((uint64(va) + defs.PGOFFSET) >> defs.PGSHIFT)
}

/// Off returns the byte offset of the address within its page.
func (va Va_t) Off() uint64 {
	return uint64(va) & defs.PGOFFSET
}

/// Aligned reports whether the address sits on a page boundary.
func (va Va_t) Aligned() bool {
	return va.Off() == 0
}

/// Va returns the base virtual address of the page.
func (vpn Vpn_t) Va() Va_t {
	return Va_t(uint64(vpn) << defs.PGSHIFT)
}

/// Indexes splits a page number into its three 9-bit radix-tree
/// indexes, root level first.
func (vpn Vpn_t) Indexes() [3]int {
	v := uint64(vpn)
	return [3]int{
		int((v >> 18) & 0x1ff),
		int((v >> 9) & 0x1ff),
		int(v & 0x1ff),
	}
}
