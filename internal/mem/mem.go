// Package mem owns physical memory: the frame pool between the end of
// the kernel image and the top of RAM, and the direct map the kernel
// uses to reach any frame's bytes. Page tables, user data pages, and
// device DMA buffers all draw from this single pool.
package mem

import "sync"

import "github.com/rcore-go/kernel/internal/defs"

/// Pa_t represents a physical address.
type Pa_t uint64

/// Ppn_t is a physical page number, the address shifted right by PGSHIFT.
type Ppn_t uint64

/// Bytepg_t is a byte addressed page.
type Bytepg_t [defs.PGSIZE]uint8

/// Pa returns the base physical address of the page.
func (ppn Ppn_t) Pa() Pa_t {
	return Pa_t(uint64(ppn) << defs.PGSHIFT)
}

/// Ppn returns the page number containing the physical address.
func (pa Pa_t) Ppn() Ppn_t {
	return Ppn_t(uint64(pa) >> defs.PGSHIFT)
}

/// Off returns the byte offset of the address within its page.
func (pa Pa_t) Off() uint64 {
	return uint64(pa) & defs.PGOFFSET
}

/// Physpg_t describes a single physical page.
type Physpg_t struct {
	pg     *Bytepg_t
	allocd bool
}

/// Physmem_t manages the physical frame pool. Allocation is a stack
/// over [pool start, MEMORY_END): a bump pointer plus a recycled list.
/// Page contents live behind the direct map; a native build points the
/// direct map at RAM itself, the host build materializes pages on first
/// touch.
type Physmem_t struct {
	sync.Mutex
	pgs      map[Ppn_t]*Physpg_t
	poolnext Ppn_t
	poolend  Ppn_t
	nallocd  int
	gen      int
}

// page numbers returned by frame frees, reused before the bump
// pointer advances.
var recycled []Ppn_t

/// Physmem is the global physical memory allocator instance.
var Physmem = &Physmem_t{}

/// Phys_init initializes (or reinitializes) the frame pool over
/// [KERNEL_IMAGE_END, MEMORY_END). Any previously handed-out frame is
/// forgotten, so this must only run at boot.
func Phys_init() *Physmem_t {
	phys := Physmem
	phys.Lock()
	phys.pgs = make(map[Ppn_t]*Physpg_t)
	phys.poolnext = Pa_t(defs.KERNEL_IMAGE_END).Ppn()
	phys.poolend = Pa_t(defs.MEMORY_END).Ppn()
	phys.nallocd = 0
	phys.gen++
	recycled = recycled[:0]
	vqframes = vqframes[:0]
	phys.Unlock()
	return phys
}

/// Generation counts Phys_init calls. Holders of boot-time frames (the
/// trampoline) compare it to notice that the pool was rebuilt under
/// them and their frame is gone.
func (phys *Physmem_t) Generation() int {
	phys.Lock()
	g := phys.gen
	phys.Unlock()
	return g
}

func (phys *Physmem_t) physpg(ppn Ppn_t) *Physpg_t {
	if phys.pgs == nil {
		panic("phys not initted")
	}
	pp, ok := phys.pgs[ppn]
	if !ok {
		pp = &Physpg_t{pg: new(Bytepg_t)}
		phys.pgs[ppn] = pp
	}
	return pp
}

/// Dmap returns the page backing the given physical address via the
/// direct map.
func (phys *Physmem_t) Dmap(pa Pa_t) *Bytepg_t {
	phys.Lock()
	pg := phys.physpg(pa.Ppn()).pg
	phys.Unlock()
	return pg
}

/// Dmap8 returns the bytes of the page holding pa, starting at pa's
/// offset within the page.
func (phys *Physmem_t) Dmap8(pa Pa_t) []uint8 {
	pg := phys.Dmap(pa)
	return pg[pa.Off():]
}

// pop one free ppn; caller holds the lock.
func (phys *Physmem_t) _pop() (Ppn_t, bool) {
	if n := len(recycled); n > 0 {
		ppn := recycled[n-1]
		recycled = recycled[:n-1]
		return ppn, true
	}
	if phys.poolnext >= phys.poolend {
		return 0, false
	}
	ppn := phys.poolnext
	phys.poolnext++
	return ppn, true
}

func (phys *Physmem_t) _take(ppn Ppn_t) *Bytepg_t {
	pp := phys.physpg(ppn)
	if pp.allocd {
		panic("frame already allocated")
	}
	pp.allocd = true
	phys.nallocd++
	*pp.pg = Bytepg_t{}
	return pp.pg
}

func (phys *Physmem_t) free(ppn Ppn_t) {
	phys.Lock()
	pp, ok := phys.pgs[ppn]
	if !ok || !pp.allocd {
		panic("double free of frame")
	}
	pp.allocd = false
	phys.nallocd--
	recycled = append(recycled, ppn)
	phys.Unlock()
}

/// Allocated returns the number of frames currently held by live
/// trackers.
func (phys *Physmem_t) Allocated() int {
	phys.Lock()
	n := phys.nallocd
	phys.Unlock()
	return n
}
