package vm

import "testing"

import "debug/elf"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/elfgen"
import "github.com/rcore-go/kernel/internal/mem"

func TestPmapMapTranslate(t *testing.T) {
	mem.Phys_init()
	pm, ok := Mkpmap()
	require.True(t, ok)
	f, ok := mem.Mkframe()
	require.True(t, ok)

	vpn := Va_t(0x10000).Vpn()
	pm.Map(vpn, f.Ppn, PTE_R|PTE_W|PTE_U)

	pte, ok := pm.Translate(vpn)
	require.True(t, ok)
	assert.Equal(t, f.Ppn, pte.Ppn())
	assert.True(t, pte.Readable())
	assert.True(t, pte.Writable())
	assert.False(t, pte.Executable())
	assert.True(t, pte.User())

	// byte-level translation keeps the page offset
	pa, ok := pm.Translate_va(Va_t(0x10000 + 0x123))
	require.True(t, ok)
	assert.Equal(t, uint64(f.Pa())+0x123, uint64(pa))

	// double map is a kernel bug
	assert.Panics(t, func() { pm.Map(vpn, f.Ppn, PTE_R) })

	pm.Unmap(vpn)
	_, ok = pm.Translate(vpn)
	assert.False(t, ok)
	assert.Panics(t, func() { pm.Unmap(vpn) })
}

func TestSatpToken(t *testing.T) {
	mem.Phys_init()
	pm, ok := Mkpmap()
	require.True(t, ok)
	tok := pm.Token()
	assert.Equal(t, uint64(8), uint64(tok)>>60)
	view := Mkpmap_token(tok)
	assert.Equal(t, pm.root, view.root)
}

func TestInsertFramedOverlap(t *testing.T) {
	mem.Phys_init()
	as := Mkvm()
	require.Zero(t, as.Insert_framed(Va_t(0x10000), Va_t(0x12000), PERM_R|PERM_W|PERM_U))
	// overlapping second page
	assert.NotZero(t, as.Insert_framed(Va_t(0x11000), Va_t(0x12000), PERM_R|PERM_U))
	// adjacent is fine
	require.Zero(t, as.Insert_framed(Va_t(0x12000), Va_t(0x13000), PERM_R|PERM_U))
}

func framedset(as *Vm_t) map[Vpn_t]bool {
	set := make(map[Vpn_t]bool)
	for _, vmi := range as.Areas() {
		if vmi.Mtype == MAP_FRAMED {
			for vpn := vmi.Start; vpn < vmi.End; vpn++ {
				set[vpn] = true
			}
		}
	}
	return set
}

func TestMmapMunmapRoundtrip(t *testing.T) {
	mem.Phys_init()
	as := Mkvm()
	before := framedset(as)

	// first cycle grows the page table's intermediate levels, which
	// stay with the table; measure after they exist
	require.Zero(t, as.Insert_framed(Va_t(0x10000), Va_t(0x12000), PERM_R|PERM_W|PERM_U))
	require.Zero(t, as.Remove_framed(Va_t(0x10000), 2*defs.PGSIZE))
	nbefore := mem.Physmem.Allocated()

	require.Zero(t, as.Insert_framed(Va_t(0x10000), Va_t(0x12000), PERM_R|PERM_W|PERM_U))
	require.True(t, as.Mapped(Va_t(0x10000), 2*defs.PGSIZE))
	require.Greater(t, mem.Physmem.Allocated(), nbefore)
	require.Zero(t, as.Remove_framed(Va_t(0x10000), 2*defs.PGSIZE))

	assert.Equal(t, before, framedset(as))
	assert.Equal(t, nbefore, mem.Physmem.Allocated())
	// now nothing in the range is mapped, so a second unmap fails
	assert.NotZero(t, as.Remove_framed(Va_t(0x10000), 2*defs.PGSIZE))
}

func TestRemoveFramedSplits(t *testing.T) {
	mem.Phys_init()
	as := Mkvm()
	require.Zero(t, as.Insert_framed(Va_t(0x10000), Va_t(0x14000), PERM_R|PERM_W|PERM_U))
	// punch out the middle two pages
	require.Zero(t, as.Remove_framed(Va_t(0x11000), 2*defs.PGSIZE))

	set := framedset(as)
	assert.True(t, set[Va_t(0x10000).Vpn()])
	assert.False(t, set[Va_t(0x11000).Vpn()])
	assert.False(t, set[Va_t(0x12000).Vpn()])
	assert.True(t, set[Va_t(0x13000).Vpn()])

	_, ok := as.Translate(Va_t(0x11000).Vpn())
	assert.False(t, ok)
	pte, ok := as.Translate(Va_t(0x13000).Vpn())
	require.True(t, ok)
	assert.True(t, pte.User())
}

func mkelf(code []uint8) []uint8 {
	return elfgen.MkELF64(0x1000, []elfgen.Seg_t{
		{Vaddr: 0x1000, Flags: elf.PF_R | elf.PF_X, Data: code},
		{Vaddr: 0x2000, Flags: elf.PF_R | elf.PF_W, Data: []uint8{1, 2, 3, 4},
			Memsz: 0x1800},
	})
}

func TestMkuvmElf(t *testing.T) {
	mem.Phys_init()
	code := []uint8{0x73, 0x00, 0x00, 0x00}
	as, usersp, entry, err := Mkuvm_elf(mkelf(code))
	require.Zero(t, err)
	assert.Equal(t, uint64(0x1000), entry)
	// image tops out at 0x3800; stack sits above a guard page
	wantbase := uint64(0x4000 + defs.PGSIZE)
	assert.Equal(t, wantbase+defs.USER_STACK_SIZE, usersp)

	// code bytes landed and are user-executable
	pte, ok := as.Translate(Va_t(0x1000).Vpn())
	require.True(t, ok)
	assert.True(t, pte.Executable())
	assert.True(t, pte.User())
	assert.False(t, pte.Writable())
	pg := mem.Physmem.Dmap(pte.Ppn().Pa())
	assert.Equal(t, code, pg[:4])

	// data segment: initialized bytes then zero fill across pages
	pa, ok := as.Translate_va(Va_t(0x2000))
	require.True(t, ok)
	assert.Equal(t, []uint8{1, 2, 3, 4}, mem.Physmem.Dmap8(pa)[:4])
	_, ok = as.Translate(Va_t(0x3000).Vpn())
	assert.True(t, ok)

	// every space carries the trampoline (no U) and the trap context
	tpte, ok := as.Translate(Va_t(defs.TRAMPOLINE).Vpn())
	require.True(t, ok)
	assert.False(t, tpte.User())
	assert.True(t, tpte.Executable())
	_, ok = as.Translate(Va_t(defs.TRAP_CONTEXT).Vpn())
	assert.True(t, ok)

	// the trampoline frame is shared with every other space
	other := Mkvm()
	opte, ok := other.Translate(Va_t(defs.TRAMPOLINE).Vpn())
	require.True(t, ok)
	assert.Equal(t, tpte.Ppn(), opte.Ppn())
}

func TestUvmLeafInvariant(t *testing.T) {
	mem.Phys_init()
	as, _, _, err := Mkuvm_elf(mkelf([]uint8{0x13, 0x00, 0x00, 0x00}))
	require.Zero(t, err)
	// every user-visible leaf belongs to exactly one framed area and
	// that area owns its frame
	for _, vmi := range as.Areas() {
		if vmi.Mtype != MAP_FRAMED {
			continue
		}
		for vpn := vmi.Start; vpn < vmi.End; vpn++ {
			pte, ok := as.Translate(vpn)
			require.True(t, ok)
			f, ok := vmi.Frame(vpn)
			require.True(t, ok)
			assert.Equal(t, f.Ppn, pte.Ppn())
		}
	}
}

func TestForkCopyIsolation(t *testing.T) {
	mem.Phys_init()
	parent := Mkvm()
	require.Zero(t, parent.Insert_framed(Va_t(0x10000), Va_t(0x11000),
		PERM_R|PERM_W|PERM_U))
	pa, ok := parent.Translate_va(Va_t(0x10000))
	require.True(t, ok)
	src := mem.Physmem.Dmap(pa)
	for i := 0; i < defs.PGSIZE; i++ {
		src[i] = uint8(i * 7)
	}

	child := Mkuvm_fork(parent)
	cpa, ok := child.Translate_va(Va_t(0x10000))
	require.True(t, ok)
	require.NotEqual(t, pa, cpa, "child must own fresh frames")
	cpg := mem.Physmem.Dmap(cpa)
	assert.Equal(t, src[:], cpg[:])

	// mutate the child exclusively; the parent pattern survives
	for i := 0; i < defs.PGSIZE; i++ {
		cpg[i] = 0xff
	}
	for i := 0; i < defs.PGSIZE; i++ {
		require.Equal(t, uint8(i*7), src[i])
	}
}

func TestRecycleReturnsFrames(t *testing.T) {
	mem.Phys_init()
	base := mem.Physmem.Allocated()
	as, _, _, err := Mkuvm_elf(mkelf([]uint8{0x13}))
	require.Zero(t, err)
	require.Greater(t, mem.Physmem.Allocated(), base)
	as.Recycle()
	// only the shared trampoline frame stays behind
	assert.Equal(t, base+1, mem.Physmem.Allocated())
}

func TestUserCopyAndStr(t *testing.T) {
	mem.Phys_init()
	as := Mkvm()
	require.Zero(t, as.Insert_framed(Va_t(0x10000), Va_t(0x12000),
		PERM_R|PERM_W|PERM_U))
	tok := as.Token()

	// a write spanning the page boundary round-trips
	msg := make([]uint8, 64)
	for i := range msg {
		msg[i] = uint8(i + 1)
	}
	va := uint64(0x11000 - 32)
	require.Zero(t, Copyout(tok, va, msg))
	got := make([]uint8, 64)
	require.Zero(t, Copyin(tok, va, got))
	assert.Equal(t, msg, got)

	// strings come out NUL-terminated
	require.Zero(t, Copyout(tok, 0x10100, []uint8("hello\x00")))
	s, err := Userstr(tok, 0x10100, 64)
	require.Zero(t, err)
	assert.Equal(t, "hello", s.String())

	// unmapped memory faults
	assert.NotZero(t, Copyout(tok, 0x20000, msg))
	_, err = Userstr(tok, 0x20000, 64)
	assert.NotZero(t, err)
}

func TestStraddles(t *testing.T) {
	assert.False(t, Straddles(0x1000, 16))
	assert.False(t, Straddles(0x1ff0, 16))
	assert.True(t, Straddles(0x1ff8, 16))
	assert.True(t, Straddles(0x1fff, 2))
}

func TestSbrkAreas(t *testing.T) {
	mem.Phys_init()
	as, usersp, _, err := Mkuvm_elf(mkelf([]uint8{0x13}))
	require.Zero(t, err)
	hb := Va_t(usersp)
	// grow the heap two pages, then shrink it back to one
	require.True(t, as.Append_to(hb, hb+Va_t(2*defs.PGSIZE)))
	require.True(t, as.Mapped(hb, 2*defs.PGSIZE))
	require.True(t, as.Shrink_to(hb, hb+Va_t(defs.PGSIZE)))
	require.True(t, as.Mapped(hb, defs.PGSIZE))
	_, ok := as.Translate((hb + Va_t(defs.PGSIZE)).Vpn())
	assert.False(t, ok)
}
