package proc

import "testing"

import "debug/elf"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/elfgen"
import "github.com/rcore-go/kernel/internal/mem"
import "github.com/rcore-go/kernel/internal/trap"
import "github.com/rcore-go/kernel/internal/vm"

func mkimage(t *testing.T) []uint8 {
	t.Helper()
	return elfgen.MkELF64(0x1000, []elfgen.Seg_t{
		{Vaddr: 0x1000, Flags: elf.PF_R | elf.PF_X,
			Data: []uint8{0x73, 0x00, 0x00, 0x00}},
		{Vaddr: 0x2000, Flags: elf.PF_R | elf.PF_W,
			Data: []uint8{9, 8, 7, 6}},
	})
}

func mktask(t *testing.T) *Proc_t {
	t.Helper()
	p, err := Mkproc(mkimage(t))
	require.Zero(t, err)
	return p
}

func TestPidRecycle(t *testing.T) {
	a := Mkpid()
	b := Mkpid()
	require.NotEqual(t, a, b)
	b.Free()
	c := Mkpid()
	assert.Equal(t, b, c)
}

func TestMkproc(t *testing.T) {
	mem.Phys_init()
	p := mktask(t)

	g := p.Inner()
	inner := g.Get()
	assert.Equal(t, defs.T_READY, inner.Status)
	assert.Len(t, inner.Fds, 3)
	assert.True(t, inner.Fds[1].Writable())
	assert.Equal(t, inner.Heapbottom, inner.Brk)
	assert.Equal(t, int64(defs.DEFAULT_PRIORITY), inner.Prio)

	cx := inner.Trapctx()
	assert.Equal(t, uint64(0x1000), cx.Sepc)
	assert.Equal(t, inner.Basesz, cx.X[trap.REG_SP])
	assert.Equal(t, p.Kstack_top(), cx.KernelSp)
	assert.Equal(t, uint64(vm.Kvm_token()), cx.KernelSatp)
	g.Release()
}

func TestInnerExclusive(t *testing.T) {
	mem.Phys_init()
	p := mktask(t)
	g := p.Inner()
	assert.Panics(t, func() { p.Inner() })
	g.Release()
	g2 := p.Inner()
	g2.Release()
}

func TestFork(t *testing.T) {
	mem.Phys_init()
	parent := mktask(t)

	// scribble a pattern into the parent's data page
	ptok := parent.Token()
	pat := []uint8{0xaa, 0xbb, 0xcc, 0xdd}
	require.Zero(t, vm.Copyout(ptok, 0x2000, pat))

	child := Fork(parent)
	require.NotEqual(t, parent.Pid, child.Pid)

	pg := parent.Inner()
	require.Len(t, pg.Get().Children, 1)
	assert.Same(t, child, pg.Get().Children[0])
	pg.Release()

	cg := child.Inner()
	ci := cg.Get()
	assert.Same(t, parent, ci.Parent)
	assert.Equal(t, defs.T_READY, ci.Status)
	assert.Equal(t, uint64(0), ci.Stride.Pass())
	assert.Equal(t, int64(defs.DEFAULT_PRIORITY), ci.Prio)
	// the copied trap context now names the child's own kernel stack
	assert.Equal(t, child.Kstack_top(), ci.Trapctx().KernelSp)
	assert.Equal(t, uint64(0x1000), ci.Trapctx().Sepc)
	cg.Release()

	// eager copy: mutating the child leaves the parent pattern alone
	require.Zero(t, vm.Copyout(child.Token(), 0x2000, []uint8{1, 1, 1, 1}))
	got := make([]uint8, 4)
	require.Zero(t, vm.Copyin(ptok, 0x2000, got))
	assert.Equal(t, pat, got)
}

func TestExec(t *testing.T) {
	mem.Phys_init()
	p := mktask(t)
	pid := p.Pid

	img := elfgen.MkELF64(0x5000, []elfgen.Seg_t{
		{Vaddr: 0x5000, Flags: elf.PF_R | elf.PF_X,
			Data: []uint8{0x13, 0x00, 0x00, 0x00}},
	})
	require.Zero(t, p.Exec(img))

	assert.Equal(t, pid, p.Pid)
	g := p.Inner()
	inner := g.Get()
	assert.Equal(t, uint64(0x5000), inner.Trapctx().Sepc)
	assert.Len(t, inner.Fds, 3, "descriptors survive exec")
	assert.Equal(t, inner.Heapbottom, inner.Brk)
	g.Release()

	// the old image is gone from the new space
	got := make([]uint8, 4)
	assert.NotZero(t, vm.Copyin(p.Token(), 0x2000, got))
}

func TestExitWait(t *testing.T) {
	mem.Phys_init()
	parent := mktask(t)
	Set_initproc(parent)
	child := Fork(parent)

	// a live child is matched but not reapable
	_, _, err := Waitpid(parent, int64(child.Pid))
	assert.Equal(t, defs.WAIT_NOTDONE, err)
	// no such pid at all
	_, _, err = Waitpid(parent, int64(child.Pid)+100)
	assert.Equal(t, defs.WAIT_NOCHILD, err)

	Set_current(child)
	Exit_current(7)
	assert.Nil(t, Current_task())

	cg := child.Inner()
	assert.Equal(t, defs.T_ZOMBIE, cg.Get().Status)
	assert.Equal(t, int64(7), cg.Get().Exitcode)
	assert.Nil(t, cg.Get().Fds)
	cg.Release()

	got, code, err := Waitpid(parent, int64(child.Pid))
	require.Zero(t, err)
	assert.Same(t, child, got)
	assert.Equal(t, int64(7), code)

	// reaped: the child is no longer anyone's
	_, _, err = Waitpid(parent, int64(child.Pid))
	assert.Equal(t, defs.WAIT_NOCHILD, err)

	// its pid is recyclable now
	np := Mkpid()
	assert.Equal(t, child.Pid, np)
	np.Free()
}

func TestWaitAny(t *testing.T) {
	mem.Phys_init()
	parent := mktask(t)
	Set_initproc(parent)
	c1 := Fork(parent)
	c2 := Fork(parent)

	Set_current(c2)
	Exit_current(3)

	got, code, err := Waitpid(parent, -1)
	require.Zero(t, err)
	assert.Same(t, c2, got)
	assert.Equal(t, int64(3), code)

	// c1 still runs
	_, _, err = Waitpid(parent, -1)
	assert.Equal(t, defs.WAIT_NOTDONE, err)
	_ = c1
}

func TestExitMovesChildrenToInit(t *testing.T) {
	mem.Phys_init()
	init := mktask(t)
	Set_initproc(init)
	parent := Fork(init)
	grand := Fork(parent)

	Set_current(parent)
	Exit_current(0)

	gg := grand.Inner()
	assert.Same(t, init, gg.Get().Parent)
	gg.Release()

	ig := init.Inner()
	assert.Contains(t, ig.Get().Children, grand)
	ig.Release()
}

func TestExitReleasesFrames(t *testing.T) {
	mem.Phys_init()
	init := mktask(t)
	Set_initproc(init)
	before := mem.Physmem.Allocated()
	child := Fork(init)
	require.Greater(t, mem.Physmem.Allocated(), before)

	Set_current(child)
	Exit_current(0)
	// the address space went away eagerly; only the kernel stack and
	// the TCB remain until the reap
	kstackframes := defs.KERNEL_STACK_SIZE / defs.PGSIZE
	assert.Equal(t, before+kstackframes, mem.Physmem.Allocated())

	_, _, err := Waitpid(init, int64(child.Pid))
	require.Zero(t, err)
	assert.Equal(t, before, mem.Physmem.Allocated())
}

func TestSpawn(t *testing.T) {
	mem.Phys_init()
	parent := mktask(t)
	pg := parent.Inner()
	pg.Get().Setprio(8)
	pg.Release()

	child, err := Spawn(parent, mkimage(t))
	require.Zero(t, err)

	cg := child.Inner()
	assert.Same(t, parent, cg.Get().Parent)
	assert.Equal(t, int64(8), cg.Get().Prio)
	assert.Equal(t, uint64(0), cg.Get().Stride.Pass())
	cg.Release()

	pg = parent.Inner()
	assert.Contains(t, pg.Get().Children, child)
	pg.Release()
}

func TestRunqueueStrideRatio(t *testing.T) {
	mem.Phys_init()
	slow := mktask(t)
	fast := mktask(t)
	sg := slow.Inner()
	sg.Get().Setprio(2)
	sg.Release()
	fg := fast.Inner()
	fg.Get().Setprio(8)
	fg.Release()

	rq := MkRunqueue()
	rq.Add(slow)
	rq.Add(fast)

	counts := map[*Proc_t]int{}
	for i := 0; i < 1000; i++ {
		p := rq.Fetch()
		require.NotNil(t, p)
		g := p.Inner()
		g.Get().Stride.Step()
		g.Release()
		counts[p]++
		rq.Add(p)
	}
	require.NotZero(t, counts[slow])
	require.NotZero(t, counts[fast])
	ratio := float64(counts[fast]) / float64(counts[slow])
	assert.InDelta(t, 4.0, ratio, 0.5,
		"priorities 8 and 2 should run about 4:1")
}

func TestProcessorCurrent(t *testing.T) {
	mem.Phys_init()
	p := mktask(t)
	Set_current(p)
	assert.Same(t, p, Current_task())
	assert.Equal(t, p.Token(), Current_token())

	Inc_syscall(123)
	g := p.Inner()
	assert.Equal(t, uint32(1), g.Get().Scnt[123])
	g.Release()

	assert.Same(t, p, Take_current())
	assert.Nil(t, Current_task())
}

func TestSuspendRequeues(t *testing.T) {
	mem.Phys_init()
	p := mktask(t)
	Set_current(p)
	Suspend_current()
	assert.Nil(t, Current_task())
	got := Fetch_task()
	require.Same(t, p, got)
	g := p.Inner()
	assert.Equal(t, defs.T_READY, g.Get().Status)
	g.Release()
}

func TestMmapChecks(t *testing.T) {
	mem.Phys_init()
	p := mktask(t)
	g := p.Inner()
	inner := g.Get()
	defer g.Release()

	// bad arguments never touch the address space
	assert.Equal(t, int64(-1), inner.Mmap(0x10001, 4096, 3))
	assert.Equal(t, int64(-1), inner.Mmap(0x10000, 0, 3))
	assert.Equal(t, int64(-1), inner.Mmap(0x10000, 4096, 0x8))
	assert.Equal(t, int64(-1), inner.Mmap(0x10000, 4096, 0))

	assert.Zero(t, inner.Mmap(0x10000, 8192, 3))
	// any overlap rejects the whole request
	assert.Equal(t, int64(-1), inner.Mmap(0x11000, 4096, 3))

	assert.Zero(t, inner.Munmap(0x10000, 8192))
	assert.Equal(t, int64(-1), inner.Munmap(0x10000, 8192))
}

func TestSbrk(t *testing.T) {
	mem.Phys_init()
	p := mktask(t)
	g := p.Inner()
	inner := g.Get()
	defer g.Release()

	old := int64(inner.Brk)
	assert.Equal(t, old, inner.Sbrk(4096))
	assert.Equal(t, old+4096, int64(inner.Brk))
	assert.True(t, inner.Vm.Mapped(vm.Va_t(old), 4096))

	// shrinking below the heap bottom is refused
	assert.Equal(t, int64(-1), inner.Sbrk(-8192))
	assert.Equal(t, old+4096, int64(inner.Brk))

	assert.Equal(t, old+4096, inner.Sbrk(-4096))
	assert.Equal(t, old, int64(inner.Brk))
}
