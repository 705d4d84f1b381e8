package kernel

import "path/filepath"
import "testing"

import "debug/elf"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/elfgen"
import "github.com/rcore-go/kernel/internal/fs"
import "github.com/rcore-go/kernel/internal/mem"
import "github.com/rcore-go/kernel/internal/proc"
import "github.com/rcore-go/kernel/internal/riscv"
import "github.com/rcore-go/kernel/internal/trap"
import "github.com/rcore-go/kernel/internal/ufs"

func boottask(t *testing.T) *proc.Proc_t {
	t.Helper()
	mem.Phys_init()
	fs.Purge_cache()
	u := ufs.MkfsFS(filepath.Join(t.TempDir(), "fs.img"), 2048, 1)
	t.Cleanup(u.Shutdown)
	img := elfgen.MkELF64(0x1000, []elfgen.Seg_t{
		{Vaddr: 0x1000, Flags: elf.PF_R | elf.PF_X,
			Data: []uint8{0x73, 0x00, 0x00, 0x00}},
	})
	p, err := proc.Mkproc(img)
	require.Zero(t, err)
	proc.Set_current(p)
	proc.Set_initproc(p)
	t.Cleanup(func() { proc.Take_current() })
	return p
}

func TestUsertrapEcall(t *testing.T) {
	p := boottask(t)
	cx := proc.Current_trapctx()
	pc := cx.Sepc
	cx.X[trap.REG_A7] = defs.SYS_GETPID

	Usertrap(trap.EXC_UECALL, 0)

	cx = proc.Current_trapctx()
	assert.Equal(t, pc+4, cx.Sepc, "resume past the ecall")
	assert.Equal(t, uint64(p.Pid), cx.X[trap.REG_A0])
	assert.Equal(t, defs.TRAMPOLINE, riscv.R_stvec())
}

func TestUsertrapTimer(t *testing.T) {
	p := boottask(t)
	riscv.Tick(1000)
	before := riscv.R_time()

	Usertrap(trap.INT_STIMER, 0)

	// the slice was re-armed and the task went back to ready
	assert.Greater(t, riscv.R_stimecmp(), before)
	assert.Nil(t, proc.Current_task())
	got := proc.Fetch_task()
	require.Same(t, p, got)
	g := got.Inner()
	assert.Equal(t, defs.T_READY, g.Get().Status)
	g.Release()
}

func TestUsertrapFaultKillsTask(t *testing.T) {
	p := boottask(t)
	child := proc.Fork(p)
	proc.Set_current(child)

	Usertrap(trap.EXC_STORE_PGFLT, 0xdeadbeef)

	assert.Nil(t, proc.Current_task())
	cg := child.Inner()
	assert.Equal(t, defs.T_ZOMBIE, cg.Get().Status)
	assert.Equal(t, int64(-2), cg.Get().Exitcode)
	cg.Release()
	proc.Set_current(p)
}

func TestUsertrapIllegalInstruction(t *testing.T) {
	p := boottask(t)
	child := proc.Fork(p)
	proc.Set_current(child)

	Usertrap(trap.EXC_ILLEGAL, 0)

	cg := child.Inner()
	assert.Equal(t, defs.T_ZOMBIE, cg.Get().Status)
	assert.Equal(t, int64(-3), cg.Get().Exitcode)
	cg.Release()
	proc.Set_current(p)
}

func TestUsertrapUnknownPanics(t *testing.T) {
	boottask(t)
	assert.Panics(t, func() { Usertrap(trap.Cause_t(40), 0) })
}

func TestKerneltrapPanics(t *testing.T) {
	assert.Panics(t, func() { Kerneltrap(trap.EXC_LOAD_PGFLT, 0x10) })
}
