// Package trap defines the saved user state and the cause codes the
// dispatcher switches on. The trampoline saves the full user register
// file into the trap-context page on entry and restores it on the way
// back; everything the kernel needs to resume the task lives here.
package trap

import "unsafe"

import "github.com/rcore-go/kernel/internal/mem"

/// Cause_t is the scause value: the interrupt bit in the top position
/// and the exception or interrupt code below it.
type Cause_t uint64

const causeintr Cause_t = 1 << 63

/// Exception codes.
const (
	EXC_INSTR_FAULT  Cause_t = 1
	EXC_ILLEGAL      Cause_t = 2
	EXC_LOAD_FAULT   Cause_t = 5
	EXC_STORE_FAULT  Cause_t = 7
	EXC_UECALL       Cause_t = 8
	EXC_INSTR_PGFLT  Cause_t = 12
	EXC_LOAD_PGFLT   Cause_t = 13
	EXC_STORE_PGFLT  Cause_t = 15
)

/// Supervisor timer interrupt.
const INT_STIMER Cause_t = causeintr | 5

/// Isintr reports whether the cause is an interrupt.
func (c Cause_t) Isintr() bool {
	return c&causeintr != 0
}

/// Ispgfault groups the page and access fault codes the dispatcher
/// handles by killing the task.
func (c Cause_t) Ispgfault() bool {
	switch c {
	case EXC_INSTR_FAULT, EXC_LOAD_FAULT, EXC_STORE_FAULT,
		EXC_INSTR_PGFLT, EXC_LOAD_PGFLT, EXC_STORE_PGFLT:
		return true
	}
	return false
}

// Register indexes into Trapctx_t.X, named as the ABI does.
const (
	REG_SP = 2
	REG_A0 = 10
	REG_A1 = 11
	REG_A2 = 12
	REG_A7 = 17
)

/// Trapctx_t is the register file saved in the trap-context page, plus
/// the three values the trampoline needs to get back into the kernel:
/// the kernel satp, the task's kernel stack top, and the handler
/// address. Its layout is shared with the trampoline assembly.
type Trapctx_t struct {
	X          [32]uint64
	Sstatus    uint64
	Sepc       uint64
	KernelSatp uint64
	KernelSp   uint64
	Handler    uint64
}

/// Mktrapctx initializes a context that enters user mode at entry with
/// the given stack pointer.
func Mktrapctx(entry, usersp, ksatp, ksp, handler uint64) Trapctx_t {
	ctx := Trapctx_t{
		Sepc:       entry,
		KernelSatp: ksatp,
		KernelSp:   ksp,
		Handler:    handler,
	}
	ctx.X[REG_SP] = usersp
	return ctx
}

/// Ctxat views the trap-context page at the given frame as a
/// Trapctx_t. The page is exactly one frame, so the struct fits.
func Ctxat(ppn mem.Ppn_t) *Trapctx_t {
	pg := mem.Physmem.Dmap(ppn.Pa())
	return (*Trapctx_t)(unsafe.Pointer(pg))
}
