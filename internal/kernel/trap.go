package kernel

import "log"

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/proc"
import "github.com/rcore-go/kernel/internal/riscv"
import "github.com/rcore-go/kernel/internal/syscall"
import "github.com/rcore-go/kernel/internal/timer"
import "github.com/rcore-go/kernel/internal/trap"

/// Usertrap services one trap out of user mode. The trampoline has
/// already saved the register file into the trap-context page and
/// moved onto the task's kernel stack; stval carries the faulting
/// address where the cause defines one.
func Usertrap(cause trap.Cause_t, stval uint64) {
	switch {
	case cause == trap.EXC_UECALL:
		cx := proc.Current_trapctx()
		// resume past the ecall
		cx.Sepc += 4
		ret := syscall.Syscall(cx.X[trap.REG_A7], cx.X[trap.REG_A0],
			cx.X[trap.REG_A1], cx.X[trap.REG_A2])
		// exec replaces the trap context page; fetch it again before
		// writing the result
		cx = proc.Current_trapctx()
		cx.X[trap.REG_A0] = uint64(ret)
	case cause.Ispgfault():
		cx := proc.Current_trapctx()
		log.Printf("page fault at %#x, bad instruction %#x, kernel killed it",
			stval, cx.Sepc)
		proc.Exit_current(-2)
	case cause == trap.EXC_ILLEGAL:
		log.Printf("illegal instruction, kernel killed it")
		proc.Exit_current(-3)
	case cause == trap.INT_STIMER:
		timer.Set_next_trigger()
		proc.Suspend_current()
	default:
		panic("unsupported trap")
	}
	Trap_return()
}

/// Trap_return walks back to user mode: point stvec at the trampoline
/// again and jump through its restore stub with the trap-context
/// address and the user satp. The stub reloads satp and the register
/// file; the jump itself is machine-layer assembly.
func Trap_return() {
	// a task that exited or suspended already switched away; on
	// hardware this point is unreachable for it, on the host the
	// switch stub falls through with no current task
	if proc.Current_task() == nil {
		return
	}
	riscv.W_stvec(defs.TRAMPOLINE)
	trampoline_restore(defs.TRAP_CONTEXT, uint64(proc.Current_token()))
}

// trampoline_restore models the tail jump into the trampoline's
// restore stub. A native build replaces this with the real sret path;
// the host build returns so the test harness regains control.
var trampoline_restore = func(trapctx_va, usatp uint64) {}

/// Kerneltrap handles a trap taken while already in supervisor mode.
/// The kernel never expects one; supervisor code runs to completion.
func Kerneltrap(cause trap.Cause_t, stval uint64) {
	log.Printf("trap from kernel: cause %#x stval %#x", uint64(cause), stval)
	panic("trap from kernel")
}
