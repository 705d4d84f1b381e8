package proc

/// Taskctx_t is the register frame a context switch saves and
/// restores: return address, stack pointer, and the callee-saved
/// registers. Nothing else survives a switch; caller-saved state is
/// already on the kernel stack by the time the switch runs.
type Taskctx_t struct {
	Ra uint64
	Sp uint64
	S  [12]uint64
}

// trap_return_pc is the address the first dispatch of a task returns
// into, which walks out through the trampoline into user mode. The
// machine layer publishes the real symbol at boot.
var trap_return_pc uint64

/// Set_trapret records the trampoline return stub's address.
func Set_trapret(pc uint64) {
	trap_return_pc = pc
}

/// Mktaskctx_trapret builds the context a fresh task is first switched
/// into: resume at the trap-return stub on its own kernel stack.
func Mktaskctx_trapret(ksp uint64) Taskctx_t {
	return Taskctx_t{Ra: trap_return_pc, Sp: ksp}
}

/// Switchfn swaps the callee-saved frames: save into old, restore from
/// new. On hardware this is a short assembly stub the machine layer
/// installs; the host default returns immediately, which makes the
/// idle loop a plain scheduler iteration.
var Switchfn func(old, new *Taskctx_t) = func(old, new *Taskctx_t) {}
