package proc

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/fs"
import "github.com/rcore-go/kernel/internal/kutil"
import "github.com/rcore-go/kernel/internal/mem"
import "github.com/rcore-go/kernel/internal/riscv"
import "github.com/rcore-go/kernel/internal/trap"
import "github.com/rcore-go/kernel/internal/vm"

// traphandler_pc is the kernel trap handler's address as seen by the
// trampoline; published by the machine layer at boot.
var traphandler_pc uint64

/// Set_traphandler records the trap handler's address for new trap
/// contexts.
func Set_traphandler(pc uint64) {
	traphandler_pc = pc
}

/// Proc_t is a task control block. Pid and kernel stack never change
/// after creation; everything else lives in the inner record behind a
/// runtime-checked exclusive cell. A live Proc_t is referenced by
/// exactly one of the ready queue, the processor's current slot, or
/// its parent's children list.
type Proc_t struct {
	Pid    Pid_t
	kstack *Kstack_t
	inner  *kutil.Exclusive_t[Procinner_t]
}

/// Procinner_t is the mutable half of a TCB.
type Procinner_t struct {
	Trapcx_ppn mem.Ppn_t
	Basesz     uint64
	Taskcx     Taskctx_t
	Status     defs.Taskstatus_t
	Vm         *vm.Vm_t
	Parent     *Proc_t
	Children   []*Proc_t
	Exitcode   int64
	Fds        []fs.File_i
	Heapbottom uint64
	Brk        uint64
	Firstms    uint64
	Scnt       [defs.MAXSYSCALL]uint32
	Stride     Stride_t
	Prio       int64
}

/// Inner borrows the mutable record; reentrant borrowing panics.
func (p *Proc_t) Inner() *kutil.Guard_t[Procinner_t] {
	return p.inner.Borrow()
}

/// Token returns the satp value of the task's address space.
func (p *Proc_t) Token() riscv.Satp_t {
	g := p.Inner()
	tok := g.Get().Vm.Token()
	g.Release()
	return tok
}

/// Kstack_top returns the task's kernel stack top.
func (p *Proc_t) Kstack_top() uint64 {
	return p.kstack.Top()
}

/// Reap frees the TCB's last resources once a zombie has been waited
/// for: the kernel stack and the pid.
func (p *Proc_t) Reap() {
	p.kstack.Drop()
	p.Pid.Free()
}

/// Trapctx returns the task's saved user state in the trap-context
/// page.
func (inner *Procinner_t) Trapctx() *trap.Trapctx_t {
	return trap.Ctxat(inner.Trapcx_ppn)
}

/// Alloc_fd returns the lowest free descriptor slot, growing the
/// table if every slot is taken.
func (inner *Procinner_t) Alloc_fd() int {
	for i, f := range inner.Fds {
		if f == nil {
			return i
		}
	}
	inner.Fds = append(inner.Fds, nil)
	return len(inner.Fds) - 1
}

/// Iszombie reports whether the task has exited.
func (inner *Procinner_t) Iszombie() bool {
	return inner.Status == defs.T_ZOMBIE
}

func stdfds() []fs.File_i {
	return []fs.File_i{&fs.Stdin_t{}, &fs.Stdout_t{}, &fs.Stdout_t{}}
}

/// Mkproc builds the initial process from an ELF image.
func Mkproc(elf []uint8) (*Proc_t, defs.Err_t) {
	as, usersp, entry, err := vm.Mkuvm_elf(elf)
	if err != 0 {
		return nil, err
	}
	ks := Mkkstack()
	p := &Proc_t{
		Pid:    Mkpid(),
		kstack: ks,
	}
	inner := Procinner_t{
		Trapcx_ppn: as.Trapctx_ppn(),
		Basesz:     usersp,
		Taskcx:     Mktaskctx_trapret(ks.Top()),
		Status:     defs.T_READY,
		Vm:         as,
		Fds:        stdfds(),
		Heapbottom: usersp,
		Brk:        usersp,
		Stride:     Mkstride(defs.DEFAULT_PRIORITY),
		Prio:       defs.DEFAULT_PRIORITY,
	}
	*inner.Trapctx() = trap.Mktrapctx(entry, usersp, vm.Kvm_token(),
		ks.Top(), traphandler_pc)
	p.inner = kutil.MkExclusive(inner)
	return p, 0
}

/// Fork duplicates the parent: a deep copy of its address space
/// (including the saved trap context), a cloned descriptor table, and
/// inherited priority. The child's pass starts at zero and its
/// syscall counters are fresh.
func Fork(parent *Proc_t) *Proc_t {
	pg := parent.Inner()
	pi := pg.Get()
	as := vm.Mkuvm_fork(pi.Vm)
	ks := Mkkstack()
	child := &Proc_t{
		Pid:    Mkpid(),
		kstack: ks,
	}
	inner := Procinner_t{
		Trapcx_ppn: as.Trapctx_ppn(),
		Basesz:     pi.Basesz,
		Taskcx:     Mktaskctx_trapret(ks.Top()),
		Status:     defs.T_READY,
		Vm:         as,
		Parent:     parent,
		Heapbottom: pi.Heapbottom,
		Brk:        pi.Brk,
		Prio:       pi.Prio,
	}
	inner.Stride.Inherit(&pi.Stride)
	for _, f := range pi.Fds {
		if f != nil {
			f.Reopen()
		}
		inner.Fds = append(inner.Fds, f)
	}
	// the copied trap context still names the parent's kernel stack
	inner.Trapctx().KernelSp = ks.Top()
	child.inner = kutil.MkExclusive(inner)
	pi.Children = append(pi.Children, child)
	pg.Release()
	return child
}

/// Exec replaces the task's address space with one built from the ELF
/// image. Pid, parent, children, descriptors, and priority survive;
/// the memory image and trap context do not.
func (p *Proc_t) Exec(elf []uint8) defs.Err_t {
	as, usersp, entry, err := vm.Mkuvm_elf(elf)
	if err != 0 {
		return err
	}
	g := p.Inner()
	inner := g.Get()
	old := inner.Vm
	inner.Vm = as
	inner.Trapcx_ppn = as.Trapctx_ppn()
	inner.Basesz = usersp
	inner.Heapbottom = usersp
	inner.Brk = usersp
	*inner.Trapctx() = trap.Mktrapctx(entry, usersp, vm.Kvm_token(),
		p.kstack.Top(), traphandler_pc)
	g.Release()
	old.Recycle()
	return 0
}

/// Spawn builds a child directly from an ELF image: the fork/exec pair
/// without copying the parent's memory first.
func Spawn(parent *Proc_t, elf []uint8) (*Proc_t, defs.Err_t) {
	child, err := Mkproc(elf)
	if err != 0 {
		return nil, err
	}
	pg := parent.Inner()
	pi := pg.Get()
	cg := child.Inner()
	ci := cg.Get()
	ci.Parent = parent
	ci.Prio = pi.Prio
	ci.Stride.Inherit(&pi.Stride)
	cg.Release()
	pi.Children = append(pi.Children, child)
	pg.Release()
	return child, 0
}
