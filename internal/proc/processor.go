package proc

import "log"

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/kutil"
import "github.com/rcore-go/kernel/internal/riscv"
import "github.com/rcore-go/kernel/internal/timer"
import "github.com/rcore-go/kernel/internal/trap"

/// Processor_t is the per-hart scheduling state: the task currently
/// executing and the idle context the hart parks in between tasks.
type Processor_t struct {
	current *Proc_t
	idlecx  Taskctx_t
}

var processor = kutil.MkExclusive(Processor_t{})

/// Current_task returns the running task, nil when the hart is idle.
func Current_task() *Proc_t {
	g := processor.Borrow()
	p := g.Get().current
	g.Release()
	return p
}

/// Take_current removes and returns the running task.
func Take_current() *Proc_t {
	g := processor.Borrow()
	p := g.Get().current
	g.Get().current = nil
	g.Release()
	return p
}

/// Set_current installs p as the running task; tests and the run loop
/// are the only callers.
func Set_current(p *Proc_t) {
	g := processor.Borrow()
	g.Get().current = p
	g.Release()
}

/// Current_token returns the running task's satp value.
func Current_token() riscv.Satp_t {
	return Current_task().Token()
}

/// Current_trapctx returns the running task's saved user state.
func Current_trapctx() *trap.Trapctx_t {
	p := Current_task()
	g := p.Inner()
	cx := g.Get().Trapctx()
	g.Release()
	return cx
}

/// Inc_syscall charges one call of syscall id to the running task.
func Inc_syscall(id uint64) {
	p := Current_task()
	if p == nil {
		return
	}
	g := p.Inner()
	if id < defs.MAXSYSCALL {
		g.Get().Scnt[id]++
	}
	g.Release()
}

/// Run_tasks is the idle loop: fetch the preceding-stride task, mark
/// it running, stamp its first dispatch, charge its stride, and switch
/// to it. The guard on the task's record is dropped before the switch
/// walks off this stack frame; only the two raw context pointers
/// survive past the release.
func Run_tasks() {
	for {
		p := Fetch_task()
		if p == nil {
			log.Printf("no tasks available, idling")
			continue
		}
		g := processor.Borrow()
		idlecx := &g.Get().idlecx
		g.Get().current = p
		g.Release()

		tg := p.Inner()
		inner := tg.Get()
		inner.Status = defs.T_RUNNING
		if inner.Firstms == 0 {
			inner.Firstms = timer.Time_ms()
		}
		inner.Stride.Step()
		taskcx := &inner.Taskcx
		tg.Release()

		Switchfn(idlecx, taskcx)
	}
}

/// Schedule hands control back to the idle loop, saving the departing
/// control flow into switched.
func Schedule(switched *Taskctx_t) {
	g := processor.Borrow()
	idlecx := &g.Get().idlecx
	g.Release()
	Switchfn(switched, idlecx)
}
