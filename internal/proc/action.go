package proc

import "github.com/rcore-go/kernel/internal/defs"

// initproc adopts the orphans of every exiting task.
var initproc *Proc_t

/// Set_initproc records the init process; Exit_current moves children
/// there.
func Set_initproc(p *Proc_t) {
	initproc = p
}

/// Initproc returns the init process.
func Initproc() *Proc_t {
	return initproc
}

/// Suspend_current parks the running task back on the ready queue and
/// re-enters the idle loop.
func Suspend_current() {
	p := Take_current()
	if p == nil {
		panic("no current task")
	}
	g := p.Inner()
	inner := g.Get()
	inner.Status = defs.T_READY
	taskcx := &inner.Taskcx
	g.Release()
	Add_task(p)
	Schedule(taskcx)
}

/// Exit_current turns the running task into a zombie: record the exit
/// code, hand the children to init, release the address space's
/// framed pages eagerly, and drop the descriptor table. The kernel
/// stack and the TCB record stay until a wait reaps them.
func Exit_current(code int64) {
	p := Take_current()
	if p == nil {
		panic("no current task")
	}
	if p == initproc {
		panic("init exited")
	}
	g := p.Inner()
	inner := g.Get()
	inner.Status = defs.T_ZOMBIE
	inner.Exitcode = code
	children := inner.Children
	inner.Children = nil
	for _, f := range inner.Fds {
		if f != nil {
			f.Close()
		}
	}
	inner.Fds = nil
	inner.Vm.Recycle()
	taskcx := &inner.Taskcx
	g.Release()

	if initproc != nil && len(children) > 0 {
		ig := initproc.Inner()
		ii := ig.Get()
		for _, c := range children {
			cg := c.Inner()
			cg.Get().Parent = initproc
			cg.Release()
			ii.Children = append(ii.Children, c)
		}
		ig.Release()
	}
	Schedule(taskcx)
}

/// Waitpid reaps a zombie child. pid -1 matches any child. Returns
/// the reaped child and its exit code, or WAIT_NOCHILD when no child
/// matches, or WAIT_NOTDONE when a match exists but still runs.
func Waitpid(p *Proc_t, pid int64) (*Proc_t, int64, defs.Err_t) {
	g := p.Inner()
	inner := g.Get()
	matched := false
	for i, c := range inner.Children {
		if pid != -1 && int64(c.Pid) != pid {
			continue
		}
		matched = true
		cg := c.Inner()
		ci := cg.Get()
		if !ci.Iszombie() {
			cg.Release()
			continue
		}
		code := ci.Exitcode
		cg.Release()
		inner.Children = append(inner.Children[:i], inner.Children[i+1:]...)
		g.Release()
		c.Reap()
		return c, code, 0
	}
	g.Release()
	if !matched {
		return nil, 0, defs.WAIT_NOCHILD
	}
	return nil, 0, defs.WAIT_NOTDONE
}
