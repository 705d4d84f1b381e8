package proc

import "container/list"

import "github.com/rcore-go/kernel/internal/kutil"

/// Runqueue_t holds the ready tasks. Add appends; Fetch scans for the
/// task whose stride precedes every other under the modular ordering,
/// so the queue behaves priority-weighted while staying a plain list.
type Runqueue_t struct {
	q *list.List
}

/// MkRunqueue creates an empty ready queue.
func MkRunqueue() *Runqueue_t {
	return &Runqueue_t{q: list.New()}
}

/// Add appends a ready task.
func (rq *Runqueue_t) Add(p *Proc_t) {
	rq.q.PushBack(p)
}

/// Len returns the number of ready tasks.
func (rq *Runqueue_t) Len() int {
	return rq.q.Len()
}

/// Fetch removes and returns the next task to run, nil when the queue
/// is empty.
func (rq *Runqueue_t) Fetch() *Proc_t {
	if rq.q.Len() == 0 {
		return nil
	}
	min := rq.q.Front()
	for e := min.Next(); e != nil; e = e.Next() {
		a := e.Value.(*Proc_t)
		b := min.Value.(*Proc_t)
		ag := a.Inner()
		as := ag.Get().Stride
		ag.Release()
		bg := b.Inner()
		bs := bg.Get().Stride
		bg.Release()
		if as.Precedes(&bs) {
			min = e
		}
	}
	rq.q.Remove(min)
	return min.Value.(*Proc_t)
}

var taskmgr = kutil.MkExclusive(MkRunqueue())

/// Add_task puts a task on the global ready queue.
func Add_task(p *Proc_t) {
	g := taskmgr.Borrow()
	(*g.Get()).Add(p)
	g.Release()
}

/// Fetch_task takes the next task off the global ready queue.
func Fetch_task() *Proc_t {
	g := taskmgr.Borrow()
	p := (*g.Get()).Fetch()
	g.Release()
	return p
}
