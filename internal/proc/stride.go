package proc

import "github.com/rcore-go/kernel/internal/defs"

/// Stride_t is a task's scheduling state: the accumulated pass and the
/// per-dispatch step, step = BIG_STRIDE / priority. Passes wrap; the
/// comparison below stays correct as long as every priority is at
/// least MIN_PRIORITY, which bounds max_pass - min_pass by
/// BIG_STRIDE/2.
type Stride_t struct {
	pass uint64
	step uint64
}

/// Mkstride builds the stride state for a priority.
func Mkstride(prio int64) Stride_t {
	if prio < defs.MIN_PRIORITY {
		panic("priority too small")
	}
	return Stride_t{pass: 0, step: defs.BIG_STRIDE / uint64(prio)}
}

/// Inherit copies the parent's step for a fresh task; the child starts
/// with a zero pass.
func (s *Stride_t) Inherit(parent *Stride_t) {
	s.pass = 0
	s.step = parent.step
}

/// Reprioritize updates the step for a new priority.
func (s *Stride_t) Reprioritize(prio int64) {
	if prio < defs.MIN_PRIORITY {
		panic("priority too small")
	}
	s.step = defs.BIG_STRIDE / uint64(prio)
}

/// Step charges one dispatch to the task.
func (s *Stride_t) Step() {
	s.pass += s.step
}

/// Precedes orders two strides under wrap-around: a comes first when
/// the modular difference of the passes lands inside the half window.
func (s *Stride_t) Precedes(o *Stride_t) bool {
	return s.pass-o.pass < defs.BIG_STRIDE/2
}

/// Pass exposes the accumulated pass for invariant checks.
func (s *Stride_t) Pass() uint64 {
	return s.pass
}
