// Package kutil holds small runtime-checked primitives shared by the
// kernel's subsystems that don't belong to any one of them.
package kutil

import "sync/atomic"

/// Exclusive_t is a runtime-checked single-writer cell. The kernel is
/// cooperative in supervisor mode on a single hart, so no two control
/// paths can legitimately hold the same cell at once; a second Borrow is
/// a reentrancy bug and panics immediately rather than deadlocking.
type Exclusive_t[T any] struct {
	held int32
	val  T
}

/// MkExclusive wraps v in an exclusive cell.
func MkExclusive[T any](v T) *Exclusive_t[T] {
	return &Exclusive_t[T]{val: v}
}

/// Guard_t is the token returned by Borrow. It must be released exactly
/// once. A holder that is about to switch away from its own stack frame
/// extracts what it needs, calls Release explicitly, and only then
/// performs the switch — the borrow count is never mutated behind the
/// cell's back.
type Guard_t[T any] struct {
	cell *Exclusive_t[T]
}

/// Borrow acquires the cell, panicking if it is already held.
func (e *Exclusive_t[T]) Borrow() *Guard_t[T] {
	if !atomic.CompareAndSwapInt32(&e.held, 0, 1) {
		panic("exclusive cell already held")
	}
	return &Guard_t[T]{cell: e}
}

/// Get returns the guarded value for use while the guard is held.
func (g *Guard_t[T]) Get() *T {
	if g.cell == nil {
		panic("use after release")
	}
	return &g.cell.val
}

/// Release drops the guard. Releasing twice panics.
func (g *Guard_t[T]) Release() {
	if g.cell == nil {
		panic("double release")
	}
	if !atomic.CompareAndSwapInt32(&g.cell.held, 1, 0) {
		panic("release of unheld cell")
	}
	g.cell = nil
}
