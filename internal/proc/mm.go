package proc

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/vm"

/// Mmap creates a framed, user-visible area over [start, start+len).
/// port carries R/W/X in its low three bits; the leaf permission is
/// the port shifted into the PTE flag positions plus U. Rejected: an
/// unaligned start, a zero length, port bits outside the low three, a
/// port with no access at all, or any page already mapped.
func (inner *Procinner_t) Mmap(start, length, port uint64) int64 {
	if start&defs.PGOFFSET != 0 {
		return -1
	}
	// zero-length requests and anything outside the Sv39 user range
	// are nonsense
	if length == 0 || length >= 1<<38 || start >= 1<<38 {
		return -1
	}
	if port&^0x7 != 0 || port&0x7 == 0 {
		return -1
	}
	perm := vm.Perm_t(port<<1) | vm.PERM_U
	if inner.Vm.Insert_framed(vm.Va_t(start), vm.Va_t(start+length), perm) != 0 {
		return -1
	}
	return 0
}

/// Munmap releases every page of [start, start+len). Rejected: an
/// unaligned start or any page in the range not currently mapped.
func (inner *Procinner_t) Munmap(start, length uint64) int64 {
	if start&defs.PGOFFSET != 0 {
		return -1
	}
	if length >= 1<<38 || start >= 1<<38 {
		return -1
	}
	if inner.Vm.Remove_framed(vm.Va_t(start), int(length)) != 0 {
		return -1
	}
	return 0
}

/// Sbrk moves the program break by delta bytes and returns the old
/// break. Shrinking below the heap bottom is rejected.
func (inner *Procinner_t) Sbrk(delta int64) int64 {
	old := inner.Brk
	newbrk := int64(old) + delta
	if newbrk < int64(inner.Heapbottom) {
		return -1
	}
	hb := vm.Va_t(inner.Heapbottom)
	var ok bool
	if delta >= 0 {
		ok = inner.Vm.Append_to(hb, vm.Va_t(newbrk))
	} else {
		ok = inner.Vm.Shrink_to(hb, vm.Va_t(newbrk))
	}
	if !ok {
		return -1
	}
	inner.Brk = uint64(newbrk)
	return int64(old)
}

/// Setprio points the stride state at a new priority; anything below
/// MIN_PRIORITY is rejected.
func (inner *Procinner_t) Setprio(prio int64) int64 {
	if prio < defs.MIN_PRIORITY {
		return -1
	}
	inner.Prio = prio
	inner.Stride.Reprioritize(prio)
	return prio
}
