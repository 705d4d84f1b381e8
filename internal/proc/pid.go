// Package proc is the process layer: task control blocks and their
// fork/exec/wait/exit lifecycle, pid and kernel-stack allocation, the
// stride-priority ready queue, and the per-hart processor slot the
// idle loop schedules out of.
package proc

import "sync"

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/mem"
import "github.com/rcore-go/kernel/internal/util"

/// Pid_t is a process identifier. Ids are recycled once their owner is
/// reaped.
type Pid_t int64

type pidalloc_t struct {
	sync.Mutex
	next     Pid_t
	recycled []Pid_t
}

var pidalloc pidalloc_t

/// Mkpid hands out an unused pid.
func Mkpid() Pid_t {
	pidalloc.Lock()
	defer pidalloc.Unlock()
	if n := len(pidalloc.recycled); n > 0 {
		p := pidalloc.recycled[n-1]
		pidalloc.recycled = pidalloc.recycled[:n-1]
		return p
	}
	p := pidalloc.next
	pidalloc.next++
	return p
}

/// Free returns the pid to the allocator.
func (p Pid_t) Free() {
	pidalloc.Lock()
	pidalloc.recycled = append(pidalloc.recycled, p)
	pidalloc.Unlock()
}

/// Kstack_t is a task's kernel stack: physically contiguous frames the
/// trampoline switches onto when the task traps.
type Kstack_t struct {
	frames []*mem.Frame_t
}

/// Mkkstack allocates a kernel stack.
func Mkkstack() *Kstack_t {
	n := util.Ceildiv(defs.KERNEL_STACK_SIZE, defs.PGSIZE)
	frames, ok := mem.Mkframes_contig(n)
	if !ok {
		panic("oom for kernel stack")
	}
	return &Kstack_t{frames: frames}
}

/// Top returns the stack top, the address loaded into sp on trap
/// entry. Kernel memory is identity mapped, so the physical address is
/// the kernel virtual address.
func (ks *Kstack_t) Top() uint64 {
	last := ks.frames[len(ks.frames)-1]
	return uint64(last.Pa()) + uint64(defs.PGSIZE)
}

/// Drop frees the stack's frames at reap time.
func (ks *Kstack_t) Drop() {
	for _, f := range ks.frames {
		f.Drop()
	}
	ks.frames = nil
}
