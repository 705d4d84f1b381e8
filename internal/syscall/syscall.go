// Package syscall is the thin dispatch between the trap handler and
// the kernel: decode the id, charge the per-task counter, and hand the
// raw a0-a2 arguments to the right implementation. All results are
// signed a0 values; negative means failure.
package syscall

import "fmt"

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/proc"

/// Syscall executes syscall id for the current task.
func Syscall(id, a0, a1, a2 uint64) int64 {
	proc.Inc_syscall(id)
	switch id {
	case defs.SYS_READ:
		return sys_read(a0, a1, a2)
	case defs.SYS_WRITE:
		return sys_write(a0, a1, a2)
	case defs.SYS_OPEN:
		return sys_open(a0, a1)
	case defs.SYS_CLOSE:
		return sys_close(a0)
	case defs.SYS_FSTAT:
		return sys_fstat(a0, a1)
	case defs.SYS_LINKAT:
		return sys_linkat(a0, a1)
	case defs.SYS_UNLINKAT:
		return sys_unlinkat(a0)
	case defs.SYS_EXIT:
		return sys_exit(a0)
	case defs.SYS_YIELD:
		return sys_yield()
	case defs.SYS_SETPRIORITY:
		return sys_set_priority(a0)
	case defs.SYS_GETTIME:
		return sys_get_time(a0, a1)
	case defs.SYS_GETPID:
		return sys_getpid()
	case defs.SYS_SBRK:
		return sys_sbrk(a0)
	case defs.SYS_MUNMAP:
		return sys_munmap(a0, a1)
	case defs.SYS_FORK:
		return sys_fork()
	case defs.SYS_EXEC:
		return sys_exec(a0)
	case defs.SYS_MMAP:
		return sys_mmap(a0, a1, a2)
	case defs.SYS_WAITPID:
		return sys_waitpid(a0, a1)
	case defs.SYS_SPAWN:
		return sys_spawn(a0)
	case defs.SYS_TASKINFO:
		return sys_task_info(a0)
	default:
		panic(fmt.Sprintf("unsupported syscall %v", id))
	}
}
