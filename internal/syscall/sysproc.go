package syscall

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/fs"
import "github.com/rcore-go/kernel/internal/proc"
import "github.com/rcore-go/kernel/internal/timer"
import "github.com/rcore-go/kernel/internal/trap"
import "github.com/rcore-go/kernel/internal/ustr"
import "github.com/rcore-go/kernel/internal/vm"

func sys_exit(code uint64) int64 {
	proc.Exit_current(int64(int32(code)))
	// unreached once the switch leaves this control flow
	return 0
}

func sys_yield() int64 {
	proc.Suspend_current()
	return 0
}

func sys_getpid() int64 {
	return int64(proc.Current_task().Pid)
}

func sys_fork() int64 {
	p := proc.Current_task()
	child := proc.Fork(p)
	// the child resumes from the same syscall and must see 0
	g := child.Inner()
	g.Get().Trapctx().X[trap.REG_A0] = 0
	g.Release()
	proc.Add_task(child)
	return int64(child.Pid)
}

// read a whole executable out of the root directory.
func elf_data(name ustr.Ustr) ([]uint8, bool) {
	osi, err := fs.Open_file(name, defs.O_RDONLY)
	if err != 0 {
		return nil, false
	}
	ip := fs.Rootfs().Root_inode().Find(name)
	if ip == nil {
		osi.Close()
		return nil, false
	}
	buf := make([]uint8, ip.Size())
	n := osi.Read(vm.Mkfakeubuf(buf))
	osi.Close()
	if n != len(buf) {
		return nil, false
	}
	return buf, true
}

func sys_exec(path uint64) int64 {
	p := proc.Current_task()
	name, err := vm.Userstr(p.Token(), path, pathmax)
	if err != 0 {
		return -1
	}
	data, ok := elf_data(name)
	if !ok {
		return -1
	}
	if p.Exec(data) != 0 {
		return -1
	}
	return 0
}

func sys_spawn(path uint64) int64 {
	p := proc.Current_task()
	name, err := vm.Userstr(p.Token(), path, pathmax)
	if err != 0 {
		return -1
	}
	data, ok := elf_data(name)
	if !ok {
		return -1
	}
	child, cerr := proc.Spawn(p, data)
	if cerr != 0 {
		return -1
	}
	proc.Add_task(child)
	return int64(child.Pid)
}

func sys_waitpid(pid, codep uint64) int64 {
	p := proc.Current_task()
	child, code, err := proc.Waitpid(p, int64(pid))
	if err != 0 {
		return int64(err)
	}
	if codep != 0 {
		var b [4]uint8
		c := uint32(int32(code))
		b[0] = uint8(c)
		b[1] = uint8(c >> 8)
		b[2] = uint8(c >> 16)
		b[3] = uint8(c >> 24)
		if vm.Copyout(p.Token(), codep, b[:]) != 0 {
			return -1
		}
	}
	return int64(child.Pid)
}

func sys_set_priority(prio uint64) int64 {
	p := proc.Current_task()
	g := p.Inner()
	ret := g.Get().Setprio(int64(prio))
	g.Release()
	return ret
}

func sys_get_time(tvp, tz uint64) int64 {
	_ = tz
	var tv defs.Timeval_t
	// the struct is written through one translated pointer, so it must
	// not straddle pages
	if vm.Straddles(tvp, len(tv.Bytes())) {
		return -1
	}
	timer.Timeval(&tv)
	if vm.Copyout(proc.Current_task().Token(), tvp, tv.Bytes()) != 0 {
		return -1
	}
	return 0
}

func sys_task_info(tip uint64) int64 {
	p := proc.Current_task()
	var ti defs.Taskinfo_t
	g := p.Inner()
	inner := g.Get()
	ti.Status = inner.Status
	ti.Scnt = inner.Scnt
	ti.Timems = timer.Time_ms() - inner.Firstms
	g.Release()
	if vm.Copyout(p.Token(), tip, ti.Bytes()) != 0 {
		return -1
	}
	return 0
}

func sys_sbrk(delta uint64) int64 {
	p := proc.Current_task()
	g := p.Inner()
	ret := g.Get().Sbrk(int64(delta))
	g.Release()
	return ret
}

func sys_mmap(start, length, port uint64) int64 {
	p := proc.Current_task()
	g := p.Inner()
	ret := g.Get().Mmap(start, length, port)
	g.Release()
	return ret
}

func sys_munmap(start, length uint64) int64 {
	p := proc.Current_task()
	g := p.Inner()
	ret := g.Get().Munmap(start, length)
	g.Release()
	return ret
}
