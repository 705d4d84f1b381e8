package syscall

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/fs"
import "github.com/rcore-go/kernel/internal/proc"
import "github.com/rcore-go/kernel/internal/vm"

// longest path a syscall accepts; directory entries cut names off far
// earlier.
const pathmax = 256

// fetch descriptor fd of the current task. The inner guard is dropped
// before the caller touches the file so file I/O never runs with the
// TCB borrowed.
func curfile(fd uint64) fs.File_i {
	p := proc.Current_task()
	g := p.Inner()
	inner := g.Get()
	if fd >= uint64(len(inner.Fds)) {
		g.Release()
		return nil
	}
	f := inner.Fds[fd]
	g.Release()
	return f
}

func sys_write(fd, buf, n uint64) int64 {
	f := curfile(fd)
	if f == nil || !f.Writable() {
		return -1
	}
	ub, err := vm.Mkubuf(proc.Current_task().Token(), buf, int(n))
	if err != 0 {
		return -1
	}
	return int64(f.Write(ub))
}

func sys_read(fd, buf, n uint64) int64 {
	f := curfile(fd)
	if f == nil || !f.Readable() {
		return -1
	}
	ub, err := vm.Mkubuf(proc.Current_task().Token(), buf, int(n))
	if err != 0 {
		return -1
	}
	return int64(f.Read(ub))
}

func sys_open(path, flags uint64) int64 {
	p := proc.Current_task()
	name, err := vm.Userstr(p.Token(), path, pathmax)
	if err != 0 {
		return -1
	}
	osi, ferr := fs.Open_file(name, int(flags))
	if ferr != 0 {
		return -1
	}
	g := p.Inner()
	inner := g.Get()
	fd := inner.Alloc_fd()
	inner.Fds[fd] = osi
	g.Release()
	return int64(fd)
}

func sys_close(fd uint64) int64 {
	p := proc.Current_task()
	g := p.Inner()
	inner := g.Get()
	if fd >= uint64(len(inner.Fds)) || inner.Fds[fd] == nil {
		g.Release()
		return -1
	}
	f := inner.Fds[fd]
	inner.Fds[fd] = nil
	g.Release()
	f.Close()
	return 0
}

func sys_fstat(fd, stp uint64) int64 {
	f := curfile(fd)
	if f == nil {
		return -1
	}
	var st defs.Stat_t
	if f.Stat(&st) != 0 {
		return -1
	}
	if vm.Copyout(proc.Current_task().Token(), stp, st.Bytes()) != 0 {
		return -1
	}
	return 0
}

func sys_linkat(oldp, newp uint64) int64 {
	tok := proc.Current_task().Token()
	oldname, err := vm.Userstr(tok, oldp, pathmax)
	if err != 0 {
		return -1
	}
	newname, err := vm.Userstr(tok, newp, pathmax)
	if err != 0 {
		return -1
	}
	if fs.Rootfs().Root_inode().Link(oldname, newname) != 0 {
		return -1
	}
	return 0
}

func sys_unlinkat(path uint64) int64 {
	name, err := vm.Userstr(proc.Current_task().Token(), path, pathmax)
	if err != 0 {
		return -1
	}
	if fs.Rootfs().Root_inode().Unlink(name) != 0 {
		return -1
	}
	return 0
}
