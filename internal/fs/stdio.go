package fs

import "github.com/rcore-go/kernel/internal/console"
import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/vm"

/// Stdin_t is descriptor 0 of every process.
type Stdin_t struct{}

func (s *Stdin_t) Readable() bool { return true }
func (s *Stdin_t) Writable() bool { return false }

/// Read pulls at most one byte from the console; the shell reads a
/// character at a time.
func (s *Stdin_t) Read(ub *vm.Ubuf_t) int {
	segs := ub.Segs()
	if len(segs) == 0 || len(segs[0]) == 0 {
		return 0
	}
	segs[0][0] = console.Getchar()
	return 1
}

func (s *Stdin_t) Write(ub *vm.Ubuf_t) int {
	panic("write to stdin")
}

func (s *Stdin_t) Stat(st *defs.Stat_t) defs.Err_t {
	return defs.EGENERIC
}

func (s *Stdin_t) Reopen() {}
func (s *Stdin_t) Close()  {}

/// Stdout_t serves descriptors 1 and 2.
type Stdout_t struct{}

func (s *Stdout_t) Readable() bool { return false }
func (s *Stdout_t) Writable() bool { return true }

func (s *Stdout_t) Read(ub *vm.Ubuf_t) int {
	panic("read from stdout")
}

func (s *Stdout_t) Write(ub *vm.Ubuf_t) int {
	n := 0
	for _, seg := range ub.Segs() {
		console.Write(seg)
		n += len(seg)
	}
	return n
}

func (s *Stdout_t) Stat(st *defs.Stat_t) defs.Err_t {
	return defs.EGENERIC
}

func (s *Stdout_t) Reopen() {}
func (s *Stdout_t) Close()  {}
