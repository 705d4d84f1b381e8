// Package kernel is the boot glue: bring up physical memory, activate
// the kernel address space, mount the root filesystem, start init, and
// hand the hart to the scheduler. The trap dispatcher lives here too,
// one layer above the subsystems it steers.
package kernel

import "log"

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/fs"
import "github.com/rcore-go/kernel/internal/mem"
import "github.com/rcore-go/kernel/internal/proc"
import "github.com/rcore-go/kernel/internal/riscv"
import "github.com/rcore-go/kernel/internal/timer"
import "github.com/rcore-go/kernel/internal/vm"

/// Kmain boots the kernel over the given disk and init executable. It
/// does not return; the tail is the scheduler's idle loop.
func Kmain(disk fs.Bdev_i, init []uint8) {
	mem.Phys_init()
	vm.Kvm().Activate()
	riscv.W_stvec(defs.TRAMPOLINE)
	fs.Mount(fs.MountFS(disk))
	timer.Set_next_trigger()

	p, err := proc.Mkproc(init)
	if err != 0 {
		panic("init is not a loadable executable")
	}
	proc.Set_initproc(p)
	proc.Add_task(p)
	log.Printf("boot: init pid %v", p.Pid)
	proc.Run_tasks()
}
