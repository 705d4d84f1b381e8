package vm

import "sync"

import "github.com/rcore-go/kernel/internal/defs"

// Kernel image section boundaries. A native build takes these from the
// linker script symbols; the layout below mirrors the usual link order
// of text, rodata, then data/bss inside the loaded image.
var (
	stext   = Va_t(defs.KERNEL_BASE)
	etext   = Va_t(defs.KERNEL_BASE + 0x0020_0000)
	srodata = etext
	erodata = Va_t(defs.KERNEL_BASE + 0x0030_0000)
	sdata   = erodata
	ebss    = Va_t(defs.KERNEL_IMAGE_END)
)

var kvm *Vm_t
var kvmonce sync.Once

/// Kvm returns the kernel address space, constructing it on first use:
/// identity maps for the kernel sections with their natural
/// permissions, the remaining RAM so the kernel can reach every frame,
/// the VirtIO MMIO window, and the trampoline. None of the identity
/// leaves carry PTE_U.
func Kvm() *Vm_t {
	kvmonce.Do(func() {
		as := Mkvm()
		as.push(Mkvminfo(stext, etext, MAP_IDENTITY, PERM_R|PERM_X), nil, 0)
		as.push(Mkvminfo(srodata, erodata, MAP_IDENTITY, PERM_R), nil, 0)
		as.push(Mkvminfo(sdata, ebss, MAP_IDENTITY, PERM_R|PERM_W), nil, 0)
		as.push(Mkvminfo(ebss, Va_t(defs.MEMORY_END), MAP_IDENTITY,
			PERM_R|PERM_W), nil, 0)
		as.push(Mkvminfo(Va_t(defs.MMIO_START), Va_t(defs.MMIO_END),
			MAP_IDENTITY, PERM_R|PERM_W), nil, 0)
		kvm = as
	})
	return kvm
}

/// Kvm_token returns the kernel space's satp value for trap contexts.
func Kvm_token() uint64 {
	return uint64(Kvm().Token())
}
