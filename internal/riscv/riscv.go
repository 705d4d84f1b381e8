// Package riscv is the thin machine layer the core kernel drives:
// supervisor CSR access, TLB maintenance, and the timebase. A native
// build backs these entry points with the real csrw/sfence.vma/rdtime
// instructions; the host build records CSR state and steps a simulated
// timebase so the rest of the kernel runs unmodified under go test.
package riscv

import "sync/atomic"

/// Satp_t is the value programmed into the satp CSR: paging mode in the
/// top nibble, root page-table PPN in the low bits.
type Satp_t uint64

/// SATP_SV39 selects the three-level Sv39 translation mode.
const SATP_SV39 Satp_t = 8 << 60

/// MkSatp encodes Sv39 mode with the given root PPN.
func MkSatp(rootppn uint64) Satp_t {
	return SATP_SV39 | Satp_t(rootppn)
}

/// Ppn extracts the root page-table PPN from a satp value.
func (s Satp_t) Ppn() uint64 {
	return uint64(s) & ((1 << 44) - 1)
}

var satp uint64
var stvec uint64
var stimecmp uint64
var mtime uint64

/// W_satp programs the address translation root and mode.
func W_satp(v Satp_t) {
	atomic.StoreUint64(&satp, uint64(v))
}

/// R_satp returns the currently programmed satp value.
func R_satp() Satp_t {
	return Satp_t(atomic.LoadUint64(&satp))
}

/// Sfence_vma flushes the entire TLB. The core invokes it after every
/// satp write and after unmapping pages.
func Sfence_vma() {
}

/// W_stvec points the trap vector at the given address.
func W_stvec(v uint64) {
	atomic.StoreUint64(&stvec, v)
}

/// R_stvec returns the current trap vector address.
func R_stvec() uint64 {
	return atomic.LoadUint64(&stvec)
}

/// R_time reads the timebase counter.
func R_time() uint64 {
	return atomic.LoadUint64(&mtime)
}

/// W_stimecmp arms the supervisor timer to fire at tick t.
func W_stimecmp(t uint64) {
	atomic.StoreUint64(&stimecmp, t)
}

/// R_stimecmp returns the armed timer compare value.
func R_stimecmp() uint64 {
	return atomic.LoadUint64(&stimecmp)
}

/// Tick advances the simulated timebase by n ticks. Host builds only;
/// on hardware the counter advances by itself.
func Tick(n uint64) {
	atomic.AddUint64(&mtime, n)
}
