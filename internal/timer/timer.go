// Package timer converts the timebase counter into wall units and arms
// the preemption tick.
package timer

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/riscv"

/// TICKS_PER_SEC is the user-mode time slice rate.
const TICKS_PER_SEC = 100

const msec_per_sec = 1000
const usec_per_sec = 1000_000

/// Time_ms returns milliseconds since boot.
func Time_ms() uint64 {
	return riscv.R_time() / (defs.CLOCK_FREQ / msec_per_sec)
}

/// Time_us returns microseconds since boot.
func Time_us() uint64 {
	return riscv.R_time() / (defs.CLOCK_FREQ / usec_per_sec)
}

/// Timeval fills tv with the current time split into seconds and
/// microseconds.
func Timeval(tv *defs.Timeval_t) {
	us := Time_us()
	tv.Sec = us / usec_per_sec
	tv.Usec = us % usec_per_sec
}

/// Set_next_trigger re-arms the timer one slice into the future.
func Set_next_trigger() {
	riscv.W_stimecmp(riscv.R_time() + defs.CLOCK_FREQ/TICKS_PER_SEC)
}
