// Package console is the byte-in/byte-out boundary to the platform
// console. The SBI-backed implementation replaces these hooks on a
// native build; the host build talks to the process's own stdio.
package console

import "os"

/// Write pushes bytes to the console.
var Write func(b []uint8) = func(b []uint8) {
	os.Stdout.Write(b)
}

/// Getchar pulls one byte from the console, 0 when none is pending.
var Getchar func() uint8 = func() uint8 {
	return 0
}
