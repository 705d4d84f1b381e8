// Package ustr carries file names between user memory, the directory
// layer, and the fixed-width on-disk entries without round-tripping
// through Go strings.
package ustr

/// Ustr represents an immutable name or path used by the kernel.
type Ustr []uint8

/// Eq compares two Ustr values for equality.
func (us Ustr) Eq(s Ustr) bool {
	if len(us) != len(s) {
		return false
	}
	for i, v := range us {
		if v != s[i] {
			return false
		}
	}
	return true
}

/// MkUstr creates an empty Ustr value.
func MkUstr() Ustr {
	us := Ustr{}
	return us
}

/// MkUstrSlice converts a NUL-padded byte slice, such as an on-disk
/// directory entry name, to a Ustr truncated at the first NUL byte.
func MkUstrSlice(buf []uint8) Ustr {
	for i := 0; i < len(buf); i++ {
		if buf[i] == uint8(0) {
			return buf[:i]
		}
	}
	return buf
}

/// Isdot reports whether the name equals '.'.
func (us Ustr) Isdot() bool {
	return len(us) == 1 && us[0] == '.'
}

/// Isdotdot reports whether the name equals '..'.
func (us Ustr) Isdotdot() bool {
	return len(us) == 2 && us[0] == '.' && us[1] == '.'
}

/// IndexByte returns the index of b in the string or -1 if not present.
func (us Ustr) IndexByte(b uint8) int {
	for i, v := range us {
		if v == b {
			return i
		}
	}
	return -1
}

/// String converts the Ustr to a Go string.
func (us Ustr) String() string {
	return string(us)
}
