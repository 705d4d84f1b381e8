package vm

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/mem"
import "github.com/rcore-go/kernel/internal/riscv"
import "github.com/rcore-go/kernel/internal/ustr"
import "github.com/rcore-go/kernel/internal/util"

// Everything here reads or writes a *foreign* address space named by
// its satp token, because by the time a syscall runs the kernel is on
// its own page table and user pointers mean nothing directly.

/// Straddles reports whether an sz-byte object at va crosses a page
/// boundary.
func Straddles(va uint64, sz int) bool {
	return va>>defs.PGSHIFT != (va+uint64(sz)-1)>>defs.PGSHIFT
}

/// Ubuf_t is a user buffer resolved into per-page kernel views. File
/// read and write paths consume it without re-translating.
type Ubuf_t struct {
	segs [][]uint8
}

/// Mkubuf translates [ptr, ptr+length) page by page. Any unmapped page
/// fails the whole translation.
func Mkubuf(token riscv.Satp_t, ptr uint64, length int) (*Ubuf_t, defs.Err_t) {
	pm := Mkpmap_token(token)
	ub := &Ubuf_t{}
	va := Va_t(ptr)
	end := Va_t(ptr + uint64(length))
	for va < end {
		pte, ok := pm.Translate(va.Vpn())
		if !ok || !pte.User() {
			return nil, -defs.EFAULT
		}
		pg := mem.Physmem.Dmap(pte.Ppn().Pa())
		pgend := (va.Vpn() + 1).Va()
		if pgend > end {
			pgend = end
		}
		ub.segs = append(ub.segs, pg[va.Off():uint64(va.Off())+uint64(pgend-va)])
		va = pgend
	}
	return ub, 0
}

/// Mkfakeubuf wraps kernel-resident bytes as a Ubuf_t, for kernel
/// callers and tests that feed the file layer directly.
func Mkfakeubuf(b []uint8) *Ubuf_t {
	return &Ubuf_t{segs: [][]uint8{b}}
}

/// Len returns the total byte length of the buffer.
func (ub *Ubuf_t) Len() int {
	n := 0
	for _, s := range ub.segs {
		n += len(s)
	}
	return n
}

/// Segs exposes the per-page views in address order.
func (ub *Ubuf_t) Segs() [][]uint8 {
	return ub.segs
}

/// Bytes copies the buffer out into one contiguous slice.
func (ub *Ubuf_t) Bytes() []uint8 {
	ret := make([]uint8, 0, ub.Len())
	for _, s := range ub.segs {
		ret = append(ret, s...)
	}
	return ret
}

/// Userstr copies a NUL-terminated string out of user memory, up to
/// lenmax bytes.
func Userstr(token riscv.Satp_t, ptr uint64, lenmax int) (ustr.Ustr, defs.Err_t) {
	pm := Mkpmap_token(token)
	s := ustr.MkUstr()
	va := Va_t(ptr)
	for {
		pte, ok := pm.Translate(va.Vpn())
		if !ok || !pte.User() {
			return nil, -defs.EFAULT
		}
		pg := mem.Physmem.Dmap(pte.Ppn().Pa())
		chunk := pg[va.Off():]
		for i, c := range chunk {
			if c == 0 {
				if len(s)+i > lenmax {
					return nil, -defs.ENAMETOOLONG
				}
				return append(s, chunk[:i]...), 0
			}
		}
		s = append(s, chunk...)
		va = (va.Vpn() + 1).Va()
		if len(s) > lenmax {
			return nil, -defs.ENAMETOOLONG
		}
	}
}

/// Copyout writes src into user memory at va, page by page.
func Copyout(token riscv.Satp_t, va uint64, src []uint8) defs.Err_t {
	ub, err := Mkubuf(token, va, len(src))
	if err != 0 {
		return err
	}
	for _, seg := range ub.segs {
		n := util.Min(len(seg), len(src))
		copy(seg, src[:n])
		src = src[n:]
	}
	return 0
}

/// Copyin reads len(dst) bytes of user memory at va into dst.
func Copyin(token riscv.Satp_t, va uint64, dst []uint8) defs.Err_t {
	ub, err := Mkubuf(token, va, len(dst))
	if err != 0 {
		return err
	}
	for _, seg := range ub.segs {
		n := copy(dst, seg)
		dst = dst[n:]
	}
	return 0
}
