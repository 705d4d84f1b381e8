package vm

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/mem"
import "github.com/rcore-go/kernel/internal/util"

/// Maptype_t distinguishes how an area's pages find their frames.
type Maptype_t int

const (
	/// MAP_IDENTITY maps each virtual page to the equal-numbered
	/// physical page; used for the kernel image and MMIO windows.
	MAP_IDENTITY Maptype_t = iota
	/// MAP_FRAMED backs each page with a frame the area owns.
	MAP_FRAMED
)

/// Perm_t is an area's permission set. The bit assignment matches the
/// PTE flag bits so conversion is a cast.
type Perm_t Pte_t

const (
	PERM_R Perm_t = Perm_t(PTE_R)
	PERM_W Perm_t = Perm_t(PTE_W)
	PERM_X Perm_t = Perm_t(PTE_X)
	PERM_U Perm_t = Perm_t(PTE_U)
)

/// Vminfo_t is one map area: a half-open virtual page range with one
/// map type and one permission set. Framed areas own the frames behind
/// their pages and free them when pages leave the area.
type Vminfo_t struct {
	Start  Vpn_t
	End    Vpn_t
	Mtype  Maptype_t
	Perm   Perm_t
	frames map[Vpn_t]*mem.Frame_t
}

/// Mkvminfo builds an unmapped area covering [startva, endva).
func Mkvminfo(startva, endva Va_t, mt Maptype_t, perm Perm_t) *Vminfo_t {
	vmi := &Vminfo_t{
		Start: startva.Floor(),
		End:   endva.Ceil(),
		Mtype: mt,
		Perm:  perm,
	}
	if mt == MAP_FRAMED {
		vmi.frames = make(map[Vpn_t]*mem.Frame_t)
	}
	return vmi
}

func (vmi *Vminfo_t) map_one(pm *Pmap_t, vpn Vpn_t) {
	var ppn mem.Ppn_t
	switch vmi.Mtype {
	case MAP_IDENTITY:
		ppn = mem.Ppn_t(vpn)
	case MAP_FRAMED:
		f, ok := mem.Mkframe()
		if !ok {
			panic("oom during area map")
		}
		vmi.frames[vpn] = f
		ppn = f.Ppn
	default:
		panic("wut")
	}
	pm.Map(vpn, ppn, Pte_t(vmi.Perm))
}

func (vmi *Vminfo_t) unmap_one(pm *Pmap_t, vpn Vpn_t) {
	if vmi.Mtype == MAP_FRAMED {
		f, ok := vmi.frames[vpn]
		if !ok {
			panic("unmap of unowned vpn")
		}
		f.Drop()
		delete(vmi.frames, vpn)
	}
	pm.Unmap(vpn)
}

/// Map installs every page of the area into pm.
func (vmi *Vminfo_t) Map(pm *Pmap_t) {
	for vpn := vmi.Start; vpn < vmi.End; vpn++ {
		vmi.map_one(pm, vpn)
	}
}

/// Unmap removes every page of the area from pm, freeing owned frames.
func (vmi *Vminfo_t) Unmap(pm *Pmap_t) {
	for vpn := vmi.Start; vpn < vmi.End; vpn++ {
		vmi.unmap_one(pm, vpn)
	}
}

/// Shrink_to truncates the area to end at newend, unmapping and freeing
/// the tail.
func (vmi *Vminfo_t) Shrink_to(pm *Pmap_t, newend Vpn_t) {
	for vpn := newend; vpn < vmi.End; vpn++ {
		vmi.unmap_one(pm, vpn)
	}
	vmi.End = newend
}

/// Append_to extends the area to end at newend, mapping the new pages.
func (vmi *Vminfo_t) Append_to(pm *Pmap_t, newend Vpn_t) {
	for vpn := vmi.End; vpn < newend; vpn++ {
		vmi.map_one(pm, vpn)
	}
	vmi.End = newend
}

/// Copy_data writes data into the area's frames starting at byte
/// offset off from the area's first page. The area must already be
/// mapped in pm.
func (vmi *Vminfo_t) Copy_data(pm *Pmap_t, data []uint8, off uint64) {
	if vmi.Mtype != MAP_FRAMED {
		panic("copy into identity area")
	}
	vpn := vmi.Start + Vpn_t(off>>defs.PGSHIFT)
	pgoff := int(off & defs.PGOFFSET)
	for len(data) > 0 {
		if vpn >= vmi.End {
			panic("data overruns area")
		}
		f := vmi.frames[vpn]
		dst := f.Pg()[pgoff:]
		n := util.Min(len(dst), len(data))
		copy(dst, data[:n])
		data = data[n:]
		pgoff = 0
		vpn++
	}
}

/// Frame returns the frame backing vpn, if the area owns one.
func (vmi *Vminfo_t) Frame(vpn Vpn_t) (*mem.Frame_t, bool) {
	f, ok := vmi.frames[vpn]
	return f, ok
}

/// Intersects reports whether the area overlaps [s, e).
func (vmi *Vminfo_t) Intersects(s, e Vpn_t) bool {
	return vmi.Start < e && s < vmi.End
}
