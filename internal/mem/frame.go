package mem

/// Frame_t tracks exclusive ownership of one allocated frame. The frame
/// returns to the pool when its owner calls Drop; a frame is either on
/// the free list or behind exactly one live tracker, never both.
type Frame_t struct {
	Ppn     Ppn_t
	dropped bool
}

/// Mkframe allocates a zeroed frame and returns its tracker. The second
/// return value is false when the pool is exhausted.
func Mkframe() (*Frame_t, bool) {
	phys := Physmem
	phys.Lock()
	ppn, ok := phys._pop()
	if !ok {
		phys.Unlock()
		return nil, false
	}
	phys._take(ppn)
	phys.Unlock()
	return &Frame_t{Ppn: ppn}, true
}

/// Mkframes_contig allocates n zeroed, physically contiguous frames for
/// device DMA. Contiguity is asserted, not searched for: the bump
/// allocator hands out ascending page numbers, so the frames of one
/// allocation loop must be consecutive unless the recycled list got in
/// the way, which is a setup bug at driver-init time.
func Mkframes_contig(n int) ([]*Frame_t, bool) {
	if n <= 0 {
		panic("bad frame count")
	}
	ret := make([]*Frame_t, 0, n)
	for i := 0; i < n; i++ {
		f, ok := Mkframe()
		if !ok {
			for _, g := range ret {
				g.Drop()
			}
			return nil, false
		}
		if i > 0 && f.Ppn != ret[i-1].Ppn+1 {
			panic("dma frames not contiguous")
		}
		ret = append(ret, f)
	}
	return ret, true
}

/// Pa returns the base physical address of the tracked frame.
func (f *Frame_t) Pa() Pa_t {
	return f.Ppn.Pa()
}

/// Pg returns the frame's bytes via the direct map.
func (f *Frame_t) Pg() *Bytepg_t {
	return Physmem.Dmap(f.Ppn.Pa())
}

/// Drop returns the frame to the pool. Dropping twice panics.
func (f *Frame_t) Drop() {
	if f.dropped {
		panic("double drop of frame")
	}
	f.dropped = true
	Physmem.free(f.Ppn)
}

// vqframes pins the trackers backing VirtIO queue DMA buffers so the
// frames outlive the request that allocated them; the device keeps
// writing descriptors into them until teardown.
var vqframes []*Frame_t

/// Vq_hold pins DMA frames for the lifetime of the device.
func Vq_hold(frames []*Frame_t) {
	vqframes = append(vqframes, frames...)
}
