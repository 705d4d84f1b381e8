package mem

import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestFrameAllocFree(t *testing.T) {
	Phys_init()
	f, ok := Mkframe()
	require.True(t, ok)
	assert.Equal(t, 1, Physmem.Allocated())

	// frames come back zeroed
	pg := f.Pg()
	for i := range pg {
		require.Zero(t, pg[i])
	}
	pg[0] = 0xaa

	f.Drop()
	assert.Equal(t, 0, Physmem.Allocated())

	// the recycled frame is re-zeroed on its next allocation
	g, ok := Mkframe()
	require.True(t, ok)
	assert.Equal(t, f.Ppn, g.Ppn)
	assert.Zero(t, g.Pg()[0])
	g.Drop()
}

func TestFrameDoubleFree(t *testing.T) {
	Phys_init()
	f, ok := Mkframe()
	require.True(t, ok)
	f.Drop()
	assert.Panics(t, func() { f.Drop() })
}

func TestFrameTrackerInvariant(t *testing.T) {
	Phys_init()
	live := make(map[Ppn_t]bool)
	var frames []*Frame_t
	for i := 0; i < 64; i++ {
		f, ok := Mkframe()
		require.True(t, ok)
		require.False(t, live[f.Ppn], "ppn handed out twice")
		live[f.Ppn] = true
		frames = append(frames, f)
	}
	assert.Equal(t, len(frames), Physmem.Allocated())
	for _, f := range frames[:32] {
		f.Drop()
		delete(live, f.Ppn)
	}
	assert.Equal(t, 32, Physmem.Allocated())
	for i := 0; i < 16; i++ {
		f, ok := Mkframe()
		require.True(t, ok)
		require.False(t, live[f.Ppn])
		live[f.Ppn] = true
	}
	assert.Equal(t, 48, Physmem.Allocated())
}

func TestContigAlloc(t *testing.T) {
	Phys_init()
	frames, ok := Mkframes_contig(4)
	require.True(t, ok)
	for i := 1; i < len(frames); i++ {
		assert.Equal(t, frames[i-1].Ppn+1, frames[i].Ppn)
	}
	for _, f := range frames {
		f.Drop()
	}
}

func TestDmapOffsets(t *testing.T) {
	Phys_init()
	f, ok := Mkframe()
	require.True(t, ok)
	pa := f.Pa()
	f.Pg()[9] = 0x5a
	sl := Physmem.Dmap8(Pa_t(uint64(pa) + 9))
	assert.Equal(t, uint8(0x5a), sl[0])
	f.Drop()
}
