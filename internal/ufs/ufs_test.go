package ufs

import "math/rand"
import "path/filepath"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/fs"
import "github.com/rcore-go/kernel/internal/ustr"

func TestRemountPersistence(t *testing.T) {
	img := filepath.Join(t.TempDir(), "fs.img")
	fs.Purge_cache()

	rng := rand.New(rand.NewSource(7))
	big := make([]uint8, 10_000)
	rng.Read(big)

	u := MkfsFS(img, 4096, 1)
	require.Zero(t, u.MkFile(ustr.Ustr("big"), big))
	require.Zero(t, u.MkFile(ustr.Ustr("small"), []uint8("tiny")))
	require.Zero(t, u.Fs().Root_inode().Unlink(ustr.Ustr("small")))
	u.Shutdown()

	// a fresh boot starts with a cold cache; everything must come off
	// the disk
	u = BootFS(img)
	defer u.Shutdown()

	got, err := u.Read(ustr.Ustr("big"))
	require.Zero(t, err)
	assert.Equal(t, big, got)

	names := u.Ls()
	require.Len(t, names, 1)
	assert.Equal(t, "big", names[0].String())

	var st defs.Stat_t
	require.Zero(t, u.Stat(ustr.Ustr("big"), &st))
	assert.Equal(t, uint32(1), st.Nlink)
	assert.Equal(t, defs.S_FILE, st.Mode)
}

func TestRemountLinksSurvive(t *testing.T) {
	img := filepath.Join(t.TempDir(), "fs.img")
	fs.Purge_cache()

	u := MkfsFS(img, 2048, 1)
	require.Zero(t, u.MkFile(ustr.Ustr("orig"), []uint8("shared bytes")))
	require.Zero(t, u.Fs().Root_inode().Link(ustr.Ustr("orig"), ustr.Ustr("alias")))
	u.Shutdown()

	u = BootFS(img)
	defer u.Shutdown()

	a, err := u.Read(ustr.Ustr("orig"))
	require.Zero(t, err)
	b, err := u.Read(ustr.Ustr("alias"))
	require.Zero(t, err)
	assert.Equal(t, a, b)

	var st defs.Stat_t
	require.Zero(t, u.Stat(ustr.Ustr("alias"), &st))
	assert.Equal(t, uint32(2), st.Nlink)
}

func TestMkDiskGeometry(t *testing.T) {
	img := filepath.Join(t.TempDir(), "disk.img")
	d := MkDisk(img, 64)

	buf := make([]uint8, fs.BSIZE)
	for i := range buf {
		buf[i] = uint8(i)
	}
	d.Write_block(63, buf)

	got := make([]uint8, fs.BSIZE)
	d.Read_block(63, got)
	assert.Equal(t, buf, got)

	d.Read_block(0, got)
	for _, b := range got {
		require.Zero(t, b)
	}
	d.Close()
}
