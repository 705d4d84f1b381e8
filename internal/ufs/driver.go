// Package ufs runs the filesystem as an ordinary user-space library
// over a file-backed disk: the image-building tool and the integration
// tests boot it without a kernel underneath.
package ufs

import "os"
import "sync"

import "github.com/rcore-go/kernel/internal/fs"

/// Filedisk_t is a block device backed by a host file.
type Filedisk_t struct {
	sync.Mutex
	f *os.File
}

/// OpenDisk opens an existing disk image.
func OpenDisk(path string) *Filedisk_t {
	f, err := os.OpenFile(path, os.O_RDWR, 0755)
	if err != nil {
		panic(err)
	}
	return &Filedisk_t{f: f}
}

/// MkDisk creates a zero-filled image of nblocks blocks.
func MkDisk(path string, nblocks int) *Filedisk_t {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		panic(err)
	}
	if err := f.Truncate(int64(nblocks) * fs.BSIZE); err != nil {
		panic(err)
	}
	return &Filedisk_t{f: f}
}

// lock so seek then transfer is atomic
func (d *Filedisk_t) xfer(blockid int, buf []uint8, write bool) {
	d.Lock()
	defer d.Unlock()
	if len(buf) != fs.BSIZE {
		panic("partial block transfer")
	}
	if _, err := d.f.Seek(int64(blockid)*fs.BSIZE, 0); err != nil {
		panic(err)
	}
	var n int
	var err error
	if write {
		n, err = d.f.Write(buf)
	} else {
		n, err = d.f.Read(buf)
	}
	if n != fs.BSIZE || err != nil {
		panic(err)
	}
}

/// Read_block fills buf from block blockid.
func (d *Filedisk_t) Read_block(blockid int, buf []uint8) {
	d.xfer(blockid, buf, false)
}

/// Write_block writes buf to block blockid.
func (d *Filedisk_t) Write_block(blockid int, buf []uint8) {
	d.xfer(blockid, buf, true)
}

/// Close flushes and closes the image.
func (d *Filedisk_t) Close() {
	if err := d.f.Sync(); err != nil {
		panic(err)
	}
	if err := d.f.Close(); err != nil {
		panic(err)
	}
}
