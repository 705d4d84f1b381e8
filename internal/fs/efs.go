package fs

import "sync"

import "github.com/rcore-go/kernel/internal/util"

/// Fs_t is one mounted filesystem: the device, the two bitmaps, and
/// the region offsets decoded from the superblock. One lock serializes
/// every metadata mutation; the block cache underneath adds its own
/// short per-slot critical sections.
type Fs_t struct {
	sync.Mutex
	dev        Bdev_i
	imap       Bitmap_t
	dmap       Bitmap_t
	iareastart int
	dareastart int
	// inode ids with open in-memory handles; unlink defers freeing an
	// inode while one exists
	opens map[int]int
}

/// MkFS formats dev with the standard layout: superblock, inode
/// bitmap, inode area, data bitmap, data area. The root directory is
/// created as inode 0. Returns the mounted filesystem.
func MkFS(dev Bdev_i, total, imapblocks int) *Fs_t {
	ninodes := imapblocks * bits_per_block
	iareablocks := util.Ceildiv(ninodes, INODES_PER_BLOCK)
	rest := total - 1 - imapblocks - iareablocks
	if rest <= 1 {
		panic("disk too small")
	}
	// one bitmap block carries bits for bits_per_block data blocks
	dmapblocks := util.Ceildiv(rest, bits_per_block+1)
	dareablocks := rest - dmapblocks

	zero := make([]uint8, BSIZE)
	for i := 0; i < total; i++ {
		dev.Write_block(i, zero)
	}
	With_modify(0, dev, 0, BSIZE, func(d []uint8) {
		sb := &Superblock_t{Data: d}
		sb.Init(total, imapblocks, iareablocks, dmapblocks, dareablocks)
	})

	fs := &Fs_t{
		dev:        dev,
		imap:       MkBitmap(1, imapblocks),
		dmap:       MkBitmap(1+imapblocks+iareablocks, dmapblocks),
		iareastart: 1 + imapblocks,
		dareastart: 1 + imapblocks + iareablocks + dmapblocks,
		opens:      make(map[int]int),
	}

	root, ok := fs.imap.Alloc(dev)
	if !ok || root != 0 {
		panic("root inode not 0")
	}
	blk, off := fs.inode_pos(root)
	With_modify(blk, dev, off, INODE_SZ, func(d []uint8) {
		di := &Dinode_t{Raw: d}
		di.Init(I_DIR)
	})
	Sync_all()
	return fs
}

/// MountFS opens the filesystem already on dev. Panics on a bad magic
/// number; mounting garbage is a deployment error, not a runtime case.
func MountFS(dev Bdev_i) *Fs_t {
	var total, imapblocks, iareablocks, dmapblocks, dareablocks int
	With_read(0, dev, 0, BSIZE, func(d []uint8) {
		sb := &Superblock_t{Data: d}
		if !sb.Valid() {
			panic("bad fs magic")
		}
		total = sb.Total()
		imapblocks = sb.Imapblocks()
		iareablocks = sb.Iareablocks()
		dmapblocks = sb.Dmapblocks()
		dareablocks = sb.Dareablocks()
	})
	if total != 1+imapblocks+iareablocks+dmapblocks+dareablocks {
		panic("superblock regions disagree with total")
	}
	return &Fs_t{
		dev:        dev,
		imap:       MkBitmap(1, imapblocks),
		dmap:       MkBitmap(1+imapblocks+iareablocks, dmapblocks),
		iareastart: 1 + imapblocks,
		dareastart: 1 + imapblocks + iareablocks + dmapblocks,
		opens:      make(map[int]int),
	}
}

// disk block and byte offset of inode inum.
func (fs *Fs_t) inode_pos(inum int) (int, int) {
	return fs.iareastart + inum/INODES_PER_BLOCK,
		(inum % INODES_PER_BLOCK) * INODE_SZ
}

// allocate an inode id; caller holds the fs lock.
func (fs *Fs_t) alloc_inode() (int, bool) {
	return fs.imap.Alloc(fs.dev)
}

func (fs *Fs_t) dealloc_inode(inum int) {
	fs.imap.Dealloc(fs.dev, inum)
}

// allocate a data block, returning its absolute disk block id; caller
// holds the fs lock.
func (fs *Fs_t) alloc_data() (int, bool) {
	n, ok := fs.dmap.Alloc(fs.dev)
	if !ok {
		return 0, false
	}
	return fs.dareastart + n, true
}

func (fs *Fs_t) dealloc_data(blockid int) {
	// freed blocks must not leak stale bytes to the next owner
	With_modify(blockid, fs.dev, 0, BSIZE, func(d []uint8) {
		for i := range d {
			d[i] = 0
		}
	})
	fs.dmap.Dealloc(fs.dev, blockid-fs.dareastart)
}

/// Root_inode returns a handle on the root directory.
func (fs *Fs_t) Root_inode() *Inode_t {
	blk, off := fs.inode_pos(0)
	return &Inode_t{fs: fs, blockid: blk, off: off, Inum: 0}
}

// open-handle accounting for deferred inode freeing.
func (fs *Fs_t) open_ref(inum int) {
	fs.opens[inum]++
}

func (fs *Fs_t) open_unref(inum int) int {
	fs.opens[inum]--
	n := fs.opens[inum]
	if n < 0 {
		panic("open count underflow")
	}
	if n == 0 {
		delete(fs.opens, inum)
	}
	return n
}

func (fs *Fs_t) open_refs(inum int) int {
	return fs.opens[inum]
}
