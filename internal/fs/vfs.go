package fs

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/ustr"

/// Inode_t is an in-memory handle on one on-disk inode: where the
/// record lives and which filesystem it belongs to. The handle holds
/// no name; names are directory business.
type Inode_t struct {
	fs      *Fs_t
	blockid int
	off     int
	Inum    int
}

// run f over the on-disk record, read-only.
func (ip *Inode_t) read_disk(f func(*Dinode_t)) {
	With_read(ip.blockid, ip.fs.dev, ip.off, INODE_SZ, func(d []uint8) {
		f(&Dinode_t{Raw: d})
	})
}

// run f over the on-disk record for mutation.
func (ip *Inode_t) modify_disk(f func(*Dinode_t)) {
	With_modify(ip.blockid, ip.fs.dev, ip.off, INODE_SZ, func(d []uint8) {
		f(&Dinode_t{Raw: d})
	})
}

func (ip *Inode_t) mkhandle(inum int) *Inode_t {
	blk, off := ip.fs.inode_pos(inum)
	return &Inode_t{fs: ip.fs, blockid: blk, off: off, Inum: inum}
}

// scan the directory for name; tombstones keep their name bytes, so an
// entry only counts while its inode id is nonzero.
func (ip *Inode_t) find_inum(name ustr.Ustr, di *Dinode_t) (int, bool) {
	if !di.Isdir() {
		panic("find in non-directory")
	}
	n := di.Size() / DIRENT_SZ
	var raw [DIRENT_SZ]uint8
	for i := 0; i < n; i++ {
		if di.Read_at(i*DIRENT_SZ, raw[:], ip.fs.dev) != DIRENT_SZ {
			panic("short dirent read")
		}
		de := &Dirent_t{Raw: raw[:]}
		if de.Inum() != 0 && de.Name().Eq(name) {
			return de.Inum(), true
		}
	}
	return 0, false
}

/// Find returns a handle on the inode name refers to under this
/// directory, or nil.
func (ip *Inode_t) Find(name ustr.Ustr) *Inode_t {
	ip.fs.Lock()
	defer ip.fs.Unlock()
	return ip.find(name)
}

func (ip *Inode_t) find(name ustr.Ustr) *Inode_t {
	var ret *Inode_t
	ip.read_disk(func(di *Dinode_t) {
		if inum, ok := ip.find_inum(name, di); ok {
			ret = ip.mkhandle(inum)
		}
	})
	return ret
}

// grow the directory/file inode to newsz, allocating fresh blocks;
// caller holds the fs lock.
func (ip *Inode_t) increase_size(newsz int, di *Dinode_t) {
	if newsz <= di.Size() {
		return
	}
	need := di.Blocks_needed(newsz)
	blks := make([]int, 0, need)
	for i := 0; i < need; i++ {
		b, ok := ip.fs.alloc_data()
		if !ok {
			panic("out of data blocks")
		}
		blks = append(blks, b)
	}
	di.Increase_size(newsz, blks, ip.fs.dev)
}

// append a directory entry, reusing the first tombstone if one exists.
func (ip *Inode_t) dir_append(name ustr.Ustr, inum int, di *Dinode_t) {
	n := di.Size() / DIRENT_SZ
	var raw [DIRENT_SZ]uint8
	de := &Dirent_t{Raw: raw[:]}
	slot := n
	for i := 0; i < n; i++ {
		di.Read_at(i*DIRENT_SZ, raw[:], ip.fs.dev)
		if de.Inum() == 0 {
			slot = i
			break
		}
	}
	if slot == n {
		ip.increase_size((n+1)*DIRENT_SZ, di)
	}
	de.W_entry(name, inum)
	di.Write_at(slot*DIRENT_SZ, raw[:], ip.fs.dev)
}

/// Create makes a fresh inode of the given type and enters name for it
/// in this directory. Nil if the name is empty, taken, or too long, or
/// no inode is free; running out of data blocks while growing the
/// directory panics.
func (ip *Inode_t) Create(name ustr.Ustr, typ Itype_t) *Inode_t {
	if len(name) > NAME_MAX || len(name) == 0 {
		return nil
	}
	ip.fs.Lock()
	defer ip.fs.Unlock()
	if ip.find(name) != nil {
		return nil
	}
	inum, ok := ip.fs.alloc_inode()
	if !ok {
		return nil
	}
	nh := ip.mkhandle(inum)
	nh.modify_disk(func(di *Dinode_t) {
		di.Init(typ)
	})
	ip.modify_disk(func(di *Dinode_t) {
		ip.dir_append(name, inum, di)
	})
	Sync_all()
	return nh
}

/// Link installs newname in this directory as another name for the
/// inode oldname refers to. Rejected: identical names, a taken
/// newname, an overlong newname, or a missing oldname.
func (ip *Inode_t) Link(oldname, newname ustr.Ustr) defs.Err_t {
	if len(newname) > NAME_MAX {
		return -defs.ENAMETOOLONG
	}
	if oldname.Eq(newname) {
		return defs.EGENERIC
	}
	ip.fs.Lock()
	defer ip.fs.Unlock()
	if ip.find(newname) != nil {
		return defs.EGENERIC
	}
	old := ip.find(oldname)
	if old == nil {
		return defs.EGENERIC
	}
	ip.modify_disk(func(di *Dinode_t) {
		ip.dir_append(newname, old.Inum, di)
	})
	Sync_all()
	return 0
}

/// Unlink tombstones name's directory entry. When the last name for
/// an inode goes away and no open handle references it, the inode and
/// its blocks are freed; otherwise the close of the last handle frees
/// them.
func (ip *Inode_t) Unlink(name ustr.Ustr) defs.Err_t {
	ip.fs.Lock()
	defer ip.fs.Unlock()
	var inum int
	found := false
	ip.modify_disk(func(di *Dinode_t) {
		n := di.Size() / DIRENT_SZ
		var raw [DIRENT_SZ]uint8
		for i := 0; i < n; i++ {
			di.Read_at(i*DIRENT_SZ, raw[:], ip.fs.dev)
			de := &Dirent_t{Raw: raw[:]}
			if de.Inum() != 0 && de.Name().Eq(name) {
				inum = de.Inum()
				de.W_tombstone()
				di.Write_at(i*DIRENT_SZ, raw[:], ip.fs.dev)
				found = true
				return
			}
		}
	})
	if !found {
		return defs.EGENERIC
	}
	if ip.linkcnt(inum) == 0 && ip.fs.open_refs(inum) == 0 {
		ip.fs.free_inode(inum)
	}
	Sync_all()
	return 0
}

/// Linkcnt counts the directory entries naming inode inum.
func (ip *Inode_t) Linkcnt(inum int) int {
	ip.fs.Lock()
	defer ip.fs.Unlock()
	return ip.linkcnt(inum)
}

// linear over the directory; an on-inode counter would beat this for
// big directories.
func (ip *Inode_t) linkcnt(inum int) int {
	cnt := 0
	ip.read_disk(func(di *Dinode_t) {
		n := di.Size() / DIRENT_SZ
		var raw [DIRENT_SZ]uint8
		for i := 0; i < n; i++ {
			di.Read_at(i*DIRENT_SZ, raw[:], ip.fs.dev)
			de := &Dirent_t{Raw: raw[:]}
			if de.Inum() == inum && de.Inum() != 0 {
				cnt++
			}
		}
	})
	return cnt
}

// release everything inode inum owns; caller holds the fs lock.
func (fs *Fs_t) free_inode(inum int) {
	blk, off := fs.inode_pos(inum)
	var blks []int
	With_modify(blk, fs.dev, off, INODE_SZ, func(d []uint8) {
		di := &Dinode_t{Raw: d}
		blks = di.Clear_size(fs.dev)
	})
	for _, b := range blks {
		fs.dealloc_data(b)
	}
	fs.dealloc_inode(inum)
}

/// Read_at copies bytes at offset off into buf, returning the count.
func (ip *Inode_t) Read_at(off int, buf []uint8) int {
	ip.fs.Lock()
	defer ip.fs.Unlock()
	var n int
	ip.read_disk(func(di *Dinode_t) {
		n = di.Read_at(off, buf, ip.fs.dev)
	})
	return n
}

/// Write_at copies buf into the inode at offset off, growing it as
/// needed, and flushes the cache so a subsequent read observes the
/// bytes on disk.
func (ip *Inode_t) Write_at(off int, buf []uint8) int {
	ip.fs.Lock()
	defer ip.fs.Unlock()
	var n int
	ip.modify_disk(func(di *Dinode_t) {
		ip.increase_size(off+len(buf), di)
		n = di.Write_at(off, buf, ip.fs.dev)
	})
	Sync_all()
	return n
}

/// Clear truncates the inode to zero bytes and frees its blocks.
func (ip *Inode_t) Clear() {
	ip.fs.Lock()
	defer ip.fs.Unlock()
	var blks []int
	ip.modify_disk(func(di *Dinode_t) {
		blks = di.Clear_size(ip.fs.dev)
	})
	for _, b := range blks {
		ip.fs.dealloc_data(b)
	}
	Sync_all()
}

/// Size returns the inode's byte size.
func (ip *Inode_t) Size() int {
	ip.fs.Lock()
	defer ip.fs.Unlock()
	var sz int
	ip.read_disk(func(di *Dinode_t) {
		sz = di.Size()
	})
	return sz
}

/// Isdir reports whether the inode is a directory.
func (ip *Inode_t) Isdir() bool {
	ip.fs.Lock()
	defer ip.fs.Unlock()
	var d bool
	ip.read_disk(func(di *Dinode_t) {
		d = di.Isdir()
	})
	return d
}

/// Ls lists the live names in this directory.
func (ip *Inode_t) Ls() []ustr.Ustr {
	ip.fs.Lock()
	defer ip.fs.Unlock()
	var names []ustr.Ustr
	ip.read_disk(func(di *Dinode_t) {
		n := di.Size() / DIRENT_SZ
		var raw [DIRENT_SZ]uint8
		for i := 0; i < n; i++ {
			di.Read_at(i*DIRENT_SZ, raw[:], ip.fs.dev)
			de := &Dirent_t{Raw: raw[:]}
			if de.Inum() != 0 {
				name := make(ustr.Ustr, len(de.Name()))
				copy(name, de.Name())
				names = append(names, name)
			}
		}
	})
	return names
}
