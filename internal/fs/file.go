package fs

import "sync"

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/ustr"
import "github.com/rcore-go/kernel/internal/vm"

/// File_i is what a file descriptor slot points at. Reopen takes an
/// extra reference when a descriptor table is cloned by fork; Close
/// drops one.
type File_i interface {
	Readable() bool
	Writable() bool
	Read(ub *vm.Ubuf_t) int
	Write(ub *vm.Ubuf_t) int
	Stat(st *defs.Stat_t) defs.Err_t
	Reopen()
	Close()
}

// the mounted root filesystem
var rootfs *Fs_t
var rootmu sync.Mutex

/// Mount installs fs as the root filesystem.
func Mount(fs *Fs_t) {
	rootmu.Lock()
	rootfs = fs
	rootmu.Unlock()
}

/// Rootfs returns the mounted filesystem; mounting first is the boot
/// sequence's job.
func Rootfs() *Fs_t {
	rootmu.Lock()
	defer rootmu.Unlock()
	if rootfs == nil {
		panic("no root fs mounted")
	}
	return rootfs
}

/// Osinode_t is an open regular file: a vfs inode handle plus the
/// read/write offset and the access mode the descriptor was opened
/// with. One Osinode_t may sit in several descriptor tables after
/// fork; the open count keeps the inode's blocks alive until the last
/// close.
type Osinode_t struct {
	sync.Mutex
	readable bool
	writable bool
	off      int
	ip       *Inode_t
	refs     int
}

/// Open_file opens name in the root directory. O_CREAT creates the
/// file if missing and truncates it if present; O_TRUNC truncates.
func Open_file(name ustr.Ustr, flags int) (*Osinode_t, defs.Err_t) {
	if len(name) > NAME_MAX {
		return nil, -defs.ENAMETOOLONG
	}
	fs := Rootfs()
	root := fs.Root_inode()
	ip := root.Find(name)
	if flags&defs.O_CREAT != 0 {
		if ip != nil {
			ip.Clear()
		} else {
			ip = root.Create(name, I_FILE)
			if ip == nil {
				return nil, defs.EGENERIC
			}
		}
	} else {
		if ip == nil {
			return nil, defs.EGENERIC
		}
		if flags&defs.O_TRUNC != 0 {
			ip.Clear()
		}
	}
	osi := &Osinode_t{
		readable: flags&defs.O_WRONLY == 0,
		writable: flags&(defs.O_WRONLY|defs.O_RDWR) != 0,
		ip:       ip,
		refs:     1,
	}
	fs.Lock()
	fs.open_ref(ip.Inum)
	fs.Unlock()
	return osi, 0
}

func (osi *Osinode_t) Readable() bool {
	return osi.readable
}

func (osi *Osinode_t) Writable() bool {
	return osi.writable
}

/// Read fills the user buffer from the current offset and advances it.
func (osi *Osinode_t) Read(ub *vm.Ubuf_t) int {
	osi.Lock()
	defer osi.Unlock()
	tot := 0
	for _, seg := range ub.Segs() {
		n := osi.ip.Read_at(osi.off, seg)
		osi.off += n
		tot += n
		if n < len(seg) {
			break
		}
	}
	return tot
}

/// Write consumes the user buffer at the current offset and advances
/// it.
func (osi *Osinode_t) Write(ub *vm.Ubuf_t) int {
	osi.Lock()
	defer osi.Unlock()
	tot := 0
	for _, seg := range ub.Segs() {
		n := osi.ip.Write_at(osi.off, seg)
		osi.off += n
		tot += n
		if n < len(seg) {
			break
		}
	}
	return tot
}

/// Stat fills st from the inode: device 0, the inode id, the type
/// mode, and the live link count.
func (osi *Osinode_t) Stat(st *defs.Stat_t) defs.Err_t {
	st.Dev = 0
	st.Ino = uint64(osi.ip.Inum)
	if osi.ip.Isdir() {
		st.Mode = defs.S_DIR
	} else {
		st.Mode = defs.S_FILE
	}
	st.Nlink = uint32(osi.ip.fs.Root_inode().Linkcnt(osi.ip.Inum))
	return 0
}

/// Reopen notes another descriptor referencing this open file.
func (osi *Osinode_t) Reopen() {
	osi.Lock()
	osi.refs++
	osi.Unlock()
	fs := osi.ip.fs
	fs.Lock()
	fs.open_ref(osi.ip.Inum)
	fs.Unlock()
}

/// Close drops one descriptor reference. When the last reference goes
/// and no directory entry names the inode anymore, the inode and its
/// blocks are freed.
func (osi *Osinode_t) Close() {
	osi.Lock()
	osi.refs--
	if osi.refs < 0 {
		panic("file over-closed")
	}
	osi.Unlock()
	fs := osi.ip.fs
	fs.Lock()
	left := fs.open_unref(osi.ip.Inum)
	if left == 0 && fs.Root_inode().linkcnt(osi.ip.Inum) == 0 {
		fs.free_inode(osi.ip.Inum)
	}
	fs.Unlock()
	Sync_all()
}
