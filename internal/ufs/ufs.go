package ufs

import "log"

import "github.com/rcore-go/kernel/internal/defs"
import "github.com/rcore-go/kernel/internal/fs"
import "github.com/rcore-go/kernel/internal/ustr"
import "github.com/rcore-go/kernel/internal/vm"

/// Ufs_t wraps a mounted filesystem and its backing disk.
type Ufs_t struct {
	disk *Filedisk_t
	fs   *fs.Fs_t
}

/// MkfsFS formats a fresh image at path and mounts it.
func MkfsFS(path string, nblocks, imapblocks int) *Ufs_t {
	u := &Ufs_t{}
	u.disk = MkDisk(path, nblocks)
	u.fs = fs.MkFS(u.disk, nblocks, imapblocks)
	fs.Mount(u.fs)
	return u
}

/// BootFS mounts the filesystem on an existing image.
func BootFS(path string) *Ufs_t {
	log.Printf("boot fs %v ...", path)
	u := &Ufs_t{}
	u.disk = OpenDisk(path)
	u.fs = fs.MountFS(u.disk)
	fs.Mount(u.fs)
	return u
}

/// Fs exposes the mounted filesystem.
func (u *Ufs_t) Fs() *fs.Fs_t {
	return u.fs
}

/// MkFile creates name and writes data into it.
func (u *Ufs_t) MkFile(name ustr.Ustr, data []uint8) defs.Err_t {
	osi, err := fs.Open_file(name, defs.O_CREAT|defs.O_RDWR)
	if err != 0 {
		return err
	}
	if len(data) > 0 {
		if osi.Write(vm.Mkfakeubuf(data)) != len(data) {
			osi.Close()
			return defs.EGENERIC
		}
	}
	osi.Close()
	return 0
}

/// Read returns the whole content of name.
func (u *Ufs_t) Read(name ustr.Ustr) ([]uint8, defs.Err_t) {
	ip := u.fs.Root_inode().Find(name)
	if ip == nil {
		return nil, defs.EGENERIC
	}
	osi, err := fs.Open_file(name, defs.O_RDONLY)
	if err != 0 {
		return nil, err
	}
	buf := make([]uint8, ip.Size())
	n := osi.Read(vm.Mkfakeubuf(buf))
	osi.Close()
	if n != len(buf) {
		return nil, defs.EGENERIC
	}
	return buf, 0
}

/// Ls lists the live names in the root directory.
func (u *Ufs_t) Ls() []ustr.Ustr {
	return u.fs.Root_inode().Ls()
}

/// Stat fills st for name.
func (u *Ufs_t) Stat(name ustr.Ustr, st *defs.Stat_t) defs.Err_t {
	osi, err := fs.Open_file(name, defs.O_RDONLY)
	if err != 0 {
		return err
	}
	ret := osi.Stat(st)
	osi.Close()
	return ret
}

/// Sync flushes the block cache to the image.
func (u *Ufs_t) Sync() {
	fs.Sync_all()
}

/// Shutdown unmounts: flush, drop the cache, close the image. A
/// following BootFS on the same path sees only what reached the disk.
func (u *Ufs_t) Shutdown() {
	fs.Sync_all()
	fs.Purge_cache()
	u.disk.Close()
}
