package fs

import "github.com/rcore-go/kernel/internal/ustr"
import "github.com/rcore-go/kernel/internal/util"

/// FS_MAGIC identifies a valid superblock.
const FS_MAGIC = 0x3b800001

/// NDIRECT is the number of direct block slots in an inode.
const NDIRECT = 28

/// NINDIRECT is the number of block ids one indirect block holds.
const NINDIRECT = BSIZE / 4

/// INODE_SZ is the on-disk inode record size.
const INODE_SZ = 128

/// INODES_PER_BLOCK inodes fit in one block.
const INODES_PER_BLOCK = BSIZE / INODE_SZ

/// DIRENT_SZ is the fixed directory entry size.
const DIRENT_SZ = 32

/// NAME_MAX is the longest file name a directory entry stores.
const NAME_MAX = 27

// 4-byte little-endian field accessors over raw block bytes.
func fieldr(d []uint8, n int) int {
	return util.Readn(d, 4, n*4)
}

func fieldw(d []uint8, n int, v int) {
	util.Writen(d, 4, n*4, v)
}

/// Superblock_t views the first disk block. Fields, in order: magic,
/// total blocks, inode bitmap blocks, inode area blocks, data bitmap
/// blocks, data area blocks.
type Superblock_t struct {
	Data []uint8
}

func (sb *Superblock_t) Magic() int        { return fieldr(sb.Data, 0) }
func (sb *Superblock_t) Total() int        { return fieldr(sb.Data, 1) }
func (sb *Superblock_t) Imapblocks() int   { return fieldr(sb.Data, 2) }
func (sb *Superblock_t) Iareablocks() int  { return fieldr(sb.Data, 3) }
func (sb *Superblock_t) Dmapblocks() int   { return fieldr(sb.Data, 4) }
func (sb *Superblock_t) Dareablocks() int  { return fieldr(sb.Data, 5) }

/// Valid reports whether the magic number checks out.
func (sb *Superblock_t) Valid() bool {
	return sb.Magic() == FS_MAGIC
}

/// Init writes the layout into a fresh superblock.
func (sb *Superblock_t) Init(total, imap, iarea, dmap, darea int) {
	fieldw(sb.Data, 0, FS_MAGIC)
	fieldw(sb.Data, 1, total)
	fieldw(sb.Data, 2, imap)
	fieldw(sb.Data, 3, iarea)
	fieldw(sb.Data, 4, dmap)
	fieldw(sb.Data, 5, darea)
}

/// Itype_t is the inode type tag.
type Itype_t int

const (
	I_FILE Itype_t = 0
	I_DIR  Itype_t = 1
)

// Byte offsets inside the 128-byte inode record: size, NDIRECT direct
// slots, one singly indirect slot, one doubly indirect slot, type.
const (
	ioff_size  = 0
	ioff_direct = 4
	ioff_ind1  = ioff_direct + 4*NDIRECT
	ioff_ind2  = ioff_ind1 + 4
	ioff_type  = ioff_ind2 + 4
)

/// Dinode_t views one on-disk inode record inside a cached block.
type Dinode_t struct {
	Raw []uint8
}

func (di *Dinode_t) Size() int         { return util.Readn(di.Raw, 4, ioff_size) }
func (di *Dinode_t) W_size(v int)      { util.Writen(di.Raw, 4, ioff_size, v) }
func (di *Dinode_t) Direct(i int) int  { return util.Readn(di.Raw, 4, ioff_direct+4*i) }
func (di *Dinode_t) W_direct(i, v int) { util.Writen(di.Raw, 4, ioff_direct+4*i, v) }
func (di *Dinode_t) Ind1() int         { return util.Readn(di.Raw, 4, ioff_ind1) }
func (di *Dinode_t) W_ind1(v int)      { util.Writen(di.Raw, 4, ioff_ind1, v) }
func (di *Dinode_t) Ind2() int         { return util.Readn(di.Raw, 4, ioff_ind2) }
func (di *Dinode_t) W_ind2(v int)      { util.Writen(di.Raw, 4, ioff_ind2, v) }
func (di *Dinode_t) Typ() Itype_t      { return Itype_t(util.Readn(di.Raw, 4, ioff_type)) }
func (di *Dinode_t) W_typ(t Itype_t)   { util.Writen(di.Raw, 4, ioff_type, int(t)) }

/// Isdir reports whether the inode is a directory.
func (di *Dinode_t) Isdir() bool {
	return di.Typ() == I_DIR
}

/// Init zeroes the record and sets its type.
func (di *Dinode_t) Init(t Itype_t) {
	for i := range di.Raw {
		di.Raw[i] = 0
	}
	di.W_typ(t)
}

// number of data blocks holding sz bytes.
func datablocks(sz int) int {
	return util.Ceildiv(sz, BSIZE)
}

// total blocks backing sz bytes: data blocks plus whatever indirect
// blocks the block map needs.
func totalblocks(sz int) int {
	data := datablocks(sz)
	tot := data
	if data > NDIRECT {
		// the singly indirect block
		tot++
	}
	if data > NDIRECT+NINDIRECT {
		// the doubly indirect block plus its second-level tables
		tot++
		tot += util.Ceildiv(data-NDIRECT-NINDIRECT, NINDIRECT)
	}
	return tot
}

/// Blocks_needed returns how many fresh blocks growing to newsz takes.
func (di *Dinode_t) Blocks_needed(newsz int) int {
	if newsz < di.Size() {
		panic("shrink via Blocks_needed")
	}
	return totalblocks(newsz) - totalblocks(di.Size())
}

// the absolute disk block holding inner block i of this inode.
func (di *Dinode_t) blockid(i int, dev Bdev_i) int {
	if i < NDIRECT {
		return di.Direct(i)
	}
	i -= NDIRECT
	if i < NINDIRECT {
		var ret int
		With_read(di.Ind1(), dev, 0, BSIZE, func(tbl []uint8) {
			ret = fieldr(tbl, i)
		})
		return ret
	}
	i -= NINDIRECT
	var l2 int
	With_read(di.Ind2(), dev, 0, BSIZE, func(tbl []uint8) {
		l2 = fieldr(tbl, i/NINDIRECT)
	})
	var ret int
	With_read(l2, dev, 0, BSIZE, func(tbl []uint8) {
		ret = fieldr(tbl, i%NINDIRECT)
	})
	return ret
}

/// Increase_size grows the inode to newsz, wiring the supplied fresh
/// blocks into the block map. blks must hold exactly Blocks_needed
/// blocks; data blocks and indirect table blocks come off the same
/// list.
func (di *Dinode_t) Increase_size(newsz int, blks []int, dev Bdev_i) {
	if newsz < di.Size() {
		panic("size shrunk")
	}
	cur := datablocks(di.Size())
	want := datablocks(newsz)
	di.W_size(newsz)
	next := func() int {
		if len(blks) == 0 {
			panic("not enough fresh blocks")
		}
		b := blks[0]
		blks = blks[1:]
		return b
	}
	for cur < want {
		if cur < NDIRECT {
			di.W_direct(cur, next())
			cur++
			continue
		}
		if cur == NDIRECT {
			di.W_ind1(next())
		}
		if cur < NDIRECT+NINDIRECT {
			j := cur - NDIRECT
			With_modify(di.Ind1(), dev, 0, BSIZE, func(tbl []uint8) {
				fieldw(tbl, j, next())
			})
			cur++
			continue
		}
		if cur == NDIRECT+NINDIRECT {
			di.W_ind2(next())
		}
		j := cur - NDIRECT - NINDIRECT
		if j%NINDIRECT == 0 {
			With_modify(di.Ind2(), dev, 0, BSIZE, func(tbl []uint8) {
				fieldw(tbl, j/NINDIRECT, next())
			})
		}
		var l2 int
		With_read(di.Ind2(), dev, 0, BSIZE, func(tbl []uint8) {
			l2 = fieldr(tbl, j/NINDIRECT)
		})
		With_modify(l2, dev, 0, BSIZE, func(tbl []uint8) {
			fieldw(tbl, j%NINDIRECT, next())
		})
		cur++
	}
	if len(blks) != 0 {
		panic("leftover fresh blocks")
	}
}

/// Clear_size resets the inode to empty and returns every block it
/// owned, data and indirect alike, for the caller to free.
func (di *Dinode_t) Clear_size(dev Bdev_i) []int {
	var ret []int
	data := datablocks(di.Size())
	for i := 0; i < data && i < NDIRECT; i++ {
		ret = append(ret, di.Direct(i))
		di.W_direct(i, 0)
	}
	if data > NDIRECT {
		n := util.Min(data-NDIRECT, NINDIRECT)
		With_read(di.Ind1(), dev, 0, BSIZE, func(tbl []uint8) {
			for i := 0; i < n; i++ {
				ret = append(ret, fieldr(tbl, i))
			}
		})
		ret = append(ret, di.Ind1())
		di.W_ind1(0)
	}
	if data > NDIRECT+NINDIRECT {
		rest := data - NDIRECT - NINDIRECT
		ntbl := util.Ceildiv(rest, NINDIRECT)
		var l2s []int
		With_read(di.Ind2(), dev, 0, BSIZE, func(tbl []uint8) {
			for i := 0; i < ntbl; i++ {
				l2s = append(l2s, fieldr(tbl, i))
			}
		})
		for ti, l2 := range l2s {
			n := util.Min(rest-ti*NINDIRECT, NINDIRECT)
			With_read(l2, dev, 0, BSIZE, func(tbl []uint8) {
				for i := 0; i < n; i++ {
					ret = append(ret, fieldr(tbl, i))
				}
			})
			ret = append(ret, l2)
		}
		ret = append(ret, di.Ind2())
		di.W_ind2(0)
	}
	di.W_size(0)
	return ret
}

/// Read_at copies up to len(buf) bytes starting at byte offset off
/// into buf and returns the count, bounded by the inode's size.
func (di *Dinode_t) Read_at(off int, buf []uint8, dev Bdev_i) int {
	end := util.Min(off+len(buf), di.Size())
	if off >= end {
		return 0
	}
	done := 0
	for off+done < end {
		pos := off + done
		inner := pos / BSIZE
		boff := pos % BSIZE
		n := util.Min(BSIZE-boff, end-pos)
		With_read(di.blockid(inner, dev), dev, 0, BSIZE, func(b []uint8) {
			copy(buf[done:done+n], b[boff:boff+n])
		})
		done += n
	}
	return done
}

/// Write_at copies buf into the inode starting at off. The inode's
/// size must already cover the range; Inode_t grows it first.
func (di *Dinode_t) Write_at(off int, buf []uint8, dev Bdev_i) int {
	end := off + len(buf)
	if end > di.Size() {
		panic("write past inode size")
	}
	done := 0
	for off+done < end {
		pos := off + done
		inner := pos / BSIZE
		boff := pos % BSIZE
		n := util.Min(BSIZE-boff, end-pos)
		With_modify(di.blockid(inner, dev), dev, 0, BSIZE, func(b []uint8) {
			copy(b[boff:boff+n], buf[done:done+n])
		})
		done += n
	}
	return done
}

/// Dirent_t views one 32-byte directory entry: a NUL-padded name and a
/// 4-byte inode id. Id zero is a tombstone left by unlink.
type Dirent_t struct {
	Raw []uint8
}

/// Name returns the entry's name, truncated at the first NUL.
func (de *Dirent_t) Name() ustr.Ustr {
	return ustr.MkUstrSlice(de.Raw[:NAME_MAX])
}

/// Inum returns the entry's inode id. The id field sits at byte 27, so
/// it is assembled bytewise rather than through an aligned load.
func (de *Dirent_t) Inum() int {
	r := de.Raw[NAME_MAX : NAME_MAX+4]
	return int(r[0]) | int(r[1])<<8 | int(r[2])<<16 | int(r[3])<<24
}

/// W_entry fills the entry with a name and inode id.
func (de *Dirent_t) W_entry(name ustr.Ustr, inum int) {
	if len(name) > NAME_MAX {
		panic("name too long")
	}
	for i := 0; i < NAME_MAX; i++ {
		if i < len(name) {
			de.Raw[i] = name[i]
		} else {
			de.Raw[i] = 0
		}
	}
	de.w_inum(inum)
}

func (de *Dirent_t) w_inum(inum int) {
	r := de.Raw[NAME_MAX : NAME_MAX+4]
	r[0] = uint8(inum)
	r[1] = uint8(inum >> 8)
	r[2] = uint8(inum >> 16)
	r[3] = uint8(inum >> 24)
}

/// W_tombstone zeroes the entry's inode id, leaving a hole.
func (de *Dirent_t) W_tombstone() {
	de.w_inum(0)
}
