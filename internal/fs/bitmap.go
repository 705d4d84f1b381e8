package fs

import "github.com/rcore-go/kernel/internal/util"

const bits_per_block = BSIZE * 8
const words_per_block = BSIZE / 8

/// Bitmap_t is an allocation bitmap over a run of disk blocks. Bit set
/// means allocated. Bits are numbered from the start of the bitmap;
/// the caller maps them onto inode ids or data block ids.
type Bitmap_t struct {
	start   int
	nblocks int
}

/// MkBitmap covers nblocks blocks starting at disk block start.
func MkBitmap(start, nblocks int) Bitmap_t {
	return Bitmap_t{start: start, nblocks: nblocks}
}

/// Alloc finds, sets, and returns the first clear bit. False when the
/// bitmap is full.
func (bm *Bitmap_t) Alloc(dev Bdev_i) (int, bool) {
	for b := 0; b < bm.nblocks; b++ {
		found := -1
		With_modify(bm.start+b, dev, 0, BSIZE, func(d []uint8) {
			for w := 0; w < words_per_block; w++ {
				word := uint64(util.Readn(d, 8, w*8))
				if word == ^uint64(0) {
					continue
				}
				for bit := 0; bit < 64; bit++ {
					if word&(1<<uint(bit)) == 0 {
						util.Writen(d, 8, w*8, int(word|1<<uint(bit)))
						found = b*bits_per_block + w*64 + bit
						return
					}
				}
			}
		})
		if found >= 0 {
			return found, true
		}
	}
	return 0, false
}

/// Dealloc clears bit n. Clearing a clear bit is a double free and
/// panics.
func (bm *Bitmap_t) Dealloc(dev Bdev_i, n int) {
	b := n / bits_per_block
	w := (n % bits_per_block) / 64
	bit := uint(n % 64)
	if b >= bm.nblocks {
		panic("bit out of range")
	}
	With_modify(bm.start+b, dev, 0, BSIZE, func(d []uint8) {
		word := uint64(util.Readn(d, 8, w*8))
		if word&(1<<bit) == 0 {
			panic("double free of bitmap bit")
		}
		util.Writen(d, 8, w*8, int(word&^(1<<bit)))
	})
}

/// Cap returns the number of bits the bitmap covers.
func (bm *Bitmap_t) Cap() int {
	return bm.nblocks * bits_per_block
}
