package fs

import "container/list"
import "sync"

/// BCACHE_SLOTS is the fixed capacity of the block cache.
const BCACHE_SLOTS = 16

/// Bdev_block_t is one cached disk block: the buffer, its identity on
/// its device, and the dirty flag write-back honors. Callers hold a
/// reference between Get and Relse; a referenced slot is never evicted.
type Bdev_block_t struct {
	sync.Mutex
	Block  int
	dev    Bdev_i
	data   [BSIZE]uint8
	dirty  bool
	refcnt int
}

/// Read calls f over sz bytes of the block starting at off.
func (blk *Bdev_block_t) Read(off, sz int, f func([]uint8)) {
	blk.Lock()
	f(blk.data[off : off+sz])
	blk.Unlock()
}

/// Modify calls f over sz bytes of the block starting at off and marks
/// the block dirty.
func (blk *Bdev_block_t) Modify(off, sz int, f func([]uint8)) {
	blk.Lock()
	blk.dirty = true
	f(blk.data[off : off+sz])
	blk.Unlock()
}

/// Sync writes the block back if dirty.
func (blk *Bdev_block_t) Sync() {
	blk.Lock()
	if blk.dirty {
		blk.dev.Write_block(blk.Block, blk.data[:])
		blk.dirty = false
	}
	blk.Unlock()
}

/// Bcache_t is the fixed-capacity cache. Slots sit on an LRU list,
/// most recently referenced at the back; eviction takes the
/// least-recently referenced slot nobody holds.
type Bcache_t struct {
	sync.Mutex
	lru *list.List
	cap int
}

/// MkBcache creates an empty cache with the given slot count.
func MkBcache(slots int) *Bcache_t {
	return &Bcache_t{lru: list.New(), cap: slots}
}

/// Get returns a referenced handle on the slot caching (blockid, dev),
/// loading the block on a miss. At most one slot exists per
/// (device, block) at any time. Pair with Relse.
func (bc *Bcache_t) Get(blockid int, dev Bdev_i) *Bdev_block_t {
	bc.Lock()
	defer bc.Unlock()
	for e := bc.lru.Front(); e != nil; e = e.Next() {
		blk := e.Value.(*Bdev_block_t)
		if blk.Block == blockid && blk.dev == dev {
			blk.refcnt++
			bc.lru.MoveToBack(e)
			return blk
		}
	}
	var blk *Bdev_block_t
	if bc.lru.Len() < bc.cap {
		blk = &Bdev_block_t{}
	} else {
		var victim *list.Element
		for e := bc.lru.Front(); e != nil; e = e.Next() {
			if e.Value.(*Bdev_block_t).refcnt == 0 {
				victim = e
				break
			}
		}
		if victim == nil {
			panic("block cache exhausted")
		}
		blk = victim.Value.(*Bdev_block_t)
		bc.lru.Remove(victim)
		if blk.dirty {
			blk.dev.Write_block(blk.Block, blk.data[:])
			blk.dirty = false
		}
	}
	blk.Block = blockid
	blk.dev = dev
	blk.refcnt = 1
	dev.Read_block(blockid, blk.data[:])
	bc.lru.PushBack(blk)
	return blk
}

/// Relse drops a reference taken by Get.
func (bc *Bcache_t) Relse(blk *Bdev_block_t) {
	bc.Lock()
	blk.refcnt--
	if blk.refcnt < 0 {
		panic("block over-released")
	}
	bc.Unlock()
}

/// Sync_all writes back every dirty slot.
func (bc *Bcache_t) Sync_all() {
	bc.Lock()
	for e := bc.lru.Front(); e != nil; e = e.Next() {
		e.Value.(*Bdev_block_t).Sync()
	}
	bc.Unlock()
}

/// Purge writes back and drops every slot. All references must be
/// gone; used when a device is unmounted.
func (bc *Bcache_t) Purge() {
	bc.Lock()
	for e := bc.lru.Front(); e != nil; e = e.Next() {
		blk := e.Value.(*Bdev_block_t)
		if blk.refcnt != 0 {
			panic("purge with live reference")
		}
		blk.Sync()
	}
	bc.lru.Init()
	bc.Unlock()
}

var bcache = MkBcache(BCACHE_SLOTS)

/// Get_block takes a reference on the cached block via the global
/// cache.
func Get_block(blockid int, dev Bdev_i) *Bdev_block_t {
	return bcache.Get(blockid, dev)
}

/// Relse_block drops a reference taken by Get_block.
func Relse_block(blk *Bdev_block_t) {
	bcache.Relse(blk)
}

/// Sync_all flushes the global cache.
func Sync_all() {
	bcache.Sync_all()
}

/// Purge_cache flushes and empties the global cache, for unmount and
/// for tests that restart the world.
func Purge_cache() {
	bcache.Purge()
}

/// With_read runs f over sz bytes at off of the cached block, holding
/// a reference for the duration of the call.
func With_read(blockid int, dev Bdev_i, off, sz int, f func([]uint8)) {
	blk := Get_block(blockid, dev)
	blk.Read(off, sz, f)
	Relse_block(blk)
}

/// With_modify is With_read for mutation; the block is marked dirty.
func With_modify(blockid int, dev Bdev_i, off, sz int, f func([]uint8)) {
	blk := Get_block(blockid, dev)
	blk.Modify(off, sz, f)
	Relse_block(blk)
}
