// File: buffer/arena.go
// Author: momentics <momentics@gmail.com>
//
// Arena-backed buffer instance: blocks are ranges inside one large
// mapped region managed by a first-fit allocator. Required when the
// channel must expose a contiguous mappable region to a consumer.
// Supports an optional merge policy that coalesces contiguous queued
// blocks, cutting queue entries and control overhead on dense input.

package buffer

import (
	"sync/atomic"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/control"
	"github.com/momentics/zio/internal/ffa"
)

// Arena is the arena-backed buffer instance.
type Arena struct {
	instance
	region    []byte
	fa        *ffa.FFA
	size      uint64
	allocSize uint64 // bytes currently allocated, under mu

	// queue as a slice: the merge policy needs tail access, which a
	// plain FIFO container does not offer
	q []*api.Block

	merge    bool
	mapCount atomic.Int32
}

var _ api.BufferInstance = (*Arena)(nil)

// NewArena creates an arena-backed instance with a mapped region of
// Options.MaxBytes bytes.
func NewArena(o Options) (*Arena, error) {
	o = o.withDefaults()
	region, err := mapRegion(o.MaxBytes)
	if err != nil {
		return nil, api.ErrNoMem
	}
	return &Arena{
		instance: newInstance(o),
		region:   region,
		fa:       ffa.New(0, uint64(o.MaxBytes)),
		size:     uint64(o.MaxBytes),
		merge:    o.MergeData,
	}, nil
}

// Region exposes the contiguous backing region for external mapping.
// Callers must bracket access with MapRef/MapUnref so a live mapping
// blocks resizing.
func (za *Arena) Region() []byte { return za.region }

// MapRef records one external mapping of the region.
func (za *Arena) MapRef() { za.mapCount.Add(1) }

// MapUnref drops one external mapping.
func (za *Arena) MapUnref() { za.mapCount.Add(-1) }

// AllocBlock carves a range out of the region. The byte budget is the
// region itself: the first-fit allocator rejecting the request is the
// admission control.
func (za *Arena) AllocBlock(datalen int) (*api.Block, error) {
	if datalen <= 0 {
		return nil, api.ErrInvalidState
	}
	off, ok := za.fa.Alloc(uint64(datalen))
	if !ok {
		za.mu.Lock()
		za.nospace = true
		za.mu.Unlock()
		za.allocFailed.Add(1)
		za.reg.Inc(za.pfx + ".alloc_failed")
		return nil, api.ErrNoSpace
	}

	blk := &api.Block{
		Data:  za.region[off : off+uint64(datalen)],
		Size:  datalen,
		Off:   off,
		Owner: za.owner,
	}
	ctrl := control.New()
	ctrl.MemOffset = uint32(off)
	_ = blk.SetCtrl(ctrl)

	za.mu.Lock()
	za.allocSize += uint64(datalen)
	za.mu.Unlock()
	return blk, nil
}

// FreeBlock returns the block's range to the allocator.
func (za *Arena) FreeBlock(blk *api.Block) error {
	if !blk.Retire() {
		za.log.Error().Int("chan", za.chanIdx).Uint64("off", blk.Off).Msg("double free of block")
		return api.ErrDoubleFree
	}
	if err := za.fa.FreeS(blk.Off, uint64(blk.Size)); err != nil {
		za.log.Error().Err(err).Int("chan", za.chanIdx).Msg("arena free")
		return api.ErrInvalidState
	}
	za.mu.Lock()
	za.allocSize -= uint64(blk.Size)
	za.nospace = false
	awake := za.dir == api.DirOutput
	za.mu.Unlock()
	if awake {
		wake(za.wwake)
	}
	return nil
}

// StoreBlock queues a filled block, or pushes it straight to the
// trigger when the queue was empty on an output channel. With the
// merge policy on, a block contiguous with the previous queued one is
// folded into it instead of occupying its own entry.
func (za *Arena) StoreBlock(blk *api.Block) error {
	ctrl := blk.Ctrl()
	if ctrl == nil {
		za.log.Error().Int("chan", za.chanIdx).Msg("store of block without control")
		return api.ErrInvalidState
	}
	ctrl.MemOffset = uint32(blk.Off)

	za.mu.Lock()
	first := len(za.q) == 0
	// append before any push, so a competing store that runs while the
	// push has the lock released still sees a non-empty queue
	za.q = append(za.q, blk)
	pushed := false
	awake := false
	if first {
		if za.dir == api.DirOutput {
			pushed = za.tryPushLocked(blk)
		} else {
			awake = true
		}
	}
	if pushed {
		za.removeLocked(blk)
	}
	if !first && za.merge {
		za.tryMergeLocked(blk)
	}
	za.mu.Unlock()

	if awake {
		wake(za.rwake)
	}
	za.stores.Add(1)
	za.reg.Inc(za.pfx + ".stores")
	za.log.Debug().Int("chan", za.chanIdx).Uint64("off", blk.Off).Bool("pushed", pushed).Msg("store")
	return nil
}

// tryMergeLocked folds blk into the previous queued block when their
// ranges touch. The merged block answers for the combined range on
// free; blk's control is discarded and its sample count summed into
// the survivor.
func (za *Arena) tryMergeLocked(blk *api.Block) {
	n := len(za.q)
	if n < 2 || za.q[n-1] != blk {
		return
	}
	prev := za.q[n-2]
	if prev.Off+uint64(prev.Size) != blk.Off {
		return // not contiguous
	}

	prev.Size += blk.Size
	prev.Data = za.region[prev.Off : prev.Off+uint64(prev.Size)]
	prev.Ctrl().NSamples += blk.Ctrl().NSamples
	za.q = za.q[:n-1]
	// the combined range is freed through prev; retire blk so a stray
	// free cannot double-count
	blk.Retire()
	za.reg.Inc(za.pfx + ".merged")
}

// RetrBlock pops the head block.
func (za *Arena) RetrBlock() *api.Block {
	za.mu.Lock()
	if za.pushing {
		za.mu.Unlock()
		return nil
	}
	if len(za.q) == 0 {
		za.mu.Unlock()
		za.pullHint()
		return nil
	}
	blk := za.q[0]
	za.q = za.q[1:]
	awake := za.dir == api.DirOutput
	za.mu.Unlock()

	if awake {
		wake(za.wwake)
	}
	za.retrievals.Add(1)
	za.reg.Inc(za.pfx + ".retrievals")
	return blk
}

func (za *Arena) removeLocked(blk *api.Block) {
	for i, b := range za.q {
		if b == blk {
			za.q = append(za.q[:i], za.q[i+1:]...)
			return
		}
	}
}

// Ready reports whether a block is queued.
func (za *Arena) Ready() bool {
	za.mu.Lock()
	defer za.mu.Unlock()
	return len(za.q) > 0
}

// Space reports whether any free range remains.
func (za *Arena) Space() bool {
	return za.fa.FreeBytes() > 0
}

// Resize swaps the region for one of newBytes bytes. Refused while the
// region is externally mapped or any block is outstanding: outstanding
// blocks alias the old region and would be left dangling.
func (za *Arena) Resize(newBytes int) error {
	if newBytes <= 0 {
		return api.ErrInvalidState
	}
	if za.mapCount.Load() > 0 {
		return api.ErrBusy
	}

	// flush whatever is queued
	for {
		blk := za.RetrBlock()
		if blk == nil {
			break
		}
		_ = za.FreeBlock(blk)
	}

	za.mu.Lock()
	if za.allocSize != 0 {
		za.mu.Unlock()
		return api.ErrBusy
	}
	region, err := mapRegion(newBytes)
	if err != nil {
		za.mu.Unlock()
		return api.ErrNoMem
	}
	old := za.region
	za.region = region
	za.fa = ffa.New(0, uint64(newBytes))
	za.size = uint64(newBytes)
	za.mu.Unlock()

	unmapRegion(old)
	wake(za.wwake)
	return nil
}

// Stats returns a snapshot of the exchange counters. Allocated is in
// bytes for arena instances.
func (za *Arena) Stats() api.BufferStats {
	s := za.baseStats()
	za.mu.Lock()
	s.Queued = int64(len(za.q))
	s.Allocated = int64(za.allocSize)
	za.mu.Unlock()
	return s
}

// Extents snapshots the allocator's cell map, for debug probes.
func (za *Arena) Extents() []ffa.Extent { return za.fa.Extents() }

// Destroy drains and frees every queued block and unmaps the region.
func (za *Arena) Destroy() {
	za.mu.Lock()
	drained := za.q
	za.q = nil
	region := za.region
	za.region = nil
	za.mu.Unlock()
	for _, blk := range drained {
		_ = za.FreeBlock(blk)
	}
	unmapRegion(region)
}
