// File: buffer/list.go
// Author: momentics <momentics@gmail.com>
//
// List-backed buffer instance: one discrete allocation per block,
// tracked in a FIFO queue. The default store for channels that do not
// need a contiguous mappable region.

package buffer

import (
	"github.com/eapache/queue"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/control"
)

// List is the list-backed buffer instance.
type List struct {
	instance
	q      *queue.Queue
	maxLen int
	nitem  int // outstanding allocated blocks, queued or not
}

var _ api.BufferInstance = (*List)(nil)

// NewList creates a list-backed instance.
func NewList(o Options) *List {
	o = o.withDefaults()
	return &List{
		instance: newInstance(o),
		q:        queue.New(),
		maxLen:   o.MaxLen,
	}
}

// AllocBlock reserves one slot and returns a fresh block with an
// attached control. This is the sole admission-control point: the
// outstanding-block count never exceeds the configured maximum.
func (zb *List) AllocBlock(datalen int) (*api.Block, error) {
	zb.mu.Lock()
	if zb.nitem >= zb.maxLen {
		zb.nospace = true
		zb.mu.Unlock()
		zb.allocFailed.Add(1)
		zb.reg.Inc(zb.pfx + ".alloc_failed")
		return nil, api.ErrNoSpace
	}
	zb.nitem++
	zb.mu.Unlock()

	blk := &api.Block{
		Data:  make([]byte, datalen),
		Size:  datalen,
		Owner: zb.owner,
	}
	// control remains empty of metadata until data-done or write time
	_ = blk.SetCtrl(control.New())
	return blk, nil
}

// FreeBlock releases the block and returns its slot. The instance lock
// is never held across a trigger push, so this is safe to call from
// inside a push callback; the pushing flag only guards the queue.
func (zb *List) FreeBlock(blk *api.Block) error {
	if !blk.Retire() {
		zb.log.Error().Int("chan", zb.chanIdx).Msg("double free of block")
		return api.ErrDoubleFree
	}
	zb.mu.Lock()
	zb.nitem--
	zb.nospace = false
	awake := zb.dir == api.DirOutput && zb.nitem < zb.maxLen
	zb.mu.Unlock()
	if awake {
		wake(zb.wwake)
	}
	return nil
}

// StoreBlock hands a filled block to the instance: called by the
// trigger for input, by a writer for output.
func (zb *List) StoreBlock(blk *api.Block) error {
	if blk.Ctrl() == nil {
		zb.log.Error().Int("chan", zb.chanIdx).Msg("store of block without control")
		return api.ErrInvalidState
	}

	zb.mu.Lock()
	wasEmpty := zb.q.Length() == 0
	pushed := false
	awake := false
	if wasEmpty {
		if zb.dir == api.DirOutput {
			pushed = zb.tryPushLocked(blk)
		} else {
			awake = true
		}
	}
	if !pushed {
		zb.q.Add(blk)
	}
	zb.mu.Unlock()

	// first input block: wake a waiting reader, outside the lock
	if awake {
		wake(zb.rwake)
	}
	zb.stores.Add(1)
	zb.reg.Inc(zb.pfx + ".stores")
	zb.log.Debug().Int("chan", zb.chanIdx).Bool("pushed", pushed).Msg("store")
	return nil
}

// RetrBlock pops the head block: called by a reader for input, by the
// trigger for output.
func (zb *List) RetrBlock() *api.Block {
	zb.mu.Lock()
	// pushing is only active temporarily while the push call runs
	// outside the lock; retrying now would race with it
	if zb.pushing {
		zb.mu.Unlock()
		return nil
	}
	if zb.q.Length() == 0 {
		zb.mu.Unlock()
		// no data queued; we may pull to have data soon
		zb.pullHint()
		return nil
	}
	blk := zb.q.Remove().(*api.Block)
	awake := zb.dir == api.DirOutput
	zb.mu.Unlock()

	if awake {
		wake(zb.wwake)
	}
	zb.retrievals.Add(1)
	zb.reg.Inc(zb.pfx + ".retrievals")
	return blk
}

// Ready reports whether a block is queued.
func (zb *List) Ready() bool {
	zb.mu.Lock()
	defer zb.mu.Unlock()
	return zb.q.Length() > 0
}

// Space reports whether an allocation would currently succeed.
func (zb *List) Space() bool {
	zb.mu.Lock()
	defer zb.mu.Unlock()
	return zb.nitem < zb.maxLen
}

// SetMaxLen updates the block budget at runtime. Growing the budget
// wakes writers that may be waiting for space.
func (zb *List) SetMaxLen(n int) {
	if n <= 0 {
		return
	}
	zb.mu.Lock()
	zb.maxLen = n
	zb.nospace = false
	zb.mu.Unlock()
	wake(zb.wwake)
}

// Stats returns a snapshot of the exchange counters.
func (zb *List) Stats() api.BufferStats {
	s := zb.baseStats()
	zb.mu.Lock()
	s.Queued = int64(zb.q.Length())
	s.Allocated = int64(zb.nitem)
	zb.mu.Unlock()
	return s
}

// Destroy drains and frees every queued block.
func (zb *List) Destroy() {
	zb.mu.Lock()
	var drained []*api.Block
	for zb.q.Length() > 0 {
		drained = append(drained, zb.q.Remove().(*api.Block))
	}
	zb.mu.Unlock()
	for _, blk := range drained {
		_ = zb.FreeBlock(blk)
	}
}
