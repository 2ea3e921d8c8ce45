// File: api/block.go
// Author: momentics <momentics@gmail.com>
//
// Block is the atomic transfer unit moved between triggers and buffers.
//
// A block is exclusively owned by one component at a time: the backing
// store until allocation completes, the buffer instance while queued,
// the trigger instance while in its single active slot, or the consumer
// while being copied out. Ownership moves only through the explicit
// Store/Retrieve/Push calls.

package api

import (
	"sync/atomic"

	"github.com/momentics/zio/control"
)

// Block carries payload bytes plus an attached Control record.
type Block struct {
	// Data is the payload view. For arena-backed blocks it aliases a
	// range of the instance's mapped region.
	Data []byte

	// UOff is the consumer progress offset into Data for partial
	// read/write calls.
	UOff int

	// Size is the allocated length. Data may be resliced while the
	// block travels, Size is what the backing store releases.
	Size int

	// Off is the byte offset inside the arena region. Zero and
	// meaningless for list-store blocks.
	Off uint64

	// Owner is the handle of the buffer instance the block was
	// allocated from.
	Owner Handle

	ctrl     *control.Control
	cdone    atomic.Bool
	released atomic.Bool
}

// Ctrl returns the attached control record, or nil before attachment.
func (b *Block) Ctrl() *control.Control {
	return b.ctrl
}

// SetCtrl attaches the control record. A control is attached exactly
// once, before the block becomes visible to any consumer; a second
// attachment is a contract violation.
func (b *Block) SetCtrl(c *control.Control) error {
	if b.ctrl != nil {
		return ErrInvalidState
	}
	b.ctrl = c
	return nil
}

// CDone reports whether the control has been consumed by a reader.
func (b *Block) CDone() bool { return b.cdone.Load() }

// MarkCDone records that the control was read. It is never cleared.
func (b *Block) MarkCDone() { b.cdone.Store(true) }

// Retire marks the block as freed. Only the first caller gets true;
// backing stores use this to reject double frees.
func (b *Block) Retire() bool {
	return b.released.CompareAndSwap(false, true)
}

// Retired reports whether the block has been freed.
func (b *Block) Retired() bool { return b.released.Load() }

// Remaining returns the unconsumed payload length.
func (b *Block) Remaining() int {
	if b.UOff >= len(b.Data) {
		return 0
	}
	return len(b.Data) - b.UOff
}
