// File: api/interfaces.go
// Author: momentics <momentics@gmail.com>
//
// Contracts between the three collaborators of the exchange protocol:
// buffer instances, trigger instances, and the per-channel glue that
// a device layer provides. Each side consumes the other only through
// these interfaces, selected at channel-configuration time.

package api

import "github.com/momentics/zio/control"

// BufferInstance is the per-channel bounded queue mediating between the
// producer and consumer sides. Implementations: the list store and the
// arena store. All methods are safe for concurrent use.
type BufferInstance interface {
	// AllocBlock reserves capacity and returns a fresh block with an
	// attached control. This is the sole admission-control point:
	// ErrNoSpace once the item count or byte budget is at maximum,
	// ErrNoMem if the underlying allocator fails.
	AllocBlock(datalen int) (*Block, error)

	// FreeBlock releases the block's memory and control and returns
	// its capacity. Freeing a block twice yields ErrDoubleFree.
	FreeBlock(b *Block) error

	// StoreBlock hands a filled block to the instance: called by the
	// trigger for input, by a writer for output. The block either goes
	// to the queue tail or, output direction from an empty queue,
	// straight into the trigger's pending slot.
	StoreBlock(b *Block) error

	// RetrBlock pops the head block, or returns nil when the queue is
	// empty or a push is in flight. On an empty input queue it emits a
	// pull hint to the trigger before returning.
	RetrBlock() *Block

	// Direction reports the instance's data direction.
	Direction() Direction

	// ReadReady returns the channel signalled when a blocked reader
	// should retry. The signal is edge-style: receivers loop.
	ReadReady() <-chan struct{}

	// WriteReady returns the channel signalled when capacity was
	// returned and a blocked writer should retry.
	WriteReady() <-chan struct{}

	// Ready reports queue occupancy for poll-style checks.
	Ready() bool

	// Space reports whether an allocation would currently succeed.
	Space() bool

	// Stats returns a snapshot of the exchange counters.
	Stats() BufferStats

	// Destroy drains and frees every queued block. The instance must
	// not be used afterwards.
	Destroy()
}

// TriggerLink is what a buffer instance consumes from its trigger.
type TriggerLink interface {
	// PushBlock offers a block for the trigger's single pending slot
	// on the given channel. ErrBusy when the slot is occupied.
	PushBlock(chanIdx int, b *Block) error

	// Disabled reports whether the trigger is disabled. A disabled
	// trigger receives neither pushes nor pull hints.
	Disabled() bool
}

// BlockPuller is the optional pull capability of a trigger: a
// fire-and-forget hint that fresh input data should be produced soon.
type BlockPuller interface {
	PullBlock(chanIdx int)
}

// ChannelLink is the per-channel view a trigger instance drives during
// arm, data-done and abort. The device layer implements it.
type ChannelLink interface {
	// Buffer returns the channel's buffer instance.
	Buffer() BufferInstance

	// CurrentControl returns the channel's continuation control: the
	// record whose sequence number and metadata carry over from block
	// to block.
	CurrentControl() *control.Control

	// ActiveBlock is the single slot for the block being managed by
	// hardware; nil when no transfer is staged.
	ActiveBlock() *Block

	// SetActiveBlock installs or clears the active slot.
	SetActiveBlock(b *Block)

	// Enabled reports whether the channel takes part in transfers.
	Enabled() bool

	// Index is the channel's position within its channel set.
	Index() int
}
