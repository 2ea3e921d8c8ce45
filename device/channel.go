// File: device/channel.go
// Author: momentics <momentics@gmail.com>
//
// Per-channel glue consumed by the trigger during arm, data-done and
// abort, plus the user-facing enable switch and control snapshot.

package device

import (
	"github.com/momentics/zio/api"
	"github.com/momentics/zio/control"
)

// Index returns the channel's position within its channel set.
func (ch *Channel) Index() int { return ch.idx }

// Buffer returns the channel's buffer instance.
func (ch *Channel) Buffer() api.BufferInstance { return ch.buf }

// CurrentControl returns the channel's continuation control. The
// trigger updates it in place each cycle; callers wanting a stable
// view use Snapshot.
func (ch *Channel) CurrentControl() *control.Control { return ch.cur }

// Snapshot returns a copy of the continuation control.
func (ch *Channel) Snapshot() control.Control { return *ch.cur }

// ActiveBlock returns the block currently staged for hardware.
func (ch *Channel) ActiveBlock() *api.Block {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.active
}

// SetActiveBlock installs or clears the staged block.
func (ch *Channel) SetActiveBlock(b *api.Block) {
	ch.mu.Lock()
	ch.active = b
	ch.mu.Unlock()
}

// Enabled reports whether the channel takes part in transfers.
func (ch *Channel) Enabled() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.enabled
}

// SetEnabled switches the channel in or out of the transfer set. A
// disabled channel keeps its queued blocks; the trigger simply skips
// it on the next cycle.
func (ch *Channel) SetEnabled(on bool) {
	ch.mu.Lock()
	ch.enabled = on
	ch.mu.Unlock()
}
