// File: buffer/buffer.go
// Author: momentics <momentics@gmail.com>
//
// Shared state and lock discipline of buffer instances.
//
// Every instance owns exactly one lock guarding its queue, counters and
// the pushing flag. The lock is held only for O(1) queue operations and
// is always released before the one call that may re-enter the protocol:
// the trigger push. Wakeups are likewise delivered outside the lock, so
// a woken party can acquire it without an extra context switch.

package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/stats"
)

// instance is the common core embedded by List and Arena.
type instance struct {
	mu      sync.Mutex
	dir     api.Direction
	chanIdx int
	owner   api.Handle

	// pushing is set only while a trigger push is in flight with the
	// lock released, and is always cleared before StoreBlock returns.
	// Retrieve observes it and declines to pop concurrently.
	pushing bool

	// nospace latches after a rejected allocation and clears on free.
	nospace bool

	trig api.TriggerLink

	rwake chan struct{} // reader wakeups, capacity 1
	wwake chan struct{} // writer wakeups, capacity 1

	log *zerolog.Logger
	reg *stats.Registry
	pfx string

	stores      atomic.Int64
	retrievals  atomic.Int64
	directPush  atomic.Int64
	pushBusy    atomic.Int64
	allocFailed atomic.Int64
}

func newInstance(o Options) instance {
	return instance{
		dir:     o.Direction,
		chanIdx: o.ChanIdx,
		owner:   o.Owner,
		rwake:   make(chan struct{}, 1),
		wwake:   make(chan struct{}, 1),
		log:     o.Logger,
		reg:     o.Metrics,
		pfx:     o.MetricsPrefix,
	}
}

// AttachTrigger links the instance to its trigger. Must be called
// before the first store; the device layer does this at channel setup.
func (in *instance) AttachTrigger(t api.TriggerLink) {
	in.mu.Lock()
	in.trig = t
	in.mu.Unlock()
}

// Direction reports the instance's data direction.
func (in *instance) Direction() api.Direction { return in.dir }

// ReadReady returns the reader wakeup channel.
func (in *instance) ReadReady() <-chan struct{} { return in.rwake }

// WriteReady returns the writer wakeup channel.
func (in *instance) WriteReady() <-chan struct{} { return in.wwake }

// tryPushLocked offers blk to the trigger's pending slot. Called with
// the lock held; the lock is released around the push because the
// trigger may consume the block synchronously and call back into
// retrieve or free on this very instance.
func (in *instance) tryPushLocked(blk *api.Block) bool {
	t := in.trig
	if t == nil || t.Disabled() {
		return false
	}
	in.pushing = true
	in.mu.Unlock()
	err := t.PushBlock(in.chanIdx, blk)
	in.mu.Lock()
	in.pushing = false
	if err != nil {
		in.pushBusy.Add(1)
		in.reg.Inc(in.pfx + ".push_busy")
		return false
	}
	in.directPush.Add(1)
	in.reg.Inc(in.pfx + ".direct_push")
	return true
}

// pullHint asks the trigger to produce fresh input soon. Called with
// the lock released, after retrieve found the queue empty.
func (in *instance) pullHint() {
	if in.dir != api.DirInput {
		return
	}
	t := in.trig
	if t == nil || t.Disabled() {
		return
	}
	if p, ok := t.(api.BlockPuller); ok {
		p.PullBlock(in.chanIdx)
	}
}

// wake delivers one edge-style wakeup without blocking. The channel
// has capacity 1, so a wakeup sent between a failed poll and the wait
// is retained rather than lost.
func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (in *instance) baseStats() api.BufferStats {
	return api.BufferStats{
		Stores:      in.stores.Load(),
		Retrievals:  in.retrievals.Load(),
		DirectPush:  in.directPush.Load(),
		PushBusy:    in.pushBusy.Load(),
		AllocFailed: in.allocFailed.Load(),
	}
}
