// File: trigger/trigger_test.go
// Author: momentics <momentics@gmail.com>

package trigger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/buffer"
	"github.com/momentics/zio/control"
)

// testChan is a minimal channel link backed by a real list buffer.
type testChan struct {
	mu      sync.Mutex
	idx     int
	enabled bool
	cur     *control.Control
	buf     api.BufferInstance
	active  *api.Block
}

func newTestChan(t *testing.T, dir api.Direction, ssize uint16, maxLen int) *testChan {
	t.Helper()
	cur := control.New()
	cur.SSize = ssize
	return &testChan{
		idx:     0,
		enabled: true,
		cur:     cur,
		buf:     buffer.NewList(buffer.Options{Direction: dir, MaxLen: maxLen}),
	}
}

func (c *testChan) Buffer() api.BufferInstance       { return c.buf }
func (c *testChan) CurrentControl() *control.Control { return c.cur }
func (c *testChan) Enabled() bool                    { return c.enabled }
func (c *testChan) Index() int                       { return c.idx }

func (c *testChan) ActiveBlock() *api.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *testChan) SetActiveBlock(b *api.Block) {
	c.mu.Lock()
	c.active = b
	c.mu.Unlock()
}

func wire(ti *Instance, chans ...*testChan) {
	links := make([]api.ChannelLink, len(chans))
	for i, c := range chans {
		links[i] = c
		if at, ok := c.buf.(interface{ AttachTrigger(api.TriggerLink) }); ok {
			at.AttachTrigger(ti)
		}
	}
	ti.AttachChannels(links)
}

func TestInputFireStoresStampedBlock(t *testing.T) {
	ch := newTestChan(t, api.DirInput, 2, 8)
	ti := New(Options{
		Direction: api.DirInput,
		NSamples:  4,
		RawIO: func(chans []api.ChannelLink) error {
			blk := chans[0].(*testChan).ActiveBlock()
			for i := range blk.Data {
				blk.Data[i] = byte(i)
			}
			return nil
		},
	})
	wire(ti, ch)

	ti.Fire()

	blk := ch.buf.RetrBlock()
	require.NotNil(t, blk)
	assert.Equal(t, 8, blk.Size) // ssize * nsamples
	assert.EqualValues(t, 1, blk.Ctrl().SeqNum)
	assert.EqualValues(t, 4, blk.Ctrl().NSamples)
	assert.NotZero(t, blk.Ctrl().Tstamp.Secs)
	assert.Equal(t, byte(7), blk.Data[7])
	assert.Nil(t, ch.ActiveBlock())

	// sequence numbers keep climbing across cycles
	ti.Fire()
	next := ch.buf.RetrBlock()
	require.NotNil(t, next)
	assert.EqualValues(t, 2, next.Ctrl().SeqNum)
}

func TestInputAllocFailureRaisesLostBlockAlarm(t *testing.T) {
	ch := newTestChan(t, api.DirInput, 2, 1)
	ti := New(Options{Direction: api.DirInput, NSamples: 4})
	wire(ti, ch)

	// exhaust the only slot so the arm-time allocation fails
	_, err := ch.buf.AllocBlock(8)
	require.NoError(t, err)

	ti.Fire()

	assert.NotZero(t, ch.cur.Alarms&control.AlarmLostBlock)
	assert.EqualValues(t, 1, ch.cur.SeqNum, "the cycle still counts")
	assert.Equal(t, StateArmed, ti.Status())
}

func TestOutputDataDoneFreesAndPrestages(t *testing.T) {
	ch := newTestChan(t, api.DirOutput, 2, 8)
	var served []*api.Block
	ti := New(Options{
		Direction: api.DirOutput,
		RawIO: func(chans []api.ChannelLink) error {
			served = append(served, chans[0].(*testChan).ActiveBlock())
			return api.ErrDeferred
		},
	})
	wire(ti, ch)

	first, _ := ch.buf.AllocBlock(8)
	require.NoError(t, ch.buf.StoreBlock(first)) // direct push into the slot
	second, _ := ch.buf.AllocBlock(8)
	require.NoError(t, ch.buf.StoreBlock(second)) // slot busy, queued

	require.Same(t, first, ch.ActiveBlock())

	ti.Fire()
	require.Equal(t, StateFiring, ti.Status())
	require.Len(t, served, 1)
	assert.Same(t, first, served[0])

	// the device finished sending first
	assert.False(t, ti.DataDone())

	// first was consumed, second pre-staged for the next fire
	assert.True(t, first.Retired())
	assert.Same(t, second, ch.ActiveBlock())
	assert.False(t, ch.buf.Ready())
	assert.Equal(t, StateArmed, ti.Status())
}

func TestFireWhileFiringIsIgnored(t *testing.T) {
	ch := newTestChan(t, api.DirInput, 2, 8)
	calls := 0
	ti := New(Options{
		Direction: api.DirInput,
		NSamples:  2,
		RawIO: func([]api.ChannelLink) error {
			calls++
			return api.ErrDeferred
		},
	})
	wire(ti, ch)

	ti.Fire()
	ti.Fire() // pending cycle: must be a no-op
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateFiring, ti.Status())

	ti.Complete()
	assert.Equal(t, StateArmed, ti.Status())
}

func TestAbortDiscardsActiveBlocks(t *testing.T) {
	ch := newTestChan(t, api.DirInput, 2, 8)
	ti := New(Options{
		Direction: api.DirInput,
		NSamples:  2,
		RawIO:     func([]api.ChannelLink) error { return api.ErrDeferred },
	})
	wire(ti, ch)

	ti.Fire()
	require.NotNil(t, ch.ActiveBlock())

	ti.Abort(false)
	assert.Nil(t, ch.ActiveBlock())
	assert.False(t, ch.buf.Ready(), "discarded, not stored")
	assert.Equal(t, StateArmed, ti.Status())
	assert.EqualValues(t, 0, ch.buf.Stats().Allocated)
}

func TestAbortSalvagesPartialData(t *testing.T) {
	ch := newTestChan(t, api.DirInput, 2, 8)
	ti := New(Options{
		Direction:      api.DirInput,
		NSamples:       2,
		SalvageOnAbort: true,
		RawIO:          func([]api.ChannelLink) error { return api.ErrDeferred },
	})
	wire(ti, ch)

	ti.Fire()
	ti.Abort(true)

	blk := ch.buf.RetrBlock()
	require.NotNil(t, blk, "partial block must be delivered")
	assert.EqualValues(t, 1, blk.Ctrl().SeqNum)
	assert.Equal(t, StateDisabled, ti.Status())
}

func TestDisabledTriggerRefusesWork(t *testing.T) {
	ch := newTestChan(t, api.DirOutput, 2, 8)
	ti := New(Options{Direction: api.DirOutput})
	wire(ti, ch)

	ti.ChangeStatus(true)
	assert.True(t, ti.Disabled())

	blk, _ := ch.buf.AllocBlock(4)
	assert.ErrorIs(t, ti.PushBlock(0, blk), api.ErrDisabled)

	ti.Fire()
	assert.Equal(t, StateDisabled, ti.Status())

	ti.ChangeStatus(false)
	assert.Equal(t, StateArmed, ti.Status())
}

func TestPushBlockSingleSlot(t *testing.T) {
	ch := newTestChan(t, api.DirOutput, 2, 8)
	ti := New(Options{Direction: api.DirOutput})
	wire(ti, ch)

	a, _ := ch.buf.AllocBlock(4)
	b, _ := ch.buf.AllocBlock(4)

	require.NoError(t, ti.PushBlock(0, a))
	assert.ErrorIs(t, ti.PushBlock(0, b), api.ErrBusy)
	assert.ErrorIs(t, ti.PushBlock(7, b), api.ErrInvalidState)
}

func TestSelfTimedRequestsRearm(t *testing.T) {
	ch := newTestChan(t, api.DirInput, 2, 8)
	ti := New(Options{
		Direction: api.DirInput,
		NSamples:  2,
		SelfTimed: true,
		RawIO:     func([]api.ChannelLink) error { return api.ErrDeferred },
	})
	wire(ti, ch)

	ti.Fire()
	assert.True(t, ti.DataDone())

	ti.ChangeStatus(true)
	assert.False(t, ti.DataDone(), "no rearm while disabled")
}

func TestTapReceivesCompletedControls(t *testing.T) {
	ch := newTestChan(t, api.DirInput, 2, 8)
	var tapped []control.Control
	ti := New(Options{
		Direction: api.DirInput,
		NSamples:  2,
		Tap:       func(c control.Control) { tapped = append(tapped, c) },
	})
	wire(ti, ch)

	ti.Fire()
	ti.Fire()

	require.Len(t, tapped, 2)
	assert.EqualValues(t, 1, tapped[0].SeqNum)
	assert.EqualValues(t, 2, tapped[1].SeqNum)
}

func TestExternalPushFires(t *testing.T) {
	ch := newTestChan(t, api.DirOutput, 2, 8)
	fired := 0
	ext := NewExternal(Options{
		Direction: api.DirOutput,
		RawIO: func([]api.ChannelLink) error {
			fired++
			return nil
		},
	})
	wireExternal(ext, ch)

	// storing on the empty buffer pushes into the trigger, which fires
	// immediately and consumes the block
	blk, _ := ch.buf.AllocBlock(4)
	require.NoError(t, ch.buf.StoreBlock(blk))
	assert.Equal(t, 1, fired)
	assert.True(t, blk.Retired(), "output data-done frees the block")
}

func TestExternalPullFires(t *testing.T) {
	ch := newTestChan(t, api.DirInput, 2, 8)
	ext := NewExternal(Options{Direction: api.DirInput, NSamples: 2})
	wireExternal(ext, ch)

	// an empty retrieve emits the pull hint, which fires and produces
	// a block synchronously
	blk := ch.buf.RetrBlock()
	assert.Nil(t, blk)
	blk = ch.buf.RetrBlock()
	require.NotNil(t, blk)
	assert.EqualValues(t, 1, blk.Ctrl().SeqNum)
}

// wireExternal attaches the concrete External so the buffer sees its
// push/pull overrides rather than the embedded base methods.
func wireExternal(ext *External, chans ...*testChan) {
	links := make([]api.ChannelLink, len(chans))
	for i, c := range chans {
		links[i] = c
		if at, ok := c.buf.(interface{ AttachTrigger(api.TriggerLink) }); ok {
			at.AttachTrigger(ext)
		}
	}
	ext.AttachChannels(links)
}

func TestIRQEdgeFilter(t *testing.T) {
	ch := newTestChan(t, api.DirInput, 2, 8)
	fires := 0
	irq := NewIRQ(Options{
		Direction: api.DirInput,
		NSamples:  1,
		RawIO: func([]api.ChannelLink) error {
			fires++
			return nil
		},
	}, EdgeRising)
	wire(irq.Instance, ch)

	irq.Interrupt(true)
	irq.Interrupt(false) // filtered
	irq.Interrupt(true)
	assert.Equal(t, 2, fires)

	both := NewIRQ(Options{Direction: api.DirInput, NSamples: 1}, EdgeBoth)
	wire(both.Instance, ch)
	both.Interrupt(true)
	both.Interrupt(false)
	assert.Equal(t, StateArmed, both.Status())
}
