// File: trigger/trigger.go
// Author: momentics <momentics@gmail.com>
//
// Trigger instances decide when a data transfer happens. An instance
// drives the channels of one channel set through arm / data-done /
// abort, holds at most one active block per channel, and accepts
// direct pushes from the buffer side on output channels.
//
// The instance lock orders strictly before any buffer lock: a trigger
// call may take a buffer's lock, a buffer never calls into the trigger
// while holding its own (pushes run with the buffer lock released).

package trigger

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/control"
	"github.com/momentics/zio/stats"
)

// State of the trigger machine.
type State int

const (
	// StateDisabled: the trigger neither fires nor accepts pushes.
	StateDisabled State = iota
	// StateArmed: enabled, waiting for a fire event.
	StateArmed
	// StateFiring: a transfer is in flight; ends at data-done or abort.
	StateFiring
)

// RawIO starts the device transfer for the staged channels. A nil
// return means the transfer completed synchronously and data-done runs
// at once; ErrDeferred means the device accepted it and will report
// completion later via Complete; anything else un-arms the trigger.
type RawIO func(chans []api.ChannelLink) error

// Options configures a trigger instance.
type Options struct {
	Name      string
	Direction api.Direction

	// NSamples per block on input arm.
	NSamples int

	// SelfTimed devices free-run: data-done requests an immediate
	// re-fire instead of waiting for an external event.
	SelfTimed bool

	// SalvageOnAbort makes abort run data-done to return partial
	// blocks; otherwise active blocks are discarded.
	SalvageOnAbort bool

	// RawIO is the device I/O hook.
	RawIO RawIO

	// Tap, when set, receives a copy of every completed control,
	// called outside the instance lock.
	Tap func(control.Control)

	Logger        *zerolog.Logger
	Metrics       *stats.Registry
	MetricsPrefix string
}

// Instance is the shared trigger-instance state, embedded by the
// concrete trigger types.
type Instance struct {
	mu        sync.Mutex
	name      string
	dir       api.Direction
	nsamples  int
	selfTimed bool
	salvage   bool

	disabled bool
	firing   bool
	tstamp   control.Timestamp

	chans []api.ChannelLink
	rawIO RawIO
	tap   func(control.Control)

	log *zerolog.Logger
	reg *stats.Registry
	pfx string
}

var _ api.TriggerLink = (*Instance)(nil)

// New creates a trigger instance. Channels are attached separately at
// channel-set setup.
func New(o Options) *Instance {
	if o.NSamples <= 0 {
		o.NSamples = 16
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	if o.MetricsPrefix == "" {
		o.MetricsPrefix = "trigger"
	}
	return &Instance{
		name:      o.Name,
		dir:       o.Direction,
		nsamples:  o.NSamples,
		selfTimed: o.SelfTimed,
		salvage:   o.SalvageOnAbort,
		rawIO:     o.RawIO,
		tap:       o.Tap,
		log:       o.Logger,
		reg:       o.Metrics,
		pfx:       o.MetricsPrefix,
	}
}

// AttachChannels links the instance to its channel set.
func (ti *Instance) AttachChannels(chans []api.ChannelLink) {
	ti.mu.Lock()
	ti.chans = chans
	ti.mu.Unlock()
}

// Name returns the trigger's registered name.
func (ti *Instance) Name() string { return ti.name }

// Disabled reports whether the trigger is disabled.
func (ti *Instance) Disabled() bool {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.disabled
}

// Status reports the current machine state.
func (ti *Instance) Status() State {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	switch {
	case ti.disabled:
		return StateDisabled
	case ti.firing:
		return StateFiring
	default:
		return StateArmed
	}
}

// SetNSamples updates the per-block sample count for subsequent fires.
func (ti *Instance) SetNSamples(n int) {
	if n <= 0 {
		return
	}
	ti.mu.Lock()
	ti.nsamples = n
	ti.mu.Unlock()
}

// NSamples returns the configured per-block sample count.
func (ti *Instance) NSamples() int {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.nsamples
}

// PushBlock offers a block for the channel's single active slot.
func (ti *Instance) PushBlock(chanIdx int, blk *api.Block) error {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if ti.disabled {
		return api.ErrDisabled
	}
	if chanIdx < 0 || chanIdx >= len(ti.chans) {
		return api.ErrInvalidState
	}
	ch := ti.chans[chanIdx]
	if ch.ActiveBlock() != nil {
		return api.ErrBusy
	}
	ch.SetActiveBlock(blk)
	return nil
}

// Fire is invoked by the timing source. It takes a timestamp, stages
// blocks for every enabled channel and starts the device transfer.
// Fire never blocks indefinitely: it either completes the cycle
// synchronously, leaves it pending for Complete, or bails out.
func (ti *Instance) Fire() {
	ti.mu.Lock()
	// a previous cycle still pending, or explicitly disabled
	if ti.disabled || ti.firing {
		ti.mu.Unlock()
		return
	}
	ti.firing = true
	ti.tstamp = stampNow()
	chans := ti.chans
	nsamples := ti.nsamples
	ti.mu.Unlock()

	var err error
	if ti.dir == api.DirInput {
		err = ti.armInput(chans, nsamples)
	} else {
		err = ti.armOutput(chans)
	}
	switch {
	case err == nil:
		ti.Complete() // transfer finished synchronously
	case errors.Is(err, api.ErrDeferred):
		// device will call Complete later
	default:
		ti.log.Error().Err(err).Str("trigger", ti.name).Msg("fire failed")
		ti.mu.Lock()
		ti.firing = false
		ti.mu.Unlock()
	}
}

// armInput allocates one block per enabled channel. A failed
// allocation stages nothing; the loss is reported at data-done time
// through the lost-block alarm.
func (ti *Instance) armInput(chans []api.ChannelLink, nsamples int) error {
	for _, ch := range chans {
		if !ch.Enabled() {
			continue
		}
		ctrl := ch.CurrentControl()
		ctrl.NSamples = uint32(nsamples)
		datalen := int(ctrl.SSize) * nsamples
		blk, err := ch.Buffer().AllocBlock(datalen)
		if err != nil {
			ti.log.Debug().Err(err).Int("chan", ch.Index()).Msg("input alloc failed")
			blk = nil
		}
		ch.SetActiveBlock(blk)
	}
	if ti.rawIO == nil {
		return nil
	}
	return ti.rawIO(chans)
}

// armOutput expects channels to already hold staged blocks, either
// pre-staged by the previous data-done or pushed by the buffer.
func (ti *Instance) armOutput(chans []api.ChannelLink) error {
	if ti.rawIO == nil {
		return nil
	}
	return ti.rawIO(chans)
}

// Complete finishes the current cycle: runs data-done and, for
// self-timed devices, requests the next fire immediately.
func (ti *Instance) Complete() {
	if ti.DataDone() {
		go ti.Fire()
	}
}

// DataDone finalizes the transfer of the active blocks. Input: stamps
// sequence number and timestamp into each control and stores the
// blocks; output: frees the consumed blocks and pre-stages the next
// ones so the following fire has data ready with zero latency.
// Returns true when the trigger must be re-armed automatically.
func (ti *Instance) DataDone() (rearm bool) {
	ti.mu.Lock()
	taps := ti.dataDoneLocked()
	ti.firing = false
	rearm = ti.selfTimed && !ti.disabled
	ti.mu.Unlock()

	// tap copies go out after the lock is dropped
	for i := range taps {
		ti.tap(taps[i])
	}
	return rearm
}

func (ti *Instance) dataDoneLocked() []control.Control {
	var taps []control.Control
	for _, ch := range ti.chans {
		if !ch.Enabled() {
			continue
		}
		ctrl := ch.CurrentControl()
		ctrl.SeqNum++
		ctrl.Tstamp = ti.tstamp

		blk := ch.ActiveBlock()
		if blk == nil {
			ctrl.Alarms |= control.AlarmLostBlock
			ti.reg.Inc(ti.pfx + ".lost_blocks")
			continue
		}
		if ti.dir == api.DirOutput {
			if ti.tap != nil {
				taps = append(taps, *blk.Ctrl())
			}
			if err := ch.Buffer().FreeBlock(blk); err != nil {
				ti.log.Error().Err(err).Int("chan", ch.Index()).Msg("data done free")
			}
		} else {
			blk.Ctrl().CopyMeta(ctrl)
			if ti.tap != nil {
				taps = append(taps, *blk.Ctrl())
			}
			if err := ch.Buffer().StoreBlock(blk); err != nil {
				ti.log.Error().Err(err).Int("chan", ch.Index()).Msg("data done store")
			}
		}
		ch.SetActiveBlock(nil)
		ti.reg.Inc(ti.pfx + ".blocks_done")
	}

	// only for output: prepare the next event if any block is ready
	if ti.dir == api.DirOutput {
		for _, ch := range ti.chans {
			if !ch.Enabled() {
				continue
			}
			ch.SetActiveBlock(ch.Buffer().RetrBlock())
		}
	}
	return taps
}

// Abort interrupts an in-flight transfer. With salvage configured the
// partial blocks are returned through data-done, otherwise every
// active block is discarded. When disable is set the trigger is left
// disabled afterwards.
func (ti *Instance) Abort(disable bool) {
	ti.mu.Lock()
	var taps []control.Control
	if ti.firing {
		if ti.salvage {
			taps = ti.dataDoneLocked()
		} else {
			ti.freeActiveLocked()
		}
		ti.firing = false
	}
	if disable {
		ti.disabled = true
	}
	ti.mu.Unlock()
	for i := range taps {
		ti.tap(taps[i])
	}
}

func (ti *Instance) freeActiveLocked() {
	for _, ch := range ti.chans {
		blk := ch.ActiveBlock()
		if blk == nil {
			continue
		}
		if err := ch.Buffer().FreeBlock(blk); err != nil {
			ti.log.Error().Err(err).Int("chan", ch.Index()).Msg("abort free")
		}
		ch.SetActiveBlock(nil)
	}
}

// ChangeStatus enables or disables the trigger. Disabling an in-flight
// trigger aborts it first.
func (ti *Instance) ChangeStatus(disabled bool) {
	if disabled {
		ti.Abort(true)
		return
	}
	ti.mu.Lock()
	ti.disabled = false
	ti.mu.Unlock()
}

// Timestamp returns the stamp taken at the last fire.
func (ti *Instance) Timestamp() control.Timestamp {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.tstamp
}

func stampNow() control.Timestamp {
	now := time.Now()
	return control.Timestamp{
		Secs:  uint64(now.Unix()),
		Ticks: uint64(now.Nanosecond()),
	}
}
