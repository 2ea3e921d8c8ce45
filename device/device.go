// File: device/device.go
// Author: momentics <momentics@gmail.com>
//
// Device model: a device groups channel sets, a channel set groups
// homogeneous channels sharing one trigger instance, and each channel
// owns one buffer instance. This file builds the object graph from a
// declarative Spec and wires buffers and triggers together.

package device

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/buffer"
	"github.com/momentics/zio/control"
	"github.com/momentics/zio/stats"
	"github.com/momentics/zio/trigger"
)

// Spec declares a device to build. Each channel set names its buffer
// and trigger types; the types must have been registered beforehand.
type Spec struct {
	Name string

	// SniffDepth > 0 attaches a sniffer tap of that capacity, fed a
	// copy of every completed control on the device.
	SniffDepth int

	CSets []CSetSpec
}

// CSetSpec declares one channel set.
type CSetSpec struct {
	Name      string
	Direction api.Direction
	NChans    int
	SSize     uint16 // bytes per sample
	SBits     uint16 // significant bits per sample

	Buffer  BufferSpec
	Trigger TriggerSpec

	// RawIO is the hardware I/O hook handed to the trigger. Nil means
	// transfers complete synchronously with the staged data untouched,
	// which is what software loopback devices want.
	RawIO trigger.RawIO
}

// BufferSpec selects and sizes the per-channel buffer instances.
type BufferSpec struct {
	Type     string // registered buffer type name
	MaxLen   int    // list store: max queued blocks
	MaxBytes int    // arena store: byte budget
	Merge    bool   // arena store: coalesce contiguous queued blocks
}

// TriggerSpec selects and configures the channel set's trigger.
type TriggerSpec struct {
	Type           string // registered trigger type name
	NSamples       int
	SelfTimed      bool
	SalvageOnAbort bool

	// Attrs carries type-specific settings, e.g. "period-ns" for the
	// timer trigger or "edge" for the interrupt trigger.
	Attrs map[string]int64
}

// Device is a registered acquisition device.
type Device struct {
	id     uuid.UUID
	name   string
	handle api.Handle
	csets  []*ChannelSet
	sniff  *Sniffer

	log zerolog.Logger
	reg *stats.Registry
}

// ChannelSet groups the channels driven by one trigger instance.
type ChannelSet struct {
	dev   *Device
	idx   int
	name  string
	dir   api.Direction
	ssize uint16
	chans []*Channel
	trig  TriggerInstance
}

// Channel is one data stream with its own buffer instance.
type Channel struct {
	cset *ChannelSet
	idx  int
	cur  *control.Control
	buf  api.BufferInstance

	mu      sync.Mutex
	enabled bool
	active  *api.Block
}

var _ api.ChannelLink = (*Channel)(nil)

// Option adjusts device construction.
type Option func(*Device)

// WithLogger sets the device logger; sub-objects derive from it.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Device) { d.log = l }
}

// WithMetrics attaches a metrics registry shared by the device's
// buffers and triggers.
func WithMetrics(r *stats.Registry) Option {
	return func(d *Device) { d.reg = r }
}

// New builds and registers a device. On error nothing is registered
// and any partially built channel sets are torn down.
func New(spec Spec, opts ...Option) (*Device, error) {
	if spec.Name == "" {
		return nil, api.NewError(api.ErrCodeConfig, "device name required")
	}
	if len(spec.CSets) == 0 {
		return nil, api.NewError(api.ErrCodeConfig, "device needs at least one channel set")
	}
	d := &Device{
		id:   uuid.New(),
		name: spec.Name,
		log:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(d)
	}
	d.log = d.log.With().Str("device", spec.Name).Logger()
	if spec.SniffDepth > 0 {
		d.sniff = NewSniffer(spec.SniffDepth)
	}

	for i, cspec := range spec.CSets {
		cs, err := d.buildCSet(i, cspec)
		if err != nil {
			d.teardown()
			return nil, fmt.Errorf("cset %d (%s): %w", i, cspec.Name, err)
		}
		d.csets = append(d.csets, cs)
	}
	d.handle = registerDevice(d)
	d.log.Info().Str("id", d.id.String()).Int("csets", len(d.csets)).Msg("device registered")
	return d, nil
}

func (d *Device) buildCSet(idx int, spec CSetSpec) (*ChannelSet, error) {
	if spec.NChans <= 0 {
		return nil, api.NewError(api.ErrCodeConfig, "channel count must be positive")
	}
	if spec.SSize == 0 {
		return nil, api.NewError(api.ErrCodeConfig, "sample size must be positive")
	}
	cs := &ChannelSet{
		dev:   d,
		idx:   idx,
		name:  spec.Name,
		dir:   spec.Direction,
		ssize: spec.SSize,
	}

	log := d.log.With().Str("cset", spec.Name).Logger()
	topts := trigger.Options{
		Name:           spec.Trigger.Type,
		Direction:      spec.Direction,
		NSamples:       spec.Trigger.NSamples,
		SelfTimed:      spec.Trigger.SelfTimed,
		SalvageOnAbort: spec.Trigger.SalvageOnAbort,
		RawIO:          spec.RawIO,
		Logger:         &log,
		Metrics:        d.reg,
		MetricsPrefix:  fmt.Sprintf("%s.cset%d.trigger", d.name, idx),
	}
	if d.sniff != nil {
		topts.Tap = d.sniff.Tap
	}
	trig, err := newTrigger(spec.Trigger.Type, topts, spec.Trigger.Attrs)
	if err != nil {
		return nil, err
	}
	cs.trig = trig

	links := make([]api.ChannelLink, 0, spec.NChans)
	for ci := 0; ci < spec.NChans; ci++ {
		bi, err := newBuffer(spec.Buffer.Type, buffer.Options{
			Direction:     spec.Direction,
			ChanIdx:       ci,
			MaxLen:        spec.Buffer.MaxLen,
			MaxBytes:      spec.Buffer.MaxBytes,
			MergeData:     spec.Buffer.Merge,
			Logger:        &log,
			Metrics:       d.reg,
			MetricsPrefix: fmt.Sprintf("%s.cset%d.chan%d", d.name, idx, ci),
		})
		if err != nil {
			cs.destroyChannels()
			return nil, err
		}
		if ta, ok := bi.(interface{ AttachTrigger(api.TriggerLink) }); ok {
			ta.AttachTrigger(trig)
		}

		cur := control.New()
		cur.DevName = d.name
		cur.TrigName = spec.Trigger.Type
		cur.CsetIdx = uint16(idx)
		cur.ChanIdx = uint16(ci)
		cur.SSize = spec.SSize
		cur.SBits = spec.SBits
		cur.NSamples = uint32(trig.NSamples())

		ch := &Channel{cset: cs, idx: ci, enabled: true, cur: cur, buf: bi}
		cs.chans = append(cs.chans, ch)
		links = append(links, ch)
	}
	trig.AttachChannels(links)
	return cs, nil
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// ID returns the device's unique identifier.
func (d *Device) ID() uuid.UUID { return d.id }

// Handle returns the registry handle of the device.
func (d *Device) Handle() api.Handle { return d.handle }

// Sniffer returns the device's sniffer tap, nil when not configured.
func (d *Device) Sniffer() *Sniffer { return d.sniff }

// CSets returns the number of channel sets.
func (d *Device) CSets() int { return len(d.csets) }

// CSet returns channel set i.
func (d *Device) CSet(i int) (*ChannelSet, error) {
	if i < 0 || i >= len(d.csets) {
		return nil, api.NewError(api.ErrCodeNotFound, "no such channel set").
			WithContext("cset", i)
	}
	return d.csets[i], nil
}

// Close aborts all triggers, destroys all buffers and unregisters the
// device. Data still queued is discarded.
func (d *Device) Close() {
	unregisterDevice(d.handle)
	d.teardown()
	if d.sniff != nil {
		d.sniff.Close()
	}
	d.log.Info().Msg("device closed")
}

func (d *Device) teardown() {
	for _, cs := range d.csets {
		cs.trig.Abort(true)
		if s, ok := cs.trig.(interface{ Stop() }); ok {
			s.Stop()
		}
		if c, ok := cs.trig.(interface{ Cancel() }); ok {
			c.Cancel()
		}
		cs.destroyChannels()
	}
}

func (cs *ChannelSet) destroyChannels() {
	for _, ch := range cs.chans {
		ch.buf.Destroy()
	}
}

// Name returns the channel set name.
func (cs *ChannelSet) Name() string { return cs.name }

// Direction returns the channel set's data direction.
func (cs *ChannelSet) Direction() api.Direction { return cs.dir }

// NChans returns the number of channels.
func (cs *ChannelSet) NChans() int { return len(cs.chans) }

// Trigger exposes the channel set's trigger instance.
func (cs *ChannelSet) Trigger() TriggerInstance { return cs.trig }

// Enable re-enables the channel set's trigger.
func (cs *ChannelSet) Enable() { cs.trig.ChangeStatus(false) }

// Disable aborts any in-flight transfer and disables the trigger.
func (cs *ChannelSet) Disable() { cs.trig.ChangeStatus(true) }

// Chan returns channel i of the set.
func (cs *ChannelSet) Chan(i int) (*Channel, error) {
	if i < 0 || i >= len(cs.chans) {
		return nil, api.NewError(api.ErrCodeNotFound, "no such channel").
			WithContext("chan", i)
	}
	return cs.chans[i], nil
}
