// File: device/registry.go
// Author: momentics <momentics@gmail.com>
//
// Type registries for buffer and trigger implementations, and the
// handle registry of live devices. Built-in types register at init;
// out-of-tree implementations register the same way.

package device

import (
	"sync"
	"time"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/buffer"
	"github.com/momentics/zio/trigger"
)

// TriggerInstance is the full contract a registered trigger type must
// satisfy: the buffer-facing link plus lifecycle control.
type TriggerInstance interface {
	api.TriggerLink
	AttachChannels([]api.ChannelLink)
	Fire()
	Complete()
	DataDone() bool
	Abort(disable bool)
	ChangeStatus(disabled bool)
	Status() trigger.State
	NSamples() int
}

// BufferFactory builds a buffer instance from resolved options.
type BufferFactory func(o buffer.Options) (api.BufferInstance, error)

// TriggerFactory builds a trigger instance; attrs carries the
// type-specific settings from the spec.
type TriggerFactory func(o trigger.Options, attrs map[string]int64) (TriggerInstance, error)

var registry struct {
	mu    sync.RWMutex
	bufs  map[string]BufferFactory
	trigs map[string]TriggerFactory

	devMu   sync.RWMutex
	devs    map[api.Handle]*Device
	nextDev uint32
}

func init() {
	registry.bufs = make(map[string]BufferFactory)
	registry.trigs = make(map[string]TriggerFactory)
	registry.devs = make(map[api.Handle]*Device)

	RegisterBufferType("list", func(o buffer.Options) (api.BufferInstance, error) {
		return buffer.NewList(o), nil
	})
	RegisterBufferType("arena", func(o buffer.Options) (api.BufferInstance, error) {
		return buffer.NewArena(o)
	})

	RegisterTriggerType("timer", func(o trigger.Options, attrs map[string]int64) (TriggerInstance, error) {
		return trigger.NewTimer(o, time.Duration(attrs["period-ns"])), nil
	})
	RegisterTriggerType("hrt", func(o trigger.Options, attrs map[string]int64) (TriggerInstance, error) {
		period := time.Duration(attrs["period-ns"])
		slack := time.Duration(attrs["slack-ns"])
		return trigger.NewHRT(o, period, slack), nil
	})
	RegisterTriggerType("user", func(o trigger.Options, _ map[string]int64) (TriggerInstance, error) {
		return trigger.NewExternal(o), nil
	})
	RegisterTriggerType("irq", func(o trigger.Options, attrs map[string]int64) (TriggerInstance, error) {
		return trigger.NewIRQ(o, trigger.Edge(attrs["edge"])), nil
	})
}

// RegisterBufferType makes a buffer implementation selectable by name.
func RegisterBufferType(name string, f BufferFactory) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, dup := registry.bufs[name]; dup {
		return api.NewError(api.ErrCodeConfig, "buffer type already registered").
			WithContext("type", name)
	}
	registry.bufs[name] = f
	return nil
}

// RegisterTriggerType makes a trigger implementation selectable by name.
func RegisterTriggerType(name string, f TriggerFactory) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, dup := registry.trigs[name]; dup {
		return api.NewError(api.ErrCodeConfig, "trigger type already registered").
			WithContext("type", name)
	}
	registry.trigs[name] = f
	return nil
}

// BufferTypes lists the registered buffer type names.
func BufferTypes() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.bufs))
	for n := range registry.bufs {
		names = append(names, n)
	}
	return names
}

// TriggerTypes lists the registered trigger type names.
func TriggerTypes() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.trigs))
	for n := range registry.trigs {
		names = append(names, n)
	}
	return names
}

func newBuffer(typ string, o buffer.Options) (api.BufferInstance, error) {
	registry.mu.RLock()
	f, ok := registry.bufs[typ]
	registry.mu.RUnlock()
	if !ok {
		return nil, api.NewError(api.ErrCodeNotFound, "unknown buffer type").
			WithContext("type", typ)
	}
	return f(o)
}

func newTrigger(typ string, o trigger.Options, attrs map[string]int64) (TriggerInstance, error) {
	registry.mu.RLock()
	f, ok := registry.trigs[typ]
	registry.mu.RUnlock()
	if !ok {
		return nil, api.NewError(api.ErrCodeNotFound, "unknown trigger type").
			WithContext("type", typ)
	}
	return f(o, attrs)
}

func registerDevice(d *Device) api.Handle {
	registry.devMu.Lock()
	defer registry.devMu.Unlock()
	registry.nextDev++
	h := api.Handle(registry.nextDev)
	registry.devs[h] = d
	return h
}

func unregisterDevice(h api.Handle) {
	registry.devMu.Lock()
	delete(registry.devs, h)
	registry.devMu.Unlock()
}

// Lookup resolves a device handle. The second result is false for a
// stale or unknown handle, never a dangling pointer.
func Lookup(h api.Handle) (*Device, bool) {
	registry.devMu.RLock()
	defer registry.devMu.RUnlock()
	d, ok := registry.devs[h]
	return d, ok
}

// Devices snapshots the handles of all registered devices.
func Devices() []api.Handle {
	registry.devMu.RLock()
	defer registry.devMu.RUnlock()
	hs := make([]api.Handle, 0, len(registry.devs))
	for h := range registry.devs {
		hs = append(hs, h)
	}
	return hs
}
