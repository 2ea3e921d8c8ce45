// File: config/store.go
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration store with reload propagation. Buffer sizing
// can change while a device runs: the store merges updates and pushes
// them to registered listeners, and BindChannelSet forwards the usual
// sizing keys to the channel set's buffer instances.

package config

import (
	"sync"

	"github.com/momentics/zio/device"
)

// Store is a dynamic key/value map with atomic snapshot and listener
// support. Keys are flat dotted paths, e.g. "cset0.buffer.max-len".
type Store struct {
	mu        sync.RWMutex
	values    map[string]int64
	listeners []func(map[string]int64)
}

// NewStore initializes an empty runtime store.
func NewStore() *Store {
	return &Store{values: make(map[string]int64)}
}

// Snapshot returns a copy of all current values.
func (s *Store) Snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Get returns one value and whether it is set.
func (s *Store) Get(key string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Update merges new values and dispatches the changed set to every
// listener, synchronously and in registration order.
func (s *Store) Update(changes map[string]int64) {
	s.mu.Lock()
	for k, v := range changes {
		s.values[k] = v
	}
	listeners := append([]func(map[string]int64){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(changes)
	}
}

// OnReload registers a listener invoked with each Update's change set.
func (s *Store) OnReload(fn func(map[string]int64)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// BindChannelSet wires the standard sizing keys of one channel set to
// its buffer instances:
//
//	<prefix>.buffer.max-len    list store queue depth
//	<prefix>.buffer.max-bytes  arena store byte budget
//	<prefix>.trigger.nsamples  per-block sample count
//
// Resizes that the instance refuses (arena mapped or not drained) are
// skipped; the next update retries.
func (s *Store) BindChannelSet(prefix string, cs *device.ChannelSet) {
	s.OnReload(func(changes map[string]int64) {
		if n, ok := changes[prefix+".trigger.nsamples"]; ok {
			if t, ok := cs.Trigger().(interface{ SetNSamples(int) }); ok {
				t.SetNSamples(int(n))
			}
		}
		maxLen, hasLen := changes[prefix+".buffer.max-len"]
		maxBytes, hasBytes := changes[prefix+".buffer.max-bytes"]
		if !hasLen && !hasBytes {
			return
		}
		for i := 0; i < cs.NChans(); i++ {
			ch, err := cs.Chan(i)
			if err != nil {
				continue
			}
			if hasLen {
				if r, ok := ch.Buffer().(interface{ SetMaxLen(int) }); ok {
					r.SetMaxLen(int(maxLen))
				}
			}
			if hasBytes {
				if r, ok := ch.Buffer().(interface{ Resize(int) error }); ok {
					_ = r.Resize(int(maxBytes))
				}
			}
		}
	})
}
