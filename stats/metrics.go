// File: stats/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for the acquisition pipeline.
// Exposes counters in a thread-safe map with dynamic registration;
// buffer and trigger instances publish exchange counters here.

package stats

import (
	"sync"
	"time"
)

// Registry holds mutable and read-only metrics.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]int64
	updated time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]int64),
	}
}

// Set sets or updates a metric key.
func (r *Registry) Set(key string, value int64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.metrics[key] = value
	r.updated = time.Now()
	r.mu.Unlock()
}

// Add increments a metric key by delta, creating it at zero.
func (r *Registry) Add(key string, delta int64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.metrics[key] += delta
	r.updated = time.Now()
	r.mu.Unlock()
}

// Inc increments a metric key by one.
func (r *Registry) Inc(key string) { r.Add(key, 1) }

// Get returns one metric value (zero when absent).
func (r *Registry) Get(key string) int64 {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[key]
}

// Snapshot returns a copy of the latest metrics.
func (r *Registry) Snapshot() map[string]int64 {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.metrics))
	for k, v := range r.metrics {
		out[k] = v
	}
	return out
}

// Updated reports the time of the last write.
func (r *Registry) Updated() time.Time {
	if r == nil {
		return time.Time{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updated
}
