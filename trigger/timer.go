// File: trigger/timer.go
// Author: momentics <momentics@gmail.com>
//
// Periodic timer trigger: fires at a fixed period, the usual choice
// for free-running acquisition without a hardware timing source.

package trigger

import (
	"sync"
	"time"
)

// Timer fires the trigger every Period once started.
type Timer struct {
	*Instance

	period time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewTimer creates a periodic trigger. period must be positive.
func NewTimer(o Options, period time.Duration) *Timer {
	if period <= 0 {
		period = time.Second
	}
	return &Timer{Instance: New(o), period: period}
}

// Period returns the configured firing period.
func (t *Timer) Period() time.Duration { return t.period }

// Start launches the ticking goroutine. Idempotent while running.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	t.stopped = make(chan struct{})
	go t.run(t.stop, t.stopped)
}

// Stop halts the ticker and waits for the goroutine to exit. A fire
// already in progress completes normally.
func (t *Timer) Stop() {
	t.mu.Lock()
	stop, stopped := t.stop, t.stopped
	t.stop, t.stopped = nil, nil
	t.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}

func (t *Timer) run(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	tick := time.NewTicker(t.period)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			t.Fire()
		case <-stop:
			return
		}
	}
}
