// File: trigger/hrt.go
// Author: momentics <momentics@gmail.com>
//
// Deadline trigger: fires once at an absolute point in time, with an
// optional period for repeating after the first expiry. Modeled on
// high-resolution timer usage where acquisitions are scheduled rather
// than free-running.

package trigger

import (
	"sync"
	"time"
)

// HRT fires at an absolute deadline set by the caller.
type HRT struct {
	*Instance

	// Period, when positive, reschedules the deadline after each
	// expiry so the trigger keeps firing at a fixed cadence.
	period time.Duration

	// Slack is advisory wake-up tolerance, recorded for inspection;
	// the runtime timer granularity is what the platform provides.
	slack time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewHRT creates a deadline trigger. period <= 0 means one-shot.
func NewHRT(o Options, period, slack time.Duration) *HRT {
	return &HRT{Instance: New(o), period: period, slack: slack}
}

// Slack returns the configured wake-up tolerance.
func (t *HRT) Slack() time.Duration { return t.slack }

// SetDeadline schedules the next fire at the given absolute time. A
// pending deadline is replaced.
func (t *HRT) SetDeadline(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(time.Until(at), t.expire)
}

// Cancel drops any pending deadline.
func (t *HRT) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *HRT) expire() {
	t.Fire()
	if t.period <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer == nil {
		return // cancelled between fire and reschedule
	}
	t.timer = time.AfterFunc(t.period, t.expire)
}
