// File: device/sniffer.go
// Author: momentics <momentics@gmail.com>
//
// Sniffer tap: a bounded stream of completed-control copies for
// monitoring tools. The tap never blocks the data path; when the
// consumer lags, copies are dropped and the next delivered control
// carries the lost-sniff alarm.

package device

import (
	"sync/atomic"

	"github.com/momentics/zio/control"
)

// Sniffer receives a copy of every control completed on its device.
type Sniffer struct {
	ch      chan control.Control
	pending atomic.Uint32
	dropped atomic.Uint64
}

// NewSniffer creates a tap with the given buffering depth.
func NewSniffer(depth int) *Sniffer {
	if depth <= 0 {
		depth = 16
	}
	return &Sniffer{ch: make(chan control.Control, depth)}
}

// Tap offers one completed control. Called on the trigger's data-done
// path, outside any instance lock.
func (s *Sniffer) Tap(c control.Control) {
	if s.pending.Load() > 0 {
		c.Alarms |= control.AlarmLostSniff
	}
	select {
	case s.ch <- c:
		s.pending.Store(0)
	default:
		s.pending.Add(1)
		s.dropped.Add(1)
	}
}

// Controls returns the stream of tapped control copies.
func (s *Sniffer) Controls() <-chan control.Control { return s.ch }

// Dropped returns the total number of copies lost to a slow consumer.
func (s *Sniffer) Dropped() uint64 { return s.dropped.Load() }

// Close ends the stream. The owning device calls this on Close.
func (s *Sniffer) Close() { close(s.ch) }
