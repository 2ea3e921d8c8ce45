// File: trigger/ext.go
// Author: momentics <momentics@gmail.com>
//
// Externally driven triggers. External fires on software events: a
// pushed output block fires immediately, and an empty input queue
// pulls a fire on demand. IRQ gates hardware interrupt lines through
// an edge filter.

package trigger

import "github.com/momentics/zio/api"

// External is the software-event trigger: any push or pull request
// becomes a fire. It is the natural pairing for devices whose timing
// is decided by the user rather than a clock.
type External struct {
	*Instance
}

var (
	_ api.TriggerLink = (*External)(nil)
	_ api.BlockPuller = (*External)(nil)
)

// NewExternal creates a software-event trigger.
func NewExternal(o Options) *External {
	return &External{Instance: New(o)}
}

// PushBlock stages the block and fires at once, so output data flows
// as soon as the user provides it.
func (t *External) PushBlock(chanIdx int, blk *api.Block) error {
	if err := t.Instance.PushBlock(chanIdx, blk); err != nil {
		return err
	}
	t.Fire()
	return nil
}

// PullBlock is invoked by an empty input buffer: a waiting reader is
// itself the fire event.
func (t *External) PullBlock(chanIdx int) {
	t.Fire()
}

// Edge selects which interrupt transitions fire an IRQ trigger.
type Edge int

const (
	EdgeRising Edge = iota
	EdgeFalling
	EdgeBoth
)

// IRQ fires on interrupt edges matching its configured sensitivity.
type IRQ struct {
	*Instance
	edge Edge
}

var _ api.TriggerLink = (*IRQ)(nil)

// NewIRQ creates an interrupt trigger with the given edge filter.
func NewIRQ(o Options, edge Edge) *IRQ {
	return &IRQ{Instance: New(o), edge: edge}
}

// Interrupt reports a line transition; rising is true for a low-to-
// high edge. Transitions filtered out by the edge setting are ignored.
func (t *IRQ) Interrupt(rising bool) {
	switch t.edge {
	case EdgeRising:
		if !rising {
			return
		}
	case EdgeFalling:
		if rising {
			return
		}
	}
	t.Fire()
}
