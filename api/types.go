// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared scalar types for the zio block-exchange layer.

package api

// Direction tells whether a channel acquires data from hardware (input)
// or emits data to hardware (output).
type Direction int

const (
	DirInput Direction = iota
	DirOutput
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == DirOutput {
		return "output"
	}
	return "input"
}

// Handle identifies a registered entity (device, channel set, channel,
// buffer instance) inside the framework registry. Entities reference
// each other by handle rather than by owning pointer, so no reference
// cycles exist between blocks and their owners.
type Handle uint32

// HandleNone is the zero handle; it never names a live entity.
const HandleNone Handle = 0

// BufferStats aggregates per-instance exchange counters for observability.
type BufferStats struct {
	Stores      int64 // blocks accepted by Store
	Retrievals  int64 // blocks handed out by Retrieve
	DirectPush  int64 // blocks that bypassed the queue
	PushBusy    int64 // direct pushes refused by the trigger
	AllocFailed int64 // allocations rejected for capacity
	Queued      int64 // current queue occupancy
	Allocated   int64 // outstanding allocated blocks or bytes
}
