// File: buffer/options.go
// Author: momentics <momentics@gmail.com>
//
// Construction options for buffer instances.

package buffer

import (
	"github.com/rs/zerolog"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/stats"
)

// Defaults mirror the stock attribute values of the backing stores:
// sixteen blocks for the list store, 128 KiB for the arena store.
const (
	DefaultMaxLen   = 16
	DefaultMaxBytes = 128 * 1024
)

// Options configures a buffer instance at channel-attach time.
type Options struct {
	// Direction of the owning channel.
	Direction api.Direction

	// ChanIdx is the channel index passed to the trigger on push/pull.
	ChanIdx int

	// Owner is the registry handle of the owning channel, stamped on
	// every allocated block.
	Owner api.Handle

	// MaxLen bounds the outstanding block count (list store).
	MaxLen int

	// MaxBytes sizes the contiguous region (arena store).
	MaxBytes int

	// MergeData enables coalescing of contiguous queued blocks
	// (arena store only).
	MergeData bool

	// Logger receives debug events; defaults to a no-op logger.
	Logger *zerolog.Logger

	// Metrics, when set, receives exchange counters under
	// MetricsPrefix.
	Metrics       *stats.Registry
	MetricsPrefix string
}

func (o Options) withDefaults() Options {
	if o.MaxLen <= 0 {
		o.MaxLen = DefaultMaxLen
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	if o.MetricsPrefix == "" {
		o.MetricsPrefix = "buffer"
	}
	return o
}
