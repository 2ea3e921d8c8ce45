// File: buffer/wait.go
// Author: momentics <momentics@gmail.com>
//
// Blocking helpers over the non-blocking instance operations. A caller
// suspends on the instance's wakeup channel, never on the lock, and a
// context cancellation abandons the wait before any block changes
// hands.

package buffer

import (
	"context"

	"github.com/momentics/zio/api"
)

// RetrWait pops the head block, suspending until one is stored or ctx
// is cancelled.
func RetrWait(ctx context.Context, bi api.BufferInstance) (*api.Block, error) {
	for {
		if blk := bi.RetrBlock(); blk != nil {
			return blk, nil
		}
		select {
		case <-bi.ReadReady():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// AllocWait allocates a block, suspending while the instance is at
// capacity until space is freed or ctx is cancelled.
func AllocWait(ctx context.Context, bi api.BufferInstance, datalen int) (*api.Block, error) {
	for {
		blk, err := bi.AllocBlock(datalen)
		if err == nil {
			return blk, nil
		}
		if err != api.ErrNoSpace {
			return nil, err
		}
		select {
		case <-bi.WriteReady():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
