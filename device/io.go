// File: device/io.go
// Author: momentics <momentics@gmail.com>
//
// User-side data path: blocking and non-blocking block exchange plus
// poll-style readiness. Blocking variants honour context cancellation.

package device

import (
	"context"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/buffer"
)

// ReadBlock pops the next completed block of channel i, waiting until
// one is available or ctx is done. Input channel sets only. The caller
// owns the block and must return it with ReleaseBlock.
func (cs *ChannelSet) ReadBlock(ctx context.Context, i int) (*api.Block, error) {
	ch, err := cs.chanAt(i, api.DirInput)
	if err != nil {
		return nil, err
	}
	return buffer.RetrWait(ctx, ch.buf)
}

// TryReadBlock is the non-blocking ReadBlock: ErrWouldBlock when the
// queue is empty. The pull hint to the trigger still fires, so a
// subsequent retry may find data.
func (cs *ChannelSet) TryReadBlock(i int) (*api.Block, error) {
	ch, err := cs.chanAt(i, api.DirInput)
	if err != nil {
		return nil, err
	}
	blk := ch.buf.RetrBlock()
	if blk == nil {
		return nil, api.ErrWouldBlock
	}
	return blk, nil
}

// ReleaseBlock returns a consumed block's capacity to channel i.
func (cs *ChannelSet) ReleaseBlock(i int, blk *api.Block) error {
	ch, err := cs.chanAt(i, cs.dir)
	if err != nil {
		return err
	}
	return ch.buf.FreeBlock(blk)
}

// WriteBlock queues payload for output on channel i, waiting for
// capacity when the buffer is full. The payload length must be a
// multiple of the sample size.
func (cs *ChannelSet) WriteBlock(ctx context.Context, i int, payload []byte) error {
	ch, err := cs.chanAt(i, api.DirOutput)
	if err != nil {
		return err
	}
	if len(payload) == 0 || len(payload)%int(cs.ssize) != 0 {
		return api.NewError(api.ErrCodeInvalidState, "payload not a whole number of samples").
			WithContext("len", len(payload))
	}
	blk, err := buffer.AllocWait(ctx, ch.buf, len(payload))
	if err != nil {
		return err
	}
	return ch.fillAndStore(blk, payload)
}

// TryWriteBlock is the non-blocking WriteBlock: ErrWouldBlock when the
// buffer has no room for the payload.
func (cs *ChannelSet) TryWriteBlock(i int, payload []byte) error {
	ch, err := cs.chanAt(i, api.DirOutput)
	if err != nil {
		return err
	}
	if len(payload) == 0 || len(payload)%int(cs.ssize) != 0 {
		return api.NewError(api.ErrCodeInvalidState, "payload not a whole number of samples").
			WithContext("len", len(payload))
	}
	blk, err := ch.buf.AllocBlock(len(payload))
	if err != nil {
		if err == api.ErrNoSpace {
			return api.ErrWouldBlock
		}
		return err
	}
	return ch.fillAndStore(blk, payload)
}

func (ch *Channel) fillAndStore(blk *api.Block, payload []byte) error {
	copy(blk.Data, payload)
	ctrl := blk.Ctrl()
	ctrl.CopyMeta(ch.cur)
	ctrl.NSamples = uint32(len(payload) / int(ch.cset.ssize))
	return ch.buf.StoreBlock(blk)
}

// Poll reports readiness of channel i without blocking: readable when
// a block is queued, writable when an allocation would succeed.
func (cs *ChannelSet) Poll(i int) (readable, writable bool, err error) {
	ch, err := cs.chanAt(i, cs.dir)
	if err != nil {
		return false, false, err
	}
	return ch.buf.Ready(), ch.buf.Space(), nil
}

func (cs *ChannelSet) chanAt(i int, want api.Direction) (*Channel, error) {
	if cs.dir != want {
		return nil, api.ErrBadDirection
	}
	if i < 0 || i >= len(cs.chans) {
		return nil, api.NewError(api.ErrCodeNotFound, "no such channel").
			WithContext("chan", i)
	}
	return cs.chans[i], nil
}
