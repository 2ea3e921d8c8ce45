// File: device/stream.go
// Author: momentics <momentics@gmail.com>
//
// Byte-stream access to an input channel. A Stream consumes blocks
// one at a time and serves partial reads out of the current block,
// with the control record available exactly once per block before or
// during its payload.

package device

import (
	"context"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/control"
)

// Stream adapts one input channel to sequential reads.
type Stream struct {
	cs  *ChannelSet
	idx int
	cur *api.Block
}

// Stream opens a byte-stream reader over channel i.
func (cs *ChannelSet) Stream(i int) (*Stream, error) {
	if _, err := cs.chanAt(i, api.DirInput); err != nil {
		return nil, err
	}
	return &Stream{cs: cs, idx: i}, nil
}

// Control delivers the control record of the stream's current block,
// fetching the next block when none is held. Each block's control is
// delivered at most once; asking again before its payload is drained
// yields ErrInvalidState.
func (s *Stream) Control(ctx context.Context) (control.Control, error) {
	if err := s.ensure(ctx); err != nil {
		return control.Control{}, err
	}
	if s.cur.CDone() {
		return control.Control{}, api.ErrInvalidState
	}
	s.cur.MarkCDone()
	return *s.cur.Ctrl(), nil
}

// Read copies payload bytes into p, blocking for a block only when
// none is held. A block fully consumed is released back to its buffer
// before the next read fetches a fresh one.
func (s *Stream) Read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}
	n := copy(p, s.cur.Data[s.cur.UOff:])
	s.cur.UOff += n
	if s.cur.Remaining() == 0 {
		err := s.cs.ReleaseBlock(s.idx, s.cur)
		s.cur = nil
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Close releases a partially consumed block, discarding its remainder.
func (s *Stream) Close() error {
	if s.cur == nil {
		return nil
	}
	err := s.cs.ReleaseBlock(s.idx, s.cur)
	s.cur = nil
	return err
}

func (s *Stream) ensure(ctx context.Context) error {
	if s.cur != nil {
		return nil
	}
	blk, err := s.cs.ReadBlock(ctx, s.idx)
	if err != nil {
		return err
	}
	s.cur = blk
	return nil
}
