// File: internal/ffa/ffa.go
// Author: momentics <momentics@gmail.com>
//
// First-fit range allocator backing the arena buffer store.
//
// Cells form a circular doubly-linked list ordered by offset, each
// either free or busy, and the search head rotates to wherever the
// last allocation happened, so consecutive allocations tend to walk
// the region forward. Adjacent cells of equal status are merged, both
// after allocation and after free, keeping the list minimal.
//
// Since the free path merges cells, only sized frees are supported:
// the caller knows the size it allocated.

package ffa

import (
	"fmt"
	"sync"
)

const (
	statusFree = iota
	statusBusy
)

type cell struct {
	begin  uint64
	end    uint64 // first invalid offset
	status int
	next   *cell
	prev   *cell
}

// FFA is a first-fit allocator over the range [begin, end).
type FFA struct {
	mu   sync.Mutex
	head *cell // rotating search head
}

// Extent describes one cell, for debug probes and tests.
type Extent struct {
	Begin uint64
	End   uint64
	Busy  bool
}

// New creates an allocator over [begin, end).
func New(begin, end uint64) *FFA {
	c := &cell{begin: begin, end: end, status: statusFree}
	c.next = c
	c.prev = c
	return &FFA{head: c}
}

// Alloc reserves size bytes and returns the offset of the reservation.
// ok is false when no free cell is large enough.
func (f *FFA) Alloc(size uint64) (off uint64, ok bool) {
	if size == 0 {
		return 0, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.head
	for {
		if c.status == statusFree && c.end-c.begin >= size {
			break
		}
		c = c.next
		if c == f.head {
			return 0, false
		}
	}

	f.head = c
	if c.end-c.begin == size {
		// exactly right size
		c.status = statusBusy
		return c.begin, true
	}

	// split: nc is the busy head, the search head stays on the remainder
	nc := &cell{begin: c.begin, end: c.begin + size, status: statusBusy}
	c.begin = nc.end
	f.insertBefore(nc, c)
	off = nc.begin
	f.merge(nc)
	return off, true
}

// FreeS releases the range [off, off+size). Releasing a range that is
// not currently busy, or that spans cell boundaries the allocator never
// produced, is a programming error.
func (f *FFA) FreeS(off, size uint64) error {
	end := off + size
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.head
	for {
		if c.begin <= off && c.end >= end {
			break
		}
		c = c.next
		if c == f.head {
			return fmt.Errorf("ffa: free of unknown range [%d,%d)", off, end)
		}
	}
	if c.status == statusFree {
		return fmt.Errorf("ffa: double free of range [%d,%d)", off, end)
	}

	if c.begin != off {
		// keep a busy cell before the freed range
		prev := &cell{begin: c.begin, end: off, status: c.status}
		c.begin = off
		f.insertBefore(prev, c)
	}
	if c.end != end {
		// keep a busy cell after the freed range
		next := &cell{begin: end, end: c.end, status: c.status}
		c.end = end
		f.insertAfter(next, c)
	}
	c.status = statusFree
	f.merge(c)
	return nil
}

// Reset rotates the search head back to the lowest offset.
func (f *FFA) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.head
	low := c
	for c = c.next; c != f.head; c = c.next {
		if c.begin < low.begin {
			low = c
		}
	}
	f.head = low
}

// FreeBytes returns the total free capacity.
func (f *FFA) FreeBytes() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total uint64
	c := f.head
	for {
		if c.status == statusFree {
			total += c.end - c.begin
		}
		c = c.next
		if c == f.head {
			return total
		}
	}
}

// Extents snapshots the cell list in offset order.
func (f *FFA) Extents() []Extent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Extent
	c := f.head
	for {
		out = append(out, Extent{Begin: c.begin, End: c.end, Busy: c.status == statusBusy})
		c = c.next
		if c == f.head {
			break
		}
	}
	// rotate to offset order for stable output
	lowest := 0
	for i, e := range out {
		if e.Begin < out[lowest].Begin {
			lowest = i
		}
	}
	return append(out[lowest:], out[:lowest]...)
}

func (f *FFA) insertBefore(nc, at *cell) {
	nc.prev = at.prev
	nc.next = at
	at.prev.next = nc
	at.prev = nc
}

func (f *FFA) insertAfter(nc, at *cell) {
	nc.next = at.next
	nc.prev = at
	at.next.prev = nc
	at.next = nc
}

func (f *FFA) remove(c *cell) {
	c.prev.next = c.next
	c.next.prev = c.prev
	if f.head == c {
		f.head = c.next
	}
}

// merge coalesces c with its numeric neighbours of equal status. The
// wrap point never matches because end==begin only holds for cells
// that are truly adjacent in offset space.
func (f *FFA) merge(c *cell) {
	if next := c.next; next != c && c.status == next.status && c.end == next.begin {
		c.end = next.end
		f.remove(next)
	}
	if prev := c.prev; prev != c && c.status == prev.status && c.begin == prev.end {
		prev.end = c.end
		f.remove(c)
	}
}
