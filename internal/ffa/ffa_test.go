// File: internal/ffa/ffa_test.go
// Author: momentics <momentics@gmail.com>

package ffa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocWalksForward(t *testing.T) {
	f := New(0, 100)

	a, ok := f.Alloc(10)
	require.True(t, ok)
	b, ok := f.Alloc(20)
	require.True(t, ok)
	c, ok := f.Alloc(30)
	require.True(t, ok)

	assert.Equal(t, uint64(0), a)
	assert.Equal(t, uint64(10), b)
	assert.Equal(t, uint64(30), c)
	assert.Equal(t, uint64(40), f.FreeBytes())
}

func TestAllocExhaustion(t *testing.T) {
	f := New(0, 64)

	_, ok := f.Alloc(64)
	require.True(t, ok)
	_, ok = f.Alloc(1)
	assert.False(t, ok)

	// nothing larger than the region ever fits
	g := New(0, 64)
	_, ok = g.Alloc(65)
	assert.False(t, ok)
}

func TestFreeMakesRoomAgain(t *testing.T) {
	f := New(0, 100)

	a, _ := f.Alloc(40)
	b, _ := f.Alloc(40)
	_, ok := f.Alloc(40)
	require.False(t, ok)

	require.NoError(t, f.FreeS(a, 40))
	off, ok := f.Alloc(40)
	require.True(t, ok)
	assert.Equal(t, a, off)

	require.NoError(t, f.FreeS(b, 40))
	assert.Equal(t, uint64(60), f.FreeBytes())
}

func TestFreeMergesNeighbours(t *testing.T) {
	f := New(0, 90)

	a, _ := f.Alloc(30)
	b, _ := f.Alloc(30)
	c, _ := f.Alloc(30)

	// free the outer two, then the middle: all three must coalesce
	require.NoError(t, f.FreeS(a, 30))
	require.NoError(t, f.FreeS(c, 30))
	require.NoError(t, f.FreeS(b, 30))

	ext := f.Extents()
	require.Len(t, ext, 1)
	assert.Equal(t, uint64(0), ext[0].Begin)
	assert.Equal(t, uint64(90), ext[0].End)
	assert.False(t, ext[0].Busy)

	// a full-region allocation now succeeds
	_, ok := f.Alloc(90)
	assert.True(t, ok)
}

func TestDoubleFreeDetected(t *testing.T) {
	f := New(0, 100)
	a, _ := f.Alloc(10)
	require.NoError(t, f.FreeS(a, 10))
	assert.Error(t, f.FreeS(a, 10))
}

func TestFreeUnknownRange(t *testing.T) {
	f := New(0, 100)
	_, _ = f.Alloc(10)
	assert.Error(t, f.FreeS(50, 10))
}

func TestFirstFitReusesGap(t *testing.T) {
	f := New(0, 100)

	a, _ := f.Alloc(20)
	f.Alloc(20)
	require.NoError(t, f.FreeS(a, 20))
	f.Reset()

	// the gap at the start is the first fit for a small request
	off, ok := f.Alloc(10)
	require.True(t, ok)
	assert.Equal(t, uint64(0), off)
}

func TestExtentsOffsetOrder(t *testing.T) {
	f := New(0, 60)
	f.Alloc(20)
	b, _ := f.Alloc(20)
	f.Alloc(20)
	require.NoError(t, f.FreeS(b, 20))

	ext := f.Extents()
	require.Len(t, ext, 3)
	var prev uint64
	for _, e := range ext {
		assert.GreaterOrEqual(t, e.Begin, prev)
		assert.Greater(t, e.End, e.Begin)
		prev = e.End
	}
	assert.True(t, ext[0].Busy)
	assert.False(t, ext[1].Busy)
	assert.True(t, ext[2].Busy)
}
