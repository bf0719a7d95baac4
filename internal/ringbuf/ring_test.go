package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_PushBelowCapacity(t *testing.T) {
	r := New[int](3)

	_, evicted := r.Push(1)
	assert.False(t, evicted)
	r.Push(2)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []int{1, 2}, r.Items())
}

func TestRing_EvictsOldestWhenFull(t *testing.T) {
	r := New[int](3)
	for i := 1; i <= 3; i++ {
		r.Push(i)
	}

	old, evicted := r.Push(4)
	require.True(t, evicted)
	assert.Equal(t, 1, old)
	assert.Equal(t, []int{2, 3, 4}, r.Items())
	assert.Equal(t, []int{4, 3, 2}, r.Reversed())
}

func TestRing_LengthNeverExceedsCapacity(t *testing.T) {
	r := New[int](150)
	for i := 0; i < 1000; i++ {
		before := r.Len()
		r.Push(i)
		assert.LessOrEqual(t, r.Len(), 150)
		if before == 150 {
			// one in, one out
			assert.Equal(t, 150, r.Len())
			assert.Equal(t, i-149, r.At(0))
		}
	}
	newest, ok := r.Newest()
	require.True(t, ok)
	assert.Equal(t, 999, newest)
}

func TestRing_EachStopsEarly(t *testing.T) {
	r := New[int](5)
	for i := 0; i < 5; i++ {
		r.Push(i)
	}

	var seen []int
	r.Each(func(_ int, v int) bool {
		seen = append(seen, v)
		return v < 2
	})
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestRing_ZeroCapacityClamped(t *testing.T) {
	r := New[int](0)
	r.Push(7)
	r.Push(8)
	assert.Equal(t, []int{8}, r.Items())
}
