package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		b, err := New[int](c)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
		assert.Nil(t, b)
	}
}

func TestBuffer_Empty(t *testing.T) {
	b, err := New[int](4)
	require.NoError(t, err)

	assert.True(t, b.Empty())
	assert.False(t, b.Full())
	assert.Equal(t, 0, b.Available())
	assert.Equal(t, 4, b.Capacity())

	_, ok := b.Oldest()
	assert.False(t, ok)
	_, ok = b.Latest()
	assert.False(t, ok)

	// Discard on empty is a no-op
	b.Discard()
	assert.Equal(t, 0, b.Available())
}

func TestBuffer_InsertionOrder(t *testing.T) {
	b, err := New[int](5)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		b.Push(i)
	}
	assert.True(t, b.Full())

	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, 5, latest)

	var got []int
	for !b.Empty() {
		v, ok := b.Oldest()
		require.True(t, ok)
		got = append(got, v)
		b.Discard()
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestBuffer_OverflowEvictsOldest(t *testing.T) {
	b, err := New[int](3)
	require.NoError(t, err)

	b.Push(1)
	b.Push(2)
	b.Push(3)
	b.Push(4)

	assert.Equal(t, 3, b.Available())
	assert.True(t, b.Full())
	v, ok := b.Oldest()
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, []int{2, 3, 4}, b.Slice(nil))
}

func TestBuffer_WrapAround(t *testing.T) {
	b, err := New[int](4)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		b.Push(i)
		if i%3 == 2 {
			b.Discard()
		}
	}
	// 10 pushes, 3 discards, capped at 4
	assert.Equal(t, 4, b.Available())
	assert.Equal(t, []int{6, 7, 8, 9}, b.Slice(nil))
}

func TestBuffer_Flush(t *testing.T) {
	b, err := New[string](2)
	require.NoError(t, err)

	b.Push("a")
	b.Push("b")
	b.Push("c")
	b.Flush()

	assert.Equal(t, 0, b.Available())
	assert.True(t, b.Empty())
	assert.False(t, b.Full())

	b.Push("d")
	v, ok := b.Oldest()
	require.True(t, ok)
	assert.Equal(t, "d", v)
}

func TestBuffer_SliceReusesDst(t *testing.T) {
	b, err := New[int](8)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		b.Push(i)
	}

	dst := make([]int, 0, 8)
	got := b.Slice(dst)
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Equal(t, 8, cap(got), "should reuse dst capacity")

	small := make([]int, 0, 1)
	got = b.Slice(small)
	assert.Equal(t, []int{0, 1, 2}, got)
}
