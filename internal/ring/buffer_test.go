package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_FillsInOrder(t *testing.T) {
	b := New[int](4)
	b.Push(1)
	b.Push(2)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 4, b.Cap())
	assert.Equal(t, []int{1, 2}, b.Slice())
}

func TestBuffer_EvictsOldest(t *testing.T) {
	for _, tc := range []struct {
		name     string
		capacity int
		inserts  int
	}{
		{"exactly full", 5, 5},
		{"one over", 5, 6},
		{"wrapped twice", 5, 13},
		{"capacity one", 1, 10},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := New[int](tc.capacity)
			for i := 0; i < tc.inserts; i++ {
				b.Push(i)
			}

			want := make([]int, 0, tc.capacity)
			for i := tc.inserts - tc.capacity; i < tc.inserts; i++ {
				want = append(want, i)
			}
			assert.Equal(t, tc.capacity, b.Len())
			assert.Equal(t, want, b.Slice())
		})
	}
}

func TestBuffer_SliceIsACopy(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	b.Push(2)

	s := b.Slice()
	s[0] = 99

	assert.Equal(t, []int{1, 2}, b.Slice())
}

func TestBuffer_Tail(t *testing.T) {
	b := New[int](4)
	for i := 1; i <= 6; i++ {
		b.Push(i)
	}

	assert.Equal(t, []int{5, 6}, b.Tail(2))
	assert.Equal(t, []int{3, 4, 5, 6}, b.Tail(10))
	assert.Empty(t, b.Tail(0))
}

func TestBuffer_Last(t *testing.T) {
	b := New[string](2)
	_, ok := b.Last()
	assert.False(t, ok)

	b.Push("a")
	b.Push("b")
	b.Push("c")
	last, ok := b.Last()
	assert.True(t, ok)
	assert.Equal(t, "c", last)
}

func TestBuffer_Reset(t *testing.T) {
	b := New[int](3)
	for i := 0; i < 5; i++ {
		b.Push(i)
	}
	b.Reset()

	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Slice())

	b.Push(7)
	assert.Equal(t, []int{7}, b.Slice())
}

func TestBuffer_ZeroCapacity(t *testing.T) {
	b := New[int](0)
	b.Push(1)

	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Slice())
	_, ok := b.Last()
	assert.False(t, ok)
}
