// Package ring provides a fixed-capacity FIFO buffer backed by a single slice.
//
// Once full, every Push overwrites the oldest entry, so memory stays constant
// no matter how long the session runs.
package ring

// Buffer is a fixed-capacity ring buffer. Not safe for concurrent use.
type Buffer[T any] struct {
	data []T
	head int // index of the oldest element
	size int
}

// New creates a Buffer holding at most capacity elements.
// A capacity of zero or less retains nothing.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer[T]{data: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when the buffer is full.
func (b *Buffer[T]) Push(v T) {
	n := len(b.data)
	if n == 0 {
		return
	}
	if b.size < n {
		b.data[(b.head+b.size)%n] = v
		b.size++
		return
	}
	b.data[b.head] = v
	b.head = (b.head + 1) % n
}

func (b *Buffer[T]) Len() int { return b.size }

func (b *Buffer[T]) Cap() int { return len(b.data) }

// Slice returns a copy of the contents, oldest first.
func (b *Buffer[T]) Slice() []T {
	return b.Tail(b.size)
}

// Tail returns a copy of the newest n elements, oldest first.
func (b *Buffer[T]) Tail(n int) []T {
	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	start := (b.head + b.size - n) % len(b.data)
	k := copy(out, b.data[start:min(start+n, len(b.data))])
	copy(out[k:], b.data[:n-k])
	return out
}

// Last returns the newest element.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.data[(b.head+b.size-1)%len(b.data)], true
}

// Reset empties the buffer without releasing its storage.
func (b *Buffer[T]) Reset() {
	var zero T
	for i := range b.data {
		b.data[i] = zero
	}
	b.head = 0
	b.size = 0
}
