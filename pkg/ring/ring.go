package ring

import "errors"

// ErrInvalidCapacity is returned when a buffer is created with a non-positive capacity.
var ErrInvalidCapacity = errors.New("ring: capacity must be greater than zero")

// Buffer is a fixed-capacity FIFO that keeps the most recent values.
// Pushing into a full buffer overwrites the oldest value.
// Internally a ring, externally ordered oldest to latest.
//
// Buffer is not safe for concurrent use.
type Buffer[T any] struct {
	buf  []T
	head int // index of the oldest value
	size int
}

// New creates a buffer holding at most capacity values.
func New[T any](capacity int) (*Buffer[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Buffer[T]{buf: make([]T, capacity)}, nil
}

// Push appends v, evicting the oldest value when the buffer is full.
func (b *Buffer[T]) Push(v T) {
	if b.size == len(b.buf) {
		b.buf[b.head] = v
		b.head = (b.head + 1) % len(b.buf)
		return
	}
	b.buf[(b.head+b.size)%len(b.buf)] = v
	b.size++
}

// Oldest returns the earliest retained value. ok is false when the buffer is empty.
func (b *Buffer[T]) Oldest() (v T, ok bool) {
	if b.size == 0 {
		return v, false
	}
	return b.buf[b.head], true
}

// Latest returns the most recently pushed value. ok is false when the buffer is empty.
func (b *Buffer[T]) Latest() (v T, ok bool) {
	if b.size == 0 {
		return v, false
	}
	return b.buf[(b.head+b.size-1)%len(b.buf)], true
}

// Discard removes the oldest value. It does nothing on an empty buffer.
func (b *Buffer[T]) Discard() {
	if b.size == 0 {
		return
	}
	var zero T
	b.buf[b.head] = zero
	b.head = (b.head + 1) % len(b.buf)
	b.size--
}

// Flush removes all values.
func (b *Buffer[T]) Flush() {
	clear(b.buf)
	b.head = 0
	b.size = 0
}

// Available returns the number of retained values.
func (b *Buffer[T]) Available() int { return b.size }

// Capacity returns the maximum number of retained values.
func (b *Buffer[T]) Capacity() int { return len(b.buf) }

// Empty reports whether the buffer holds no values.
func (b *Buffer[T]) Empty() bool { return b.size == 0 }

// Full reports whether the next Push evicts a value.
func (b *Buffer[T]) Full() bool { return b.size == len(b.buf) }

// Slice copies the retained values, oldest first, into dst.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
func (b *Buffer[T]) Slice(dst []T) []T {
	if cap(dst) >= b.size {
		dst = dst[:b.size]
	} else {
		dst = make([]T, b.size)
	}
	n := copy(dst, b.buf[b.head:min(b.head+b.size, len(b.buf))])
	copy(dst[n:], b.buf[:b.size-n])
	return dst
}
