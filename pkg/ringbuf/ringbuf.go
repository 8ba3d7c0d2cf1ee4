package ringbuf

import "encoding/json"

// Buffer is a fixed-capacity FIFO that evicts the oldest item once full.
// It is not safe for concurrent use; callers guard it with their own lock.
type Buffer[T any] struct {
	items []T
	start int
	size  int
}

// New creates a buffer holding at most capacity items.
// A capacity below 1 is treated as 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends an item, evicting the oldest one when the buffer is full.
func (b *Buffer[T]) Push(item T) {
	if b.size < len(b.items) {
		b.items[(b.start+b.size)%len(b.items)] = item
		b.size++
		return
	}
	b.items[b.start] = item
	b.start = (b.start + 1) % len(b.items)
}

// Len returns the number of stored items.
func (b *Buffer[T]) Len() int {
	return b.size
}

// Cap returns the maximum number of items.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// Items returns the stored items, oldest first.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.start+i)%len(b.items)]
	}
	return out
}

// Clone returns an independent copy.
func (b *Buffer[T]) Clone() *Buffer[T] {
	if b == nil {
		return nil
	}
	items := make([]T, len(b.items))
	copy(items, b.items)
	return &Buffer[T]{items: items, start: b.start, size: b.size}
}

// MarshalJSON encodes the buffer as a plain array, oldest first.
func (b *Buffer[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Items())
}

// UnmarshalJSON keeps the current capacity (default 100 for a zero buffer)
// and pushes every decoded item in order.
func (b *Buffer[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if len(b.items) == 0 {
		b.items = make([]T, 100)
	}
	b.start, b.size = 0, 0
	for _, item := range items {
		b.Push(item)
	}
	return nil
}
