package writer

import "sync"

// Buffer is a thread-safe ring buffer that doubles its capacity when
// full, so a slow flush never drops feed data.
type Buffer[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	head   int
	tail   int
	count  int
	closed bool

	pushed  int64
	popped  int64
	resizes int
}

// NewBuffer creates a buffer with the given initial capacity.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	b := &Buffer[T]{items: make([]T, capacity)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Push adds an item, growing the buffer if full.
// Returns false if the buffer is closed.
func (b *Buffer[T]) Push(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	if b.count == len(b.items) {
		b.grow()
	}

	b.items[b.tail] = item
	b.tail = (b.tail + 1) % len(b.items)
	b.count++
	b.pushed++

	b.cond.Signal()
	return true
}

// Pop removes and returns an item, blocking until one is available.
// Returns false once the buffer is closed and drained.
func (b *Buffer[T]) Pop() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	if b.count == 0 {
		var zero T
		return zero, false
	}

	return b.pop(), true
}

// TryPop removes and returns an item without blocking.
func (b *Buffer[T]) TryPop() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}

	return b.pop(), true
}

// Close closes the buffer. After closing, Push returns false and
// readers drain the remaining items.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// Len returns the current number of buffered items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current capacity.
func (b *Buffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Stats returns buffer counters.
func (b *Buffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:    b.count,
		Capacity: len(b.items),
		Pushed:   b.pushed,
		Popped:   b.popped,
		Resizes:  b.resizes,
	}
}

// BufferStats contains buffer counters.
type BufferStats struct {
	Count    int
	Capacity int
	Pushed   int64
	Popped   int64
	Resizes  int
}

// pop removes the head item. Must be called with lock held.
func (b *Buffer[T]) pop() T {
	item := b.items[b.head]
	var zero T
	b.items[b.head] = zero
	b.head = (b.head + 1) % len(b.items)
	b.count--
	b.popped++
	return item
}

// grow doubles the capacity. Must be called with lock held.
func (b *Buffer[T]) grow() {
	grown := make([]T, len(b.items)*2)
	if b.count > 0 {
		if b.head < b.tail {
			copy(grown, b.items[b.head:b.tail])
		} else {
			n := copy(grown, b.items[b.head:])
			copy(grown[n:], b.items[:b.tail])
		}
	}
	b.items = grown
	b.head = 0
	b.tail = b.count
	b.resizes++
}
