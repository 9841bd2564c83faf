package queue

import "slices"

// Queue is a generic FIFO with a read cursor. Popped items are never
// revisited; Reset rewinds it with a fresh item set.
// It is not safe for concurrent use.
type Queue[T any] struct {
	items []T
	head  int
}

// New creates a queue holding a copy of items.
func New[T any](items ...T) *Queue[T] {
	return &Queue[T]{
		items: slices.Clone(items),
	}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.items = append(q.items, items...)
}

// Pop removes and returns the first item. ok is false if the queue is empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	if q.head >= len(q.items) {
		return item, false
	}
	item = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	return item, true
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	return q.head >= len(q.items)
}

// Len returns the number of items left in the queue.
func (q *Queue[T]) Len() int {
	return len(q.items) - q.head
}

// Consumed returns how many items have been popped since the last Reset.
func (q *Queue[T]) Consumed() int {
	return q.head
}

// Reset discards remaining items and refills the queue with a copy of items.
func (q *Queue[T]) Reset(items ...T) {
	q.items = slices.Clone(items)
	q.head = 0
}

// Drain removes and returns every remaining item and rewinds the cursor.
func (q *Queue[T]) Drain() []T {
	items := slices.Clone(q.items[q.head:])
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	return items
}
