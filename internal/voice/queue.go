package voice

// fifo is an explicit first-in-first-out queue with a single drain
// operation. Pending peers and pending signals both rely on its ordering
// guarantee: Drain returns items exactly in arrival order and leaves the
// queue empty.
type fifo[T any] struct {
	items []T
}

func (q *fifo[T]) Push(v T) {
	q.items = append(q.items, v)
}

// Drain returns every queued item in arrival order and empties the queue.
func (q *fifo[T]) Drain() []T {
	out := q.items
	q.items = nil
	return out
}

func (q *fifo[T]) Len() int {
	return len(q.items)
}
