// Package queue provides the bounded FIFO used for session-bound input
// events and outbound bytes.
package queue

import (
	"sync"

	"pkt.systems/pixterm/schema"
)

// Bounded is a fixed-capacity FIFO. Producers never block: a full queue
// reports schema.ErrQueueSaturated. Consumers receive from C in a select.
type Bounded[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	closed bool
}

// NewBounded creates a queue holding at most depth items.
func NewBounded[T any](depth int) *Bounded[T] {
	if depth < 1 {
		depth = 1
	}
	return &Bounded[T]{ch: make(chan T, depth)}
}

// TryPush enqueues v without blocking.
func (q *Bounded[T]) TryPush(v T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return schema.ErrSessionClosed
	}
	select {
	case q.ch <- v:
		return nil
	default:
		return schema.ErrQueueSaturated
	}
}

// TryPop dequeues one item without blocking.
func (q *Bounded[T]) TryPop() (T, bool) {
	select {
	case v, ok := <-q.ch:
		return v, ok
	default:
		var zero T
		return zero, false
	}
}

// C exposes the receive side. It is closed by Close once drained.
func (q *Bounded[T]) C() <-chan T {
	return q.ch
}

// Len returns the number of queued items.
func (q *Bounded[T]) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Bounded[T]) Cap() int {
	return cap(q.ch)
}

// Close stops accepting items. Queued items remain receivable. Safe to call
// more than once.
func (q *Bounded[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Closed reports whether Close was called.
func (q *Bounded[T]) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
