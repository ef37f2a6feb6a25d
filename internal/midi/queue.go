package midi

import "sync/atomic"

// queue is the multi-producer single-consumer inbox between per-device
// input threads and the engine tick. Producers append under a short lock;
// the consumer swaps the whole slice out under the same lock and processes
// it lock-free afterwards, per spec §5 "Shared-resource policy".
type queue struct {
	mu      chan struct{} // binary semaphore, cheaper than sync.Mutex for this hot path
	pending []Message
	hasMsg  atomic.Bool
}

func newQueue() *queue {
	q := &queue{mu: make(chan struct{}, 1)}
	q.mu <- struct{}{}
	return q
}

func (q *queue) lock()   { <-q.mu }
func (q *queue) unlock() { q.mu <- struct{}{} }

// Push enqueues one message from a producer thread.
func (q *queue) Push(m Message) {
	q.lock()
	q.pending = append(q.pending, m)
	q.unlock()
	q.hasMsg.Store(true)
}

// HasMessage reports whether the queue is non-empty, checked once per tick
// before paying for the swap.
func (q *queue) HasMessage() bool {
	return q.hasMsg.Load()
}

// Drain swaps the producer list out for an empty one and returns the
// drained messages in FIFO arrival order. Safe to call even when empty.
func (q *queue) Drain() []Message {
	q.lock()
	drained := q.pending
	q.pending = nil
	q.hasMsg.Store(false)
	q.unlock()
	return drained
}
