// Package queue implements the Job Queue: a bounded, thread-safe set-queue
// that deduplicates pending job names. Adding a name already queued is a
// no-op; Take blocks until a name is available.
//
// A generic library set-queue would fit here, but nothing in the example
// corpus ships one and the semantics (bounded capacity, block-on-full,
// dedup-on-put) are a handful of lines over sync.Mutex + sync.Cond — see
// DESIGN.md for why this stays on the standard library.
package queue

import (
	"sync"

	"github.com/dshaw/letl-go/domain"
)

// SetQueue is a FIFO queue of job names with at-most-one-present dedup.
type SetQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	capacity int
	order    []string
	present  map[string]struct{}
	closed   bool
}

// New builds a SetQueue with the given capacity (conventionally the
// worker count).
func New(capacity int) *SetQueue {
	q := &SetQueue{
		capacity: capacity,
		present:  make(map[string]struct{}, capacity),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Put enqueues name, blocking while the queue is full. If name is already
// queued, Put is a no-op and returns immediately. Returns
// domain.ErrQueueClosed if the queue has been closed for shutdown.
func (q *SetQueue) Put(name string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return domain.ErrQueueClosed
	}
	if _, ok := q.present[name]; ok {
		return nil
	}
	for len(q.order) >= q.capacity && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return domain.ErrQueueClosed
	}

	q.order = append(q.order, name)
	q.present[name] = struct{}{}
	q.notEmpty.Signal()
	return nil
}

// Take blocks until a name is available and removes it from the set,
// preserving FIFO insertion order. Returns domain.ErrQueueClosed once the
// queue has been closed.
func (q *SetQueue) Take() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.order) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.order) == 0 && q.closed {
		return "", domain.ErrQueueClosed
	}

	name := q.order[0]
	q.order = q.order[1:]
	delete(q.present, name)
	q.notFull.Signal()
	return name, nil
}

// Len returns the number of distinct names currently queued.
func (q *SetQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Contains reports whether name is currently queued.
func (q *SetQueue) Contains(name string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.present[name]
	return ok
}

// Close unblocks every pending and future Put/Take with
// domain.ErrQueueClosed, discarding anything still queued. Used on
// supervisor shutdown so workers stop waiting on an empty queue.
func (q *SetQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.order = nil
	q.present = make(map[string]struct{})
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
