package layout

import "github.com/roach88/structlayout/internal/provider"

// pendingQueue is the FIFO of named aggregates referenced by field types
// and not yet emitted. It may hold the same type several times; the
// visited set collapses repeats when the queue drains.
type pendingQueue struct {
	types []provider.TypeRef
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{types: make([]provider.TypeRef, 0, 16)}
}

// Enqueue adds t to the back of the queue.
func (q *pendingQueue) Enqueue(t provider.TypeRef) {
	q.types = append(q.types, t)
}

// Dequeue removes and returns the front type.
// Returns (nil, false) if the queue is empty.
func (q *pendingQueue) Dequeue() (provider.TypeRef, bool) {
	if len(q.types) == 0 {
		return nil, false
	}

	t := q.types[0]
	// Release the slot so the backing array does not pin the handle.
	q.types[0] = nil

	if len(q.types) == 1 {
		q.types = q.types[:0]
	} else {
		q.types = q.types[1:]
	}
	return t, true
}

func (q *pendingQueue) Len() int { return len(q.types) }
