package hal

import "time"

// EdgeQueueSize is the number of edges an EdgeQueue buffers between drains.
const EdgeQueueSize = 32

// Edge is a level change captured by an interrupt handler.
type Edge struct {
	Line  LineID
	Level bool
	At    time.Time
}

// EdgeQueue hands edges from interrupt context to a goroutine. Push is
// safe in an interrupt handler: it neither allocates nor blocks. Drain
// dispatches the buffered edges through a Registry, so edge handlers and
// everything they call run outside interrupt context.
type EdgeQueue struct {
	mu      Critical
	buf     [EdgeQueueSize]Edge
	head    int
	n       int
	dropped uint32

	// capture time of the edge being dispatched by Drain
	stamp       time.Time
	dispatching bool
}

// Push queues e. It reports false and counts a drop when the queue is full.
func (q *EdgeQueue) Push(e Edge) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == EdgeQueueSize {
		q.dropped++
		return false
	}
	q.buf[(q.head+q.n)%EdgeQueueSize] = e
	q.n++
	return true
}

// Pop removes the oldest edge.
func (q *EdgeQueue) Pop() (Edge, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return Edge{}, false
	}
	e := q.buf[q.head]
	q.head = (q.head + 1) % EdgeQueueSize
	q.n--
	return e, true
}

// Len returns the number of queued edges.
func (q *EdgeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Dropped returns the number of edges lost to a full queue.
func (q *EdgeQueue) Dropped() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Drain dispatches every queued edge to r in capture order and returns
// how many were taken. Edges for unregistered lines are discarded.
func (q *EdgeQueue) Drain(r *Registry) int {
	n := 0
	for {
		e, ok := q.Pop()
		if !ok {
			return n
		}
		n++

		q.mu.Lock()
		q.stamp = e.At
		q.dispatching = true
		q.mu.Unlock()

		r.Dispatch(e.Line, e.Level)

		q.mu.Lock()
		q.dispatching = false
		q.mu.Unlock()
	}
}

// Lag returns how long ago the edge being dispatched was captured. Outside
// Drain it is zero.
func (q *EdgeQueue) Lag() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.dispatching {
		return 0
	}
	return time.Since(q.stamp)
}
