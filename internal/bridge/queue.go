package bridge

import "sync"

// opQueue is a thread-safe FIFO queue of submitted operations.
//
// The queue is unbounded so a burst of submitters never blocks on
// queue capacity, only on their own operation's completion.
//
// The signal channel (buffered, size 1) coalesces wakeups for the
// single worker draining the queue.
type opQueue struct {
	mu     sync.Mutex
	tasks  []*task
	closed bool
	signal chan struct{}
}

func newOpQueue() *opQueue {
	return &opQueue{
		tasks:  make([]*task, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a task to the back of the queue.
// Returns false if the queue is closed.
func (q *opQueue) Enqueue(t *task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front task without blocking.
func (q *opQueue) TryDequeue() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}
	t := q.tasks[0]

	// Nil the slot so the backing array does not retain the task (and
	// its captured closure) until reallocation.
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return t, true
}

// Wait returns the wakeup channel; closed when the queue closes.
func (q *opQueue) Wait() <-chan struct{} {
	return q.signal
}

// Close rejects further enqueues and wakes the worker.
func (q *opQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Drain removes and returns every queued task. Used on shutdown to
// fail pending submitters instead of leaving them blocked.
func (q *opQueue) Drain() []*task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.tasks
	q.tasks = nil
	return out
}
