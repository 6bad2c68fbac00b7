package kernelsched

import "github.com/joeycumines/go-kernelsched/internal/fifo"

// threadQueue is a bounded concurrent FIFO of thread handles. Queues hold
// handles only, never records; a handle sits in at most one queue at a time,
// tracked by the QUEUED attribute bit.
type threadQueue struct {
	q *fifo.Queue[ThreadHandle]
}

func newThreadQueue(capacity int) *threadQueue {
	return &threadQueue{q: fifo.New[ThreadHandle](capacity)}
}

func (q *threadQueue) dequeue() (ThreadHandle, bool) {
	return q.q.Dequeue()
}

func (q *threadQueue) enqueue(handle ThreadHandle) error {
	return q.q.Enqueue(handle)
}
