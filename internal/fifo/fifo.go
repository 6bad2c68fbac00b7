// Package fifo implements a bounded, lock-free, multi-producer
// multi-consumer FIFO queue.
//
// The queue is an array of slots, each tagged with a sequence number. A
// producer claims a slot by CAS on the tail cursor, a consumer by CAS on the
// head cursor; the sequence number tells each side whether the slot is ready
// for it. Enqueue fails fast with ErrFull rather than blocking, so callers
// can apply their own backoff.
package fifo

import (
	"errors"
	"sync/atomic"
)

// ErrFull is returned by Enqueue when the queue is at capacity.
var ErrFull = errors.New("fifo: queue is full")

type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// Queue is a bounded MPMC FIFO. The zero value is not usable; use New.
type Queue[T any] struct { // betteralign:ignore
	slots []slot[T]
	cap   uint64
	_     [48]byte      // pad head/tail onto separate cache lines //nolint:unused
	head  atomic.Uint64 // consumer cursor
	_     [56]byte      //nolint:unused
	tail  atomic.Uint64 // producer cursor
	_     [56]byte      //nolint:unused
}

// New creates a queue with the given capacity. Capacity must be positive.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("fifo: capacity must be positive")
	}
	q := &Queue[T]{
		slots: make([]slot[T], capacity),
		cap:   uint64(capacity),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// Cap returns the fixed capacity of the queue.
func (q *Queue[T]) Cap() int { return int(q.cap) }

// Len returns the approximate number of queued elements. It may be stale
// under concurrent modification.
func (q *Queue[T]) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if tail < head {
		return 0
	}
	n := tail - head
	if n > q.cap {
		n = q.cap
	}
	return int(n)
}

// Enqueue appends v, preserving FIFO order across concurrent producers.
// It returns ErrFull when the queue is at capacity.
func (q *Queue[T]) Enqueue(v T) error {
	pos := q.tail.Load()
	for {
		s := &q.slots[pos%q.cap]
		seq := s.seq.Load()
		switch {
		case seq == pos:
			// Slot is free for this ticket; claim it.
			if q.tail.CompareAndSwap(pos, pos+1) {
				s.val = v
				s.seq.Store(pos + 1)
				return nil
			}
			pos = q.tail.Load()
		case seq < pos:
			// Slot still holds an unconsumed element a full lap behind.
			return ErrFull
		default:
			// Another producer won this ticket; retry with a fresh one.
			pos = q.tail.Load()
		}
	}
}

// Dequeue removes and returns the oldest element, reporting false when the
// queue is empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	pos := q.head.Load()
	for {
		s := &q.slots[pos%q.cap]
		seq := s.seq.Load()
		switch {
		case seq == pos+1:
			// Slot holds an element for this ticket; claim it.
			if q.head.CompareAndSwap(pos, pos+1) {
				v := s.val
				var zero T
				s.val = zero // release for GC
				s.seq.Store(pos + q.cap)
				return v, true
			}
			pos = q.head.Load()
		case seq <= pos:
			var zero T
			return zero, false
		default:
			pos = q.head.Load()
		}
	}
}
