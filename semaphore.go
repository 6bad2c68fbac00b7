package kernelsched

import "sync"

// Semaphore is a counting semaphore integrated with the scheduler: Wait
// blocks the calling thread by removing it from scheduling (or parks the
// calling goroutine, for callers outside the scheduler), Signal never
// blocks. Waiters are served FIFO.
type Semaphore struct {
	sched   *Scheduler
	mu      sync.Mutex
	count   int64
	waiters []semWaiter
}

// A waiter is either a scheduler thread (woken via the run queues) or a bare
// goroutine (woken via its channel).
type semWaiter struct {
	thread ThreadHandle
	ch     chan struct{}
}

// NewSemaphore creates a semaphore with the given initial count.
func (s *Scheduler) NewSemaphore(count int64) *Semaphore {
	return &Semaphore{sched: s, count: count}
}

// Wait decrements the count, blocking the caller until a matching Signal
// when the count goes negative.
func (m *Semaphore) Wait() {
	m.mu.Lock()
	m.count--
	if m.count >= 0 {
		m.mu.Unlock()
		return
	}
	if handle, ok := m.sched.currentThreadHandle(); ok {
		m.waiters = append(m.waiters, semWaiter{thread: handle})
		m.mu.Unlock()
		m.sched.Sleep()
		return
	}
	ch := make(chan struct{})
	m.waiters = append(m.waiters, semWaiter{ch: ch})
	m.mu.Unlock()
	<-ch
}

// Signal increments the count and wakes the oldest waiter, if any. It never
// blocks and is safe at any IRQL.
func (m *Semaphore) Signal() {
	m.mu.Lock()
	m.count++
	var w semWaiter
	var woke bool
	if m.count <= 0 && len(m.waiters) > 0 {
		w = m.waiters[0]
		m.waiters = m.waiters[1:]
		woke = true
	}
	m.mu.Unlock()
	if !woke {
		return
	}
	if w.ch != nil {
		close(w.ch)
		return
	}
	m.sched.WakeThread(w.thread)
}

// AsyncWaiter is the counting primitive signaled by async timer events and
// awaited by cooperative tasks.
type AsyncWaiter struct {
	sem *Semaphore
}

// NewAsyncWaiter creates a waiter with zero capacity: the first Wait blocks
// until Signal.
func (s *Scheduler) NewAsyncWaiter() *AsyncWaiter {
	return &AsyncWaiter{sem: s.NewSemaphore(0)}
}

// Wait blocks the owning task until the waiter is signaled.
func (w *AsyncWaiter) Wait() { w.sem.Wait() }

// Signal releases one waiting task. It never blocks.
func (w *AsyncWaiter) Signal() { w.sem.Signal() }
