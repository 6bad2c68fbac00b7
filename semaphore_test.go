package kernelsched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphore_initialCount(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)
	sem := s.NewSemaphore(2)
	sem.Wait()
	sem.Wait() // both consume the initial count without blocking
}

func TestSemaphore_signalBeforeWait(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)
	sem := s.NewSemaphore(0)
	sem.Signal()
	sem.Wait()
}

func TestSemaphore_externalWaiterBlocks(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)
	sem := s.NewSemaphore(0)

	done := make(chan struct{})
	go func() {
		sem.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal(`wait returned without a signal`)
	case <-time.After(20 * time.Millisecond):
	}

	sem.Signal()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal(`signal did not release the waiter`)
	}
}

func TestSemaphore_waitersServedFIFO(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)
	sem := s.NewSemaphore(0)

	results := make(chan int, 2)
	ready := make(chan struct{})
	go func() {
		close(ready)
		sem.Wait()
		results <- 1
	}()
	<-ready
	require.Eventually(t, func() bool {
		sem.mu.Lock()
		defer sem.mu.Unlock()
		return len(sem.waiters) == 1
	}, 5*time.Second, time.Millisecond)

	go func() {
		sem.Wait()
		results <- 2
	}()
	require.Eventually(t, func() bool {
		sem.mu.Lock()
		defer sem.mu.Unlock()
		return len(sem.waiters) == 2
	}, 5*time.Second, time.Millisecond)

	sem.Signal()
	assert.Equal(t, 1, <-results, `the oldest waiter wakes first`)
	sem.Signal()
	assert.Equal(t, 2, <-results)
}

func TestSemaphore_signalWakesThreadWaiter(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)
	sem := s.NewSemaphore(0)

	// simulate a scheduler thread that registered and went to sleep
	handle := spawnInert(t, s, PriorityNormal, `waiter`)
	_, ok := s.queueNormal.dequeue()
	require.True(t, ok)
	td, _ := s.threads.lookup(handle)
	td.attr.clear(attrQueued)
	td.sleepCount.Add(1)
	sem.mu.Lock()
	sem.count--
	sem.waiters = append(sem.waiters, semWaiter{thread: handle})
	sem.mu.Unlock()

	sem.Signal()

	assert.False(t, td.isAsleep())
	got, ok := s.queueNormal.dequeue()
	require.True(t, ok)
	assert.Equal(t, handle, got)
}

func TestAsyncWaiter(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)
	w := s.NewAsyncWaiter()
	w.Signal()
	w.Wait() // consumes the buffered signal without blocking
}
