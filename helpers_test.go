package kernelsched

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubContext satisfies Context for tests that never actually dispatch: the
// scheduler is constructed but not started, so threads stay inert registry
// and queue entries.
type stubContext struct {
	entry func(token any)
}

func newStubContext() Context { return &stubContext{} }

func (c *stubContext) Init(fn func(token any)) { c.entry = fn }
func (c *stubContext) Adopt()                  {}

func (c *stubContext) Switch(next Context, token any) any {
	panic(`stubContext: unexpected switch`)
}

func (c *stubContext) Handoff(next Context, token any) {
	panic(`stubContext: unexpected handoff`)
}

// fakeClock is a manually advanced TimerSource with microsecond ticks.
type fakeClock struct {
	now atomic.Int64
}

func (c *fakeClock) Monotonic() uint64 { return uint64(c.now.Load() / 1000) }
func (c *fakeClock) Measure() TimeSpec { return TimeSpec(c.now.Load()) }

func (c *fakeClock) FromDuration(d time.Duration) TimeSpec {
	return TimeSpec(d / time.Microsecond)
}

func (c *fakeClock) IntoDuration(v TimeSpec) time.Duration {
	return time.Duration(v) * time.Microsecond
}

func (c *fakeClock) advance(d time.Duration) {
	c.now.Add(int64(d / time.Microsecond))
}

func newTestScheduler(t *testing.T, cpus, performanceCPUs int) (*Scheduler, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	// move off the zero timestamp, which reads as always-expired
	clock.advance(time.Second)
	s, err := New(Config{
		CPUs:            cpus,
		PerformanceCPUs: performanceCPUs,
		StackSize:       4096,
		TimerSource:     clock,
		NewContext:      newStubContext,
	})
	require.NoError(t, err)
	return s, clock
}

// catchFault runs fn and returns the *Fault it panics with, or nil when fn
// returns normally.
func catchFault(fn func()) (f *Fault) {
	defer func() {
		if r := recover(); r != nil {
			var ok bool
			if f, ok = r.(*Fault); !ok {
				panic(r)
			}
		}
	}()
	fn()
	return nil
}

func requireFault(t *testing.T, code string, fn func()) {
	t.Helper()
	f := catchFault(fn)
	require.NotNil(t, f, `expected a fault with code %s`, code)
	require.Equal(t, code, f.Code)
}

// spawnInert creates a runnable thread that will never be dispatched, for
// exercising queue and registry behavior in isolation.
func spawnInert(t *testing.T, s *Scheduler, priority Priority, name string) ThreadHandle {
	t.Helper()
	handle, err := s.WithPriority(priority).Start(func(uintptr) {}, 0, name)
	require.NoError(t, err)
	return handle
}
