package kernelsched

import (
	"sync"
	"sync/atomic"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ThreadHandle is an opaque, totally ordered key into the thread registry.
// Handles are issued monotonically and never reused while referenced; zero
// is never a valid handle.
type ThreadHandle uint64

// Personality is an attachable per-thread extension point, owned by
// whichever execution environment (e.g. a user-mode runtime) owns the
// thread. OnExit runs once, on the thread's own flow of control, when the
// thread exits.
type Personality interface {
	OnExit()
}

// Thread attribute bits.
const (
	attrQueued uint32 = 0b0000_0001
	attrZombie uint32 = 0b0000_1000
)

type threadAttributes struct {
	bits atomic.Uint32
}

func (a *threadAttributes) has(flag uint32) bool { return a.bits.Load()&flag != 0 }
func (a *threadAttributes) set(flag uint32)      { a.bits.Or(flag) }
func (a *threadAttributes) clear(flag uint32)    { a.bits.And(^flag) }

// testAndSet sets flag and reports whether it was already set.
func (a *threadAttributes) testAndSet(flag uint32) bool {
	return a.bits.Or(flag)&flag != 0
}

type threadData struct {
	// Architectural context.
	context Context
	stack   []byte

	pid    ProcessID
	handle ThreadHandle

	sem         *Semaphore
	personality Personality
	attr        threadAttributes
	sleepCount  atomic.Int64
	priority    Priority
	quantum     Quantum

	// Statistics. measure is the timestamp of the last accounting; load0 is
	// the raw busy-tick accumulator, load the scaled per-mille value.
	measure atomic.Int64
	cpuTime atomic.Int64
	load0   atomic.Uint32
	load    atomic.Uint32

	// Cooperative task executor; at most one, created on first use.
	executor *taskExecutor

	// running is the processor currently (or most recently) hosting this
	// thread, maintained by the post-switch hook.
	running atomic.Pointer[localScheduler]

	name string
}

func (t *threadData) isAsleep() bool {
	return t.sleepCount.Load() > 0
}

// statusChar is the one-character state used in thread listings: S asleep,
// z zombie, R queued/runnable, - running/other.
func (t *threadData) statusChar() byte {
	switch {
	case t.isAsleep():
		return 'S'
	case t.attr.has(attrZombie):
		return 'z'
	case t.attr.has(attrQueued):
		return 'R'
	default:
		return '-'
	}
}

// threadPool is the sole owner of thread records. A single mutex guards the
// map; records are referenced out before use, so lookups never hold the lock
// during use.
type threadPool struct {
	mu   sync.Mutex
	data map[ThreadHandle]*threadData
}

func (p *threadPool) add(t *threadData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		p.data = make(map[ThreadHandle]*threadData)
	}
	p.data[t.handle] = t
}

func (p *threadPool) remove(handle ThreadHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, handle)
}

func (p *threadPool) lookup(handle ThreadHandle) (*threadData, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.data[handle]
	return t, ok
}

// snapshot returns the live records ordered by handle.
func (p *threadPool) snapshot() []*threadData {
	p.mu.Lock()
	handles := maps.Keys(p.data)
	slices.Sort(handles)
	out := make([]*threadData, len(handles))
	for i, h := range handles {
		out[i] = p.data[h]
	}
	p.mu.Unlock()
	return out
}

// CurrentThread returns the thread running on the calling flow of control,
// if the caller is a scheduler thread.
func (s *Scheduler) CurrentThread() (ThreadHandle, bool) {
	return s.currentThreadHandle()
}

// ThreadName returns the display name of a thread, or false when the handle
// no longer resolves.
func (s *Scheduler) ThreadName(handle ThreadHandle) (string, bool) {
	t, ok := s.threads.lookup(handle)
	if !ok {
		return "", false
	}
	return t.name, true
}

// WakeThread decrements a sleeping thread's sleep counter and re-admits it
// to the run queues. Waking an already-reaped thread is a no-op.
func (s *Scheduler) WakeThread(handle ThreadHandle) {
	t, ok := s.threads.lookup(handle)
	if !ok {
		return
	}
	t.sleepCount.Add(-1)
	s.add(handle)
}

// JoinThread blocks until the thread's exit semaphore is signaled. Joining a
// thread that already exited and was reaped returns immediately.
func (s *Scheduler) JoinThread(handle ThreadHandle) {
	if t, ok := s.threads.lookup(handle); ok {
		t.sem.Wait()
	}
}

// updateThreadStatistics accounts the time since the thread's last
// measurement into its cpu time and raw load.
func (s *Scheduler) updateThreadStatistics(handle ThreadHandle) {
	t, ok := s.threads.lookup(handle)
	if !ok {
		return
	}
	now := int64(s.cfg.TimerSource.Measure())
	then := t.measure.Swap(now)
	diff := now - then
	t.cpuTime.Add(diff)
	t.load0.Add(uint32(diff))
}
