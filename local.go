package kernelsched

import "sync/atomic"

// localScheduler owns one processor's dispatch state: the current thread,
// the per-processor idle thread, the transient retiring slot, and the IRQL.
type localScheduler struct {
	index int
	idle  ThreadHandle

	current atomic.Uint64
	retired atomic.Uint64
	irql    atomic.Uint32

	// ipi is the hosted stand-in for a reschedule interrupt: a doorbell the
	// idle loop waits on.
	ipi chan struct{}
}

func (l *localScheduler) currentThread() ThreadHandle {
	return ThreadHandle(l.current.Load())
}

func (l *localScheduler) currentIrql() Irql {
	return Irql(l.irql.Load())
}

// raiseIrql raises the processor's IRQL, returning the prior level. Raising
// below the current level is a fatal fault.
func (l *localScheduler) raiseIrql(level Irql) Irql {
	old := l.currentIrql()
	if old > level {
		fault(FaultIrqlNotGreaterOrEqual, "%v > %v", old, level)
	}
	l.irql.Store(uint32(level))
	return old
}

// lowerIrql lowers the processor's IRQL. Lowering above the current level is
// a fatal fault.
func (l *localScheduler) lowerIrql(level Irql) {
	old := l.currentIrql()
	if old < level {
		fault(FaultIrqlNotLessOrEqual, "%v < %v", old, level)
	}
	l.irql.Store(uint32(level))
}

// setRetired records the thread being switched away from. Two retirements
// may never be in flight on one processor simultaneously.
func (l *localScheduler) setRetired(handle ThreadHandle) {
	if !l.retired.CompareAndSwap(0, uint64(handle)) {
		fault(FaultDoubleRetirement, "processor %d: retiring %d while %d is still in flight",
			l.index, handle, l.retired.Load())
	}
}

// takeRetired claims the retiring thread left by whoever switched us in.
func (l *localScheduler) takeRetired() (ThreadHandle, bool) {
	handle := ThreadHandle(l.retired.Swap(0))
	return handle, handle != 0
}

// kick rings the processor's doorbell without blocking.
func (l *localScheduler) kick() {
	select {
	case l.ipi <- struct{}{}:
	default:
	}
}

// switchContext publishes next as the processor's current thread and
// performs the architecture switch. Control resumes either here (when this
// thread is later switched back to) or inside a fresh thread's startup
// trampoline; the post-switch hook runs on whichever processor resumes.
func (s *Scheduler) switchContext(l *localScheduler, next ThreadHandle) {
	oldIrql := l.raiseIrql(IrqlDispatch)
	current := l.currentThread()
	if current == next {
		l.lowerIrql(oldIrql)
		return
	}

	l.setRetired(current)
	l.current.Store(uint64(next))

	currentT, ok := s.threads.lookup(current)
	if !ok {
		fault(FaultRetiredThreadMissing, "processor %d: current thread %d not in registry", l.index, current)
	}
	nextT, ok := s.threads.lookup(next)
	if !ok {
		fault(FaultRetiredThreadMissing, "processor %d: next thread %d not in registry", l.index, next)
	}

	resumed := currentT.context.Switch(nextT.context, l)

	// Running again, possibly on a different processor.
	s.postSwitch(resumed.(*localScheduler), oldIrql)
}

// postSwitch re-reads the now-current thread, stamps its running timestamp,
// disposes of the retiring thread, and lowers IRQL back to the level the
// switch began at.
func (s *Scheduler) postSwitch(l *localScheduler, irql Irql) {
	current := l.currentThread()
	if t, ok := s.threads.lookup(current); ok {
		t.measure.Store(int64(s.cfg.TimerSource.Measure()))
		t.running.Store(l)
	}
	retired, ok := l.takeRetired()
	if !ok {
		fault(FaultRetiredThreadMissing, "processor %d: no retiring thread after switch", l.index)
	}
	s.retire(retired)
	l.lowerIrql(irql)
}
