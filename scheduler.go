package kernelsched

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-kernelsched/internal/fifo"
	"github.com/joeycumines/go-kernelsched/internal/goid"
	"github.com/joeycumines/logiface"
)

// Scheduler owns the run queues, the per-processor local schedulers, the
// thread and process registries, the timer queue, and aggregate usage
// statistics. Construct exactly one per system with New.
type Scheduler struct {
	_ [0]func() // prevent copying

	cfg Config

	queueRealtime *threadQueue
	queueUrgent   *threadQueue
	queueNormal   *threadQueue

	locals []*localScheduler

	threads   threadPool
	processes processPool

	state      schedulerState
	frozen     atomic.Bool
	usage      atomic.Int64
	usageTotal atomic.Int64

	nextTimer  atomic.Int64
	semTimer   *Semaphore
	timerQueue *fifo.Queue[*TimerEvent]

	nextTid atomic.Uint64
	nextPid atomic.Uint64

	// gids maps goroutine ids to thread handles; in the hosted model a
	// goroutine is permanently bound to one thread.
	gids    sync.Map
	started atomic.Bool
}

// New constructs a scheduler from the boot/arch inputs. The scheduler is
// created Disabled, with only the bootstrap idle process (pid 0) and one
// idle thread per processor.
func New(cfg Config) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{cfg: cfg.withDefaults()}
	s.queueRealtime = newThreadQueue(sizeOfSubQueue)
	s.queueUrgent = newThreadQueue(sizeOfSubQueue)
	s.queueNormal = newThreadQueue(sizeOfMainQueue)
	s.timerQueue = fifo.New[*TimerEvent](sizeOfTimerQueue)
	s.semTimer = s.NewSemaphore(0)

	s.processes.add(s.newProcessData(0, PriorityIdle, "idle", "/"))

	s.locals = make([]*localScheduler, s.cfg.CPUs)
	for i := range s.locals {
		idle, err := s.newThread(0, PriorityIdle, fmt.Sprintf("Idle_#%d", i), nil, 0, nil)
		if err != nil {
			return nil, err
		}
		l := &localScheduler{
			index: i,
			idle:  idle,
			ipi:   make(chan struct{}, 1),
		}
		l.current.Store(uint64(idle))
		s.locals[i] = l
	}
	return s, nil
}

// Start enables the scheduler, brings every processor online, spawns the
// System process at High priority with the given entry point, and starts the
// timer and statistics threads at Realtime priority. It returns once the
// system is running; the processors keep dispatching in the background.
func (s *Scheduler) Start(entry func(arg uintptr), arg uintptr) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrSchedulerStarted
	}
	s.state.store(StateNormal)

	for _, l := range s.locals {
		go s.idleLoop(l)
	}

	if _, err := s.WithPriority(PriorityHigh).StartProcess(entry, arg, "System"); err != nil {
		return err
	}
	if _, err := s.WithPriority(PriorityRealtime).Start(s.timerThread, 0, "scheduler"); err != nil {
		return err
	}
	if _, err := s.WithPriority(PriorityRealtime).Start(s.statisticsThread, 0, "statistics"); err != nil {
		return err
	}

	s.logger().Info().
		Int(`cpus`, s.cfg.CPUs).
		Int(`performance_cpus`, s.cfg.PerformanceCPUs).
		Log(`scheduler started`)
	return nil
}

// IsEnabled reports whether the scheduler is running.
func (s *Scheduler) IsEnabled() bool {
	return s.state.load() != StateDisabled
}

// CurrentState returns the scheduler's run state.
func (s *Scheduler) CurrentState() State {
	return s.state.load()
}

// UsagePerCPU returns the most recent per-processor load sample, in
// per-mille of one core.
func (s *Scheduler) UsagePerCPU() int {
	return int(s.usage.Load())
}

// UsageTotal returns the most recent aggregate load sample across all
// processors, in per-mille.
func (s *Scheduler) UsageTotal() int {
	return int(s.usageTotal.Load())
}

// Freeze marks the system frozen: every processor's next dispatch forces a
// switch to idle. With force, delivery is pushed via the broadcast
// inter-processor interrupt. Used for whole-system halt.
func (s *Scheduler) Freeze(force bool) error {
	if !s.IsEnabled() {
		return nil
	}
	s.frozen.Store(true)
	s.logger().Info().Log(`scheduler frozen`)
	if force {
		for _, l := range s.locals {
			l.kick()
		}
		if s.cfg.Broadcast != nil {
			return s.cfg.Broadcast()
		}
	}
	return nil
}

// reschedule performs the preemption decision on one processor. It runs on
// the processor's current flow of control: the idle loop invokes it on every
// doorbell or poll period, and threads reach it via cooperative yields and
// sleeps. It never blocks; it synchronously switches or returns.
func (s *Scheduler) reschedule(l *localScheduler) {
	if !s.IsEnabled() {
		return
	}
	current := l.currentThread()
	s.updateThreadStatistics(current)
	priority := PriorityIdle
	currentT, ok := s.threads.lookup(current)
	if ok {
		priority = currentT.priority
	}
	if s.timerFromRaw(s.nextTimer.Load()).IsExpired() {
		s.semTimer.Signal()
	}
	if s.frozen.Load() {
		s.switchContext(l, l.idle)
		return
	}
	if priority == PriorityRealtime {
		return
	}
	if s.isStalledProcessor(l.index) {
		s.switchContext(l, l.idle)
	} else if next, ok := s.queueRealtime.dequeue(); ok {
		s.switchContext(l, next)
	} else if next, ok := s.dequeueIf(priority < PriorityHigh, s.queueUrgent); ok {
		s.switchContext(l, next)
	} else if next, ok := s.dequeueIf(priority < PriorityNormal, s.queueNormal); ok {
		s.switchContext(l, next)
	} else if currentT != nil && currentT.quantum.Consume() {
		if next, ok := s.nextThread(l); ok {
			s.switchContext(l, next)
		}
	}
}

func (s *Scheduler) dequeueIf(cond bool, q *threadQueue) (ThreadHandle, bool) {
	if !cond {
		return 0, false
	}
	return q.dequeue()
}

// Sleep voluntarily suspends the calling thread: it is removed from all
// queues and not schedulable again until a matching wake decrements its
// sleep counter. Calling Sleep from outside a scheduler thread is a fatal
// fault.
func (s *Scheduler) Sleep() {
	l := s.currentLocal()
	if l == nil {
		fault(FaultSchedulerUnavailable, "sleep outside a scheduler thread")
	}
	current := l.currentThread()
	s.updateThreadStatistics(current)
	if t, ok := s.threads.lookup(current); ok {
		t.sleepCount.Add(1)
	}
	next, ok := s.nextThread(l)
	if !ok {
		next = l.idle
	}
	s.switchContext(l, next)
}

// yieldThread cooperatively hands the processor to the next runnable thread,
// if any.
func (s *Scheduler) yieldThread() {
	l := s.currentLocal()
	if l == nil {
		runtime.Gosched()
		return
	}
	s.updateThreadStatistics(l.currentThread())
	next, ok := s.nextThread(l)
	if !ok {
		next = l.idle
	}
	s.switchContext(l, next)
}

// isStalledProcessor reports whether the processor must run only its idle
// thread: the system is frozen, or it is an efficiency core and the system
// is not in FullThrottle.
func (s *Scheduler) isStalledProcessor(index int) bool {
	return s.frozen.Load() ||
		(s.CurrentState() != StateFullThrottle && index >= s.cfg.PerformanceCPUs)
}

// nextThread takes the next executable thread from the run queues, in strict
// priority order.
func (s *Scheduler) nextThread(l *localScheduler) (ThreadHandle, bool) {
	if s.isStalledProcessor(l.index) {
		return l.idle, true
	}
	if next, ok := s.queueRealtime.dequeue(); ok {
		return next, true
	}
	if next, ok := s.queueUrgent.dequeue(); ok {
		return next, true
	}
	if next, ok := s.queueNormal.dequeue(); ok {
		return next, true
	}
	return 0, false
}

func (s *Scheduler) enqueue(handle ThreadHandle, t *threadData) {
	var err error
	switch t.priority {
	case PriorityRealtime:
		err = s.queueRealtime.enqueue(handle)
	case PriorityHigh, PriorityNormal, PriorityLow:
		err = s.queueNormal.enqueue(handle)
	default:
		fault(FaultRunQueueOverflow, "enqueue of %v thread %d", t.priority, handle)
	}
	if err != nil {
		fault(FaultRunQueueOverflow, "thread %d: %v", handle, err)
	}
}

// retire disposes of a thread being switched away from: zombies are removed
// from the registry, sleepers stay off all queues, idle threads are never
// queued, and everything else is re-admitted to its priority band.
func (s *Scheduler) retire(handle ThreadHandle) {
	t, ok := s.threads.lookup(handle)
	if !ok {
		return
	}
	t.attr.clear(attrQueued)
	switch {
	case t.priority == PriorityIdle:
	case t.attr.has(attrZombie):
		s.threads.remove(handle)
		s.logger().Debug().
			Uint64(`thread`, uint64(handle)).
			Str(`name`, t.name).
			Log(`thread reaped`)
	case t.isAsleep():
	default:
		if !t.attr.testAndSet(attrQueued) {
			s.enqueue(handle, t)
		}
	}
}

// add admits a thread to the run queues, unless it is idle, a zombie, or
// already queued.
func (s *Scheduler) add(handle ThreadHandle) {
	t, ok := s.threads.lookup(handle)
	if !ok {
		return
	}
	if t.priority == PriorityIdle || t.attr.has(attrZombie) {
		return
	}
	if !t.attr.testAndSet(attrQueued) {
		s.enqueue(handle, t)
	}
}

// idleLoop is the body of a processor's idle thread: wait for a doorbell
// interrupt or the poll period, then dispatch.
func (s *Scheduler) idleLoop(l *localScheduler) {
	s.gids.Store(goid.ID(), l.idle)
	if t, ok := s.threads.lookup(l.idle); ok {
		t.running.Store(l)
		t.measure.Store(int64(s.cfg.TimerSource.Measure()))
		t.context.Adopt()
	}
	tick := time.NewTicker(s.cfg.IdlePollInterval)
	defer tick.Stop()
	for {
		select {
		case <-l.ipi:
		case <-tick.C:
		}
		s.reschedule(l)
	}
}

// Exit terminates the calling thread. It never returns; the thread signals
// its exit semaphore, releases its personality, decrements its process's
// thread count (reaping the process at zero), marks itself zombie and
// switches away for the last time.
func (s *Scheduler) Exit() {
	if _, ok := s.currentThreadHandle(); !ok {
		fault(FaultSchedulerUnavailable, "exit outside a scheduler thread")
	}
	runtime.Goexit()
}

// CurrentPersonality returns the personality attached to the calling thread,
// if any.
func (s *Scheduler) CurrentPersonality() (Personality, bool) {
	t, ok := s.currentThreadData()
	if !ok || t.personality == nil {
		return nil, false
	}
	return t.personality, true
}

func (s *Scheduler) currentThreadHandle() (ThreadHandle, bool) {
	v, ok := s.gids.Load(goid.ID())
	if !ok {
		return 0, false
	}
	return v.(ThreadHandle), true
}

func (s *Scheduler) currentThreadData() (*threadData, bool) {
	handle, ok := s.currentThreadHandle()
	if !ok {
		return nil, false
	}
	return s.threads.lookup(handle)
}

// currentLocal resolves the processor hosting the calling thread, or nil
// when the caller is not a scheduler thread.
func (s *Scheduler) currentLocal() *localScheduler {
	t, ok := s.currentThreadData()
	if !ok {
		return nil
	}
	return t.running.Load()
}

func (s *Scheduler) logger() *logiface.Logger[logiface.Event] {
	return s.cfg.Logger
}
