package kernelsched

import (
	"sync"

	"github.com/joeycumines/go-kernelsched/internal/goid"
)

// SpawnOption builds the options for starting a new thread or process: an
// optional priority override (the owning process's priority by default),
// whether to create a new process, and an optional personality to attach to
// the new thread.
type SpawnOption struct {
	sched       *Scheduler
	priority    Priority
	hasPriority bool
	newProcess  bool
	personality Personality
}

// SpawnOptions returns an empty option builder.
func (s *Scheduler) SpawnOptions() *SpawnOption {
	return &SpawnOption{sched: s}
}

// WithPriority returns an option builder with a priority override.
func (s *Scheduler) WithPriority(priority Priority) *SpawnOption {
	return &SpawnOption{sched: s, priority: priority, hasPriority: true}
}

// WithPersonality attaches a personality to the thread being spawned.
func (o *SpawnOption) WithPersonality(personality Personality) *SpawnOption {
	o.personality = personality
	return o
}

// Start runs entry in a new thread of the calling thread's process.
func (o *SpawnOption) Start(entry func(arg uintptr), arg uintptr, name string) (ThreadHandle, error) {
	return o.sched.spawnThread(entry, arg, name, o)
}

// StartProcess runs entry in the first thread of a new process. The process
// inherits the spawning process's working directory.
func (o *SpawnOption) StartProcess(entry func(arg uintptr), arg uintptr, name string) (ProcessID, error) {
	o.newProcess = true
	handle, err := o.sched.spawnThread(entry, arg, name, o)
	if err != nil {
		return 0, err
	}
	t, ok := o.sched.threads.lookup(handle)
	if !ok {
		return 0, ErrProcessNotFound
	}
	return t.pid, nil
}

func (s *Scheduler) spawnThread(entry func(uintptr), arg uintptr, name string, o *SpawnOption) (ThreadHandle, error) {
	currentPid := s.CurrentPid()
	pid := currentPid
	if o.newProcess {
		priority := DefaultPriority
		if o.hasPriority {
			priority = o.priority
		}
		child := s.newProcessData(currentPid, priority, name, s.ProcessCwd(currentPid))
		s.processes.add(child)
		pid = child.pid
		s.logger().Debug().
			Uint64(`pid`, uint64(pid)).
			Uint64(`parent`, uint64(currentPid)).
			Str(`name`, name).
			Log(`process created`)
	}
	target, ok := s.processes.lookup(pid)
	if !ok {
		return 0, ErrProcessNotFound
	}
	priority := target.priority
	if o.hasPriority {
		priority = o.priority
	}
	target.nThreads.Add(1)
	handle, err := s.newThread(pid, priority, name, entry, arg, o.personality)
	if err != nil {
		return 0, err
	}
	s.add(handle)
	return handle, nil
}

// newThread creates a thread record: allocates its stack, initializes its
// architecture context to begin at the startup trampoline, and inserts it
// into the registry. A nil entry creates a bootstrap (idle) thread whose
// context is adopted rather than entered.
func (s *Scheduler) newThread(pid ProcessID, priority Priority, name string, entry func(uintptr), arg uintptr, personality Personality) (ThreadHandle, error) {
	handle := ThreadHandle(s.nextTid.Add(1))
	t := &threadData{
		context:     s.cfg.NewContext(),
		pid:         pid,
		handle:      handle,
		sem:         s.NewSemaphore(0),
		personality: personality,
		priority:    priority,
		name:        name,
	}
	t.quantum.init(quantumFor(priority))
	if entry != nil {
		t.stack = s.cfg.AllocStack(s.cfg.StackSize)
		t.context.Init(func(token any) {
			s.threadBody(t, entry, arg, token)
		})
	}
	s.threads.add(t)
	return handle, nil
}

// threadBody is the startup trampoline for a fresh thread: it runs on the
// thread's own flow of control, completes the switch that started it, runs
// the entry, and unconditionally performs the exit sequence — entry
// returning and Exit both land in finishThread.
func (s *Scheduler) threadBody(t *threadData, entry func(uintptr), arg uintptr, token any) {
	s.gids.Store(goid.ID(), t.handle)
	defer s.finishThread(t)
	s.postSwitch(token.(*localScheduler), IrqlPassive)
	entry(arg)
}

// finishThread is the exit sequence: signal the exit semaphore, release the
// personality, decrement the owning process's thread count (reaping the
// process at the 1→0 transition), mark zombie and switch away for the last
// time. The record itself is destroyed later, when retire observes the
// zombie attribute.
func (s *Scheduler) finishThread(t *threadData) {
	s.yieldThread()

	t.sem.Signal()
	if p := t.personality; p != nil {
		t.personality = nil
		p.OnExit()
	}

	if proc, ok := s.processes.lookup(t.pid); ok {
		if proc.nThreads.Add(-1) == 0 {
			s.exitProcess(proc)
		}
	}

	t.attr.set(attrZombie)
	s.gids.Delete(goid.ID())
	s.terminalSwitch(t.running.Load())
}

// terminalSwitch hands the processor to the next runnable thread without
// saving the outgoing context; the caller's flow of control ends here.
func (s *Scheduler) terminalSwitch(l *localScheduler) {
	l.raiseIrql(IrqlDispatch)
	current := l.currentThread()
	s.updateThreadStatistics(current)
	next, ok := s.nextThread(l)
	if !ok {
		next = l.idle
	}
	l.setRetired(current)
	l.current.Store(uint64(next))
	currentT, ok := s.threads.lookup(current)
	if !ok {
		fault(FaultRetiredThreadMissing, "processor %d: exiting thread %d not in registry", l.index, current)
	}
	nextT, ok := s.threads.lookup(next)
	if !ok {
		fault(FaultRetiredThreadMissing, "processor %d: next thread %d not in registry", l.index, next)
	}
	currentT.context.Handoff(nextT.context, l)
}

// JoinHandle is the result cell for a thread spawned from a closure.
type JoinHandle[T any] struct {
	sched  *Scheduler
	thread ThreadHandle
	cell   *resultCell[T]
}

type resultCell[T any] struct {
	mu      sync.Mutex
	val     T
	set     bool
	claimed bool
}

// Thread returns the handle of the spawned thread.
func (h *JoinHandle[T]) Thread() ThreadHandle { return h.thread }

// Join blocks until the thread exits and extracts its result. Joining the
// same handle twice is a fatal fault; ErrNoResult is returned when the
// thread exited without storing a result.
func (h *JoinHandle[T]) Join() (T, error) {
	h.sched.JoinThread(h.thread)

	h.cell.mu.Lock()
	defer h.cell.mu.Unlock()
	if h.cell.claimed {
		fault(FaultJoinResultShared, "thread %d joined twice", h.thread)
	}
	h.cell.claimed = true
	if !h.cell.set {
		var zero T
		return zero, ErrNoResult
	}
	return h.cell.val, nil
}

// Spawn starts fn in a new thread configured by o; the thread runs fn,
// stores the result, and exits. Join on the returned handle blocks until the
// result is available.
func Spawn[T any](o *SpawnOption, fn func() T, name string) (*JoinHandle[T], error) {
	cell := &resultCell[T]{}
	handle, err := o.Start(func(uintptr) {
		v := fn()
		cell.mu.Lock()
		cell.val = v
		cell.set = true
		cell.mu.Unlock()
	}, 0, name)
	if err != nil {
		return nil, err
	}
	return &JoinHandle[T]{sched: o.sched, thread: handle, cell: cell}, nil
}
