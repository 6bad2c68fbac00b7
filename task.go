package kernelsched

import "sync"

// Task is a unit of cooperative work run by a thread's task executor.
type Task func()

// taskExecutor is the single-threaded cooperative executor nested inside a
// preemptible thread: an M:1 scheduler within a scheduled thread. A thread
// owns at most one, created on first use, and runs it to exhaustion before
// exiting.
type taskExecutor struct {
	mu    sync.Mutex
	tasks []Task
}

func (e *taskExecutor) spawn(task Task) {
	e.mu.Lock()
	e.tasks = append(e.tasks, task)
	e.mu.Unlock()
}

func (e *taskExecutor) run() {
	for {
		e.mu.Lock()
		if len(e.tasks) == 0 {
			e.mu.Unlock()
			return
		}
		task := e.tasks[0]
		e.tasks = e.tasks[1:]
		e.mu.Unlock()
		task()
	}
}

// SpawnTask hands a task to the calling thread's executor, creating the
// executor on first use. Calling SpawnTask from outside a scheduler thread
// is a fatal fault.
func (s *Scheduler) SpawnTask(task Task) {
	t, ok := s.currentThreadData()
	if !ok {
		fault(FaultSchedulerUnavailable, "task spawn outside a scheduler thread")
	}
	if t.executor == nil {
		t.executor = &taskExecutor{}
	}
	t.executor.spawn(task)
}

// SpawnAsync queues an asynchronous task on the calling thread's executor.
func (s *Scheduler) SpawnAsync(task func()) {
	s.SpawnTask(task)
}

// PerformTasks runs the calling thread's executor to completion and then
// exits the thread. It never returns.
func (s *Scheduler) PerformTasks() {
	t, ok := s.currentThreadData()
	if !ok {
		fault(FaultSchedulerUnavailable, "perform tasks outside a scheduler thread")
	}
	if t.executor != nil {
		t.executor.run()
	}
	s.Exit()
}
