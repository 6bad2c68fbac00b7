package kernelsched

import (
	"sync"
	"sync/atomic"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ProcessID is an opaque handle into the process registry. Process 0 is the
// bootstrap idle process, created once at scheduler construction.
type ProcessID uint64

type processData struct {
	name string

	parent ProcessID
	pid    ProcessID

	nThreads atomic.Int64
	priority Priority
	sem      *Semaphore

	startTime TimeSpec
	cpuTime   atomic.Int64
	load0     atomic.Uint32
	load      atomic.Uint32

	cwdMu sync.RWMutex
	cwd   string
}

func (p *processData) getCwd() string {
	p.cwdMu.RLock()
	defer p.cwdMu.RUnlock()
	return p.cwd
}

func (p *processData) setCwd(path string) {
	p.cwdMu.Lock()
	defer p.cwdMu.Unlock()
	p.cwd = path
}

// processPool is the sole owner of process records. Listing and statistics
// take the read side; insert and remove take the write side.
type processPool struct {
	mu   sync.RWMutex
	data map[ProcessID]*processData
}

func (p *processPool) add(proc *processData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		p.data = make(map[ProcessID]*processData)
	}
	p.data[proc.pid] = proc
}

func (p *processPool) remove(pid ProcessID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, pid)
}

func (p *processPool) lookup(pid ProcessID) (*processData, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	proc, ok := p.data[pid]
	return proc, ok
}

// snapshot returns the live records ordered by pid.
func (p *processPool) snapshot() []*processData {
	p.mu.RLock()
	pids := maps.Keys(p.data)
	slices.Sort(pids)
	out := make([]*processData, len(pids))
	for i, pid := range pids {
		out[i] = p.data[pid]
	}
	p.mu.RUnlock()
	return out
}

// CurrentPid returns the process of the thread running on the calling flow
// of control, or process 0 when the scheduler is disabled or the caller is
// not a scheduler thread.
func (s *Scheduler) CurrentPid() ProcessID {
	if !s.IsEnabled() {
		return 0
	}
	if t, ok := s.currentThreadData(); ok {
		return t.pid
	}
	return 0
}

// ProcessName returns the display name of a process.
func (s *Scheduler) ProcessName(pid ProcessID) (string, bool) {
	proc, ok := s.processes.lookup(pid)
	if !ok {
		return "", false
	}
	return proc.name, true
}

// JoinProcess blocks until the process exits (its last thread exits and its
// join semaphore is signaled). Joining an already-reaped process returns
// immediately.
func (s *Scheduler) JoinProcess(pid ProcessID) {
	if proc, ok := s.processes.lookup(pid); ok {
		proc.sem.Wait()
	}
}

// ProcessCwd returns the process's current working directory, or the empty
// string when the process no longer resolves.
func (s *Scheduler) ProcessCwd(pid ProcessID) string {
	proc, ok := s.processes.lookup(pid)
	if !ok {
		return ""
	}
	return proc.getCwd()
}

// SetProcessCwd replaces the process's current working directory.
func (s *Scheduler) SetProcessCwd(pid ProcessID, path string) {
	if proc, ok := s.processes.lookup(pid); ok {
		proc.setCwd(path)
	}
}

func (s *Scheduler) newProcessData(parent ProcessID, priority Priority, name, cwd string) *processData {
	proc := &processData{
		name:      name,
		parent:    parent,
		pid:       ProcessID(s.nextPid.Add(1) - 1),
		priority:  priority,
		sem:       s.NewSemaphore(0),
		startTime: s.cfg.TimerSource.FromDuration(s.Monotonic()),
		cwd:       cwd,
	}
	return proc
}

// exitProcess signals the join semaphore exactly once, at the transition to
// zero threads, and removes the record from the registry.
func (s *Scheduler) exitProcess(proc *processData) {
	proc.sem.Signal()
	s.processes.remove(proc.pid)
	s.logger().Debug().
		Uint64(`pid`, uint64(proc.pid)).
		Str(`name`, proc.name).
		Log(`process exited`)
}
