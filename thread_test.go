package kernelsched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadAttributes(t *testing.T) {
	var a threadAttributes
	assert.False(t, a.has(attrQueued))
	assert.False(t, a.testAndSet(attrQueued))
	assert.True(t, a.testAndSet(attrQueued))
	assert.True(t, a.has(attrQueued))

	a.set(attrZombie)
	assert.True(t, a.has(attrQueued))
	assert.True(t, a.has(attrZombie))

	a.clear(attrQueued)
	assert.False(t, a.has(attrQueued))
	assert.True(t, a.has(attrZombie))
}

func TestThreadData_statusChar(t *testing.T) {
	var td threadData
	assert.Equal(t, byte('-'), td.statusChar())

	td.attr.set(attrQueued)
	assert.Equal(t, byte('R'), td.statusChar())

	td.attr.set(attrZombie)
	assert.Equal(t, byte('z'), td.statusChar())

	// sleep dominates everything else
	td.sleepCount.Add(1)
	assert.Equal(t, byte('S'), td.statusChar())
}

func TestThreadPool_snapshotOrdered(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)
	spawnInert(t, s, PriorityNormal, `a`)
	spawnInert(t, s, PriorityNormal, `b`)
	spawnInert(t, s, PriorityNormal, `c`)

	threads := s.threads.snapshot()
	require.Len(t, threads, 4) // one idle plus three workers
	for i := 1; i < len(threads); i++ {
		assert.Greater(t, threads[i].handle, threads[i-1].handle)
	}
}

func TestScheduler_threadName(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)
	handle := spawnInert(t, s, PriorityNormal, `worker`)

	name, ok := s.ThreadName(handle)
	require.True(t, ok)
	assert.Equal(t, `worker`, name)

	_, ok = s.ThreadName(ThreadHandle(0xdead))
	assert.False(t, ok)
}

func TestScheduler_joinReapedThread(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)
	// an unknown handle means the thread already exited and was reaped
	s.JoinThread(ThreadHandle(0xdead))
}

func TestScheduler_spawnPriorityInheritance(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)

	pid, err := s.WithPriority(PriorityHigh).StartProcess(func(uintptr) {}, 0, `parent`)
	require.NoError(t, err)
	proc, ok := s.processes.lookup(pid)
	require.True(t, ok)
	assert.Equal(t, PriorityHigh, proc.priority)

	// a process created without an explicit priority runs at the default
	pid2, err := s.SpawnOptions().StartProcess(func(uintptr) {}, 0, `plain`)
	require.NoError(t, err)
	proc2, ok := s.processes.lookup(pid2)
	require.True(t, ok)
	assert.Equal(t, DefaultPriority, proc2.priority)

	threads := s.threads.snapshot()
	byName := make(map[string]*threadData, len(threads))
	for _, td := range threads {
		byName[td.name] = td
	}
	assert.Equal(t, PriorityHigh, byName[`parent`].priority)
	assert.Equal(t, DefaultPriority, byName[`plain`].priority)
}

type countingPersonality struct {
	exits int
}

func (p *countingPersonality) OnExit() { p.exits++ }

func TestScheduler_spawnPersonality(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)
	p := &countingPersonality{}
	handle, err := s.WithPriority(PriorityNormal).WithPersonality(p).Start(func(uintptr) {}, 0, `hosted`)
	require.NoError(t, err)

	td, ok := s.threads.lookup(handle)
	require.True(t, ok)
	assert.Same(t, p, td.personality)
	assert.Zero(t, p.exits)
}

func TestScheduler_quantumMatchesPriority(t *testing.T) {
	s, _ := newTestScheduler(t, 1, 1)
	for _, tc := range []struct {
		priority Priority
		reload   uint32
	}{
		{PriorityHigh, 25},
		{PriorityNormal, 10},
		{PriorityLow, 5},
		{PriorityRealtime, 1},
	} {
		handle := spawnInert(t, s, tc.priority, tc.priority.String())
		td, ok := s.threads.lookup(handle)
		require.True(t, ok)
		assert.Equal(t, tc.reload, td.quantum.reload, tc.priority.String())
	}
}
