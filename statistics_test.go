package kernelsched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_sampleStatistics(t *testing.T) {
	s, clock := newTestScheduler(t, 2, 1)
	s.state.store(StateNormal)

	pid, err := s.WithPriority(PriorityNormal).StartProcess(func(uintptr) {}, 0, `demo`)
	require.NoError(t, err)
	proc, ok := s.processes.lookup(pid)
	require.True(t, ok)
	var td *threadData
	for _, cand := range s.threads.snapshot() {
		if cand.pid == pid {
			td = cand
		}
	}
	require.NotNil(t, td)

	prev := clock.Measure()
	clock.advance(time.Second)

	// half of the interval spent busy
	td.load0.Store(500_000)
	now := s.sampleStatistics(prev)

	assert.Equal(t, clock.Measure(), now)
	assert.Equal(t, uint32(500), td.load.Load())
	assert.Zero(t, td.load0.Load(), `raw ticks are consumed by the sample`)
	assert.Equal(t, int64(500_000), proc.cpuTime.Load())
	assert.Equal(t, uint32(500), proc.load.Load())
	assert.Zero(t, proc.load0.Load())

	assert.Equal(t, 500, s.UsageTotal())
	assert.Equal(t, 250, s.UsagePerCPU(), `aggregate usage divided across two processors`)
	assert.Equal(t, StateNormal, s.CurrentState())
}

func TestScheduler_sampleStatisticsClampsThreadLoad(t *testing.T) {
	s, clock := newTestScheduler(t, 1, 1)
	handle := spawnInert(t, s, PriorityNormal, `busy`)
	td, _ := s.threads.lookup(handle)

	prev := clock.Measure()
	clock.advance(time.Second)
	td.load0.Store(5_000_000) // more busy ticks than the interval holds
	s.sampleStatistics(prev)

	assert.Equal(t, uint32(1000), td.load.Load())
	assert.Equal(t, 1000, s.UsageTotal())
}

func TestScheduler_sampleStatisticsClampsAggregate(t *testing.T) {
	s, clock := newTestScheduler(t, 2, 2)
	for i := 0; i < 3; i++ {
		handle := spawnInert(t, s, PriorityNormal, `busy`)
		td, _ := s.threads.lookup(handle)
		td.load0.Store(2_000_000)
	}

	prev := clock.Measure()
	clock.advance(time.Second)
	s.sampleStatistics(prev)

	// three saturated threads on two processors: both clamps bind
	assert.Equal(t, 2000, s.UsageTotal())
	assert.Equal(t, 1000, s.UsagePerCPU())
}

func TestScheduler_sampleStatisticsExcludesIdle(t *testing.T) {
	s, clock := newTestScheduler(t, 1, 1)
	idle, _ := s.threads.lookup(s.locals[0].idle)

	prev := clock.Measure()
	clock.advance(time.Second)
	idle.load0.Store(1_000_000)
	s.sampleStatistics(prev)

	assert.Equal(t, uint32(1000), idle.load.Load())
	assert.Zero(t, s.UsageTotal(), `idle time is not usage`)

	stats := s.IdleStatistics()
	require.Len(t, stats, 1)
	assert.Equal(t, uint32(1000), stats[0])
}

func TestScheduler_sampleStatisticsZeroInterval(t *testing.T) {
	s, clock := newTestScheduler(t, 1, 1)
	handle := spawnInert(t, s, PriorityNormal, `busy`)
	td, _ := s.threads.lookup(handle)
	td.load0.Store(123)

	now := s.sampleStatistics(clock.Measure())
	assert.Equal(t, clock.Measure(), now)
	assert.Equal(t, uint32(123), td.load0.Load(), `nothing is sampled over an empty interval`)
}

func TestScheduler_sampleStatisticsDrivesThrottle(t *testing.T) {
	s, clock := newTestScheduler(t, 1, 1)
	s.state.store(StateNormal)
	handle := spawnInert(t, s, PriorityNormal, `busy`)
	td, _ := s.threads.lookup(handle)

	prev := clock.Measure()
	clock.advance(time.Second)
	td.load0.Store(1_000_000)
	prev = s.sampleStatistics(prev)
	assert.Equal(t, StateFullThrottle, s.CurrentState())

	clock.advance(time.Second)
	td.load0.Store(100_000)
	s.sampleStatistics(prev)
	assert.Equal(t, StateNormal, s.CurrentState())
}
