package kernelsched

import "time"

// The nominal statistics interval, in clock ticks: one second of
// microsecond-resolution samples. The measured interval is used to scale raw
// busy ticks, so delayed wakeups do not inflate load.
const statisticsInterval = 1_000_000

// statisticsThread samples load once per second: per-thread raw busy ticks
// are scaled into per-mille load, accumulated into the owning process,
// aggregated across processors, and fed into the FullThrottle hysteresis.
func (s *Scheduler) statisticsThread(uintptr) {
	interval := time.Duration(statisticsInterval) * time.Microsecond
	measure := s.cfg.TimerSource.Measure()
	for {
		s.SleepFor(interval)
		measure = s.sampleStatistics(measure)
	}
}

// sampleStatistics performs one statistics pass against the measured
// interval since prev, returning the sample it took. Reporting is
// best-effort and never fails.
func (s *Scheduler) sampleStatistics(prev TimeSpec) TimeSpec {
	now := s.cfg.TimerSource.Measure()
	actual := int64(now - prev)
	actual1000 := actual * 1000
	if actual1000 <= 0 {
		return now
	}

	var usage int64
	for _, t := range s.threads.snapshot() {
		load0 := int64(t.load0.Swap(0))
		// Per-thread clamp: a thread is at most 1000 per-mille of one core.
		load := load0 * statisticsInterval / actual1000
		if load > 1000 {
			load = 1000
		}
		t.load.Store(uint32(load))
		if t.priority != PriorityIdle {
			usage += load
		}
		if proc, ok := s.processes.lookup(t.pid); ok {
			proc.cpuTime.Add(load0)
			proc.load0.Add(uint32(load))
		}
	}

	for _, proc := range s.processes.snapshot() {
		proc.load.Store(proc.load0.Swap(0))
	}

	numCPU := int64(len(s.locals))
	// Aggregate clamp: at most 1000 per-mille per processor, distinct from
	// the per-thread clamp above.
	usageTotal := usage
	if limit := numCPU * 1000; usageTotal > limit {
		usageTotal = limit
	}
	usagePerCPU := usage / numCPU
	if usagePerCPU > 1000 {
		usagePerCPU = 1000
	}
	s.usageTotal.Store(usageTotal)
	s.usage.Store(usagePerCPU)

	s.applyThrottleHysteresis(usageTotal)
	return now
}

// applyThrottleHysteresis flips the Normal/FullThrottle state against the
// asymmetric thresholds. The statistics pass is the sole writer of this
// transition.
func (s *Scheduler) applyThrottleHysteresis(usageTotal int64) {
	perf := int64(s.cfg.PerformanceCPUs)
	switch s.CurrentState() {
	case StateNormal:
		if usageTotal > (perf-1)*1000+thresholdEnterMax {
			s.state.store(StateFullThrottle)
			s.logger().Info().
				Int64(`usage_total`, usageTotal).
				Log(`entering full throttle`)
		}
	case StateFullThrottle:
		if usageTotal < perf*thresholdLeaveMax {
			s.state.store(StateNormal)
			s.logger().Info().
				Int64(`usage_total`, usageTotal).
				Log(`leaving full throttle`)
		}
	}
}

// IdleStatistics returns the scaled load of each processor's idle thread,
// indexed by processor id.
func (s *Scheduler) IdleStatistics() []uint32 {
	out := make([]uint32, len(s.locals))
	for i, l := range s.locals {
		if t, ok := s.threads.lookup(l.idle); ok {
			out[i] = t.load.Load()
		}
	}
	return out
}
