package kernelsched

import "sync/atomic"

// State is the scheduler's run state.
//
// State machine:
//
//	StateDisabled (0) → StateNormal (1)        [Start]
//	StateNormal (1) ⇄ StateFullThrottle (2)    [statistics thread, hysteresis]
//
// The statistics thread is the sole writer of the Normal/FullThrottle
// transition; the dispatch path is the sole reader, deciding whether
// efficiency cores may run anything besides idle. The thresholds are
// asymmetric to avoid flapping.
type State uint32

const (
	// StateDisabled indicates the scheduler has not started yet.
	StateDisabled State = iota
	// StateNormal indicates the scheduler is running.
	StateNormal
	// StateFullThrottle indicates every processor, efficiency cores
	// included, is eligible to run non-idle work.
	StateFullThrottle
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "Disabled"
	case StateNormal:
		return "Normal"
	case StateFullThrottle:
		return "FullThrottle"
	default:
		return "Unknown"
	}
}

// Hysteresis thresholds for the Normal/FullThrottle transition, in per-mille
// of one core. Enter at ~95% of the last performance core, leave below
// ~66.6% per performance core.
const (
	thresholdEnterMax = 950
	thresholdLeaveMax = 666
)

type schedulerState struct {
	v atomic.Uint32
}

func (s *schedulerState) load() State     { return State(s.v.Load()) }
func (s *schedulerState) store(val State) { s.v.Store(uint32(val)) }
