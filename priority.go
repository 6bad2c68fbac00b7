package kernelsched

// Priority is a thread's scheduling class.
//
// Realtime threads are never preempted except by another Realtime thread.
// High, Normal and Low share the normal band and round-robin via Quantum.
// Idle threads are never placed on a run queue; they run only when a
// processor has nothing else.
type Priority uint8

const (
	PriorityIdle Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityRealtime
)

// DefaultPriority is the priority assumed when none is specified.
const DefaultPriority = PriorityNormal

// IsUseful reports whether a thread of this priority performs real work,
// i.e. anything other than Idle.
func (p Priority) IsUseful() bool { return p != PriorityIdle }

// String returns a human-readable representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityIdle:
		return "Idle"
	case PriorityLow:
		return "Low"
	case PriorityNormal:
		return "Normal"
	case PriorityHigh:
		return "High"
	case PriorityRealtime:
		return "Realtime"
	default:
		return "Unknown"
	}
}
