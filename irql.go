package kernelsched

// Irql is an interrupt request level: a small, totally ordered, per-processor
// token gating how much concurrent interference a code path may tolerate.
// Most scheduler-internal mutation happens at IrqlDispatch, which serializes
// against the local dispatch path without a lock.
//
// Raising to a level below the current one, or lowering to a level above it,
// is a fatal fault.
type Irql uint32

const (
	IrqlPassive Irql = iota
	IrqlApc
	IrqlDispatch
	IrqlDevice
	IrqlIPI
	IrqlHigh
)

// String returns a human-readable representation of the level.
func (i Irql) String() string {
	switch i {
	case IrqlPassive:
		return "Passive"
	case IrqlApc:
		return "Apc"
	case IrqlDispatch:
		return "Dispatch"
	case IrqlDevice:
		return "Device"
	case IrqlIPI:
		return "IPI"
	case IrqlHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// CurrentIrql returns the IRQL of the calling processor, or IrqlPassive when
// the caller is not a scheduler thread.
func (s *Scheduler) CurrentIrql() Irql {
	if l := s.currentLocal(); l != nil {
		return l.currentIrql()
	}
	return IrqlPassive
}

// RaiseIrql raises the calling processor's IRQL to level, runs fn, and
// unconditionally restores the prior level on every exit path. It guards
// read-modify-write sequences too hot for a full lock. When the caller is
// not a scheduler thread fn runs with no level change.
func (s *Scheduler) RaiseIrql(level Irql, fn func()) {
	l := s.currentLocal()
	if l == nil {
		fn()
		return
	}
	old := l.raiseIrql(level)
	defer l.lowerIrql(old)
	fn()
}
