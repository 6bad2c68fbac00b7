package kernelsched

import "sync/atomic"

// Quantum is a per-thread round-robin budget counter. Consume decrements the
// budget once per favoring dispatch; when the budget is exhausted it reloads
// and reports true, signaling the dispatch loop to rotate within the normal
// band.
type Quantum struct {
	current atomic.Uint32
	reload  uint32
}

func (q *Quantum) init(value uint32) {
	q.reload = value
	q.current.Store(value)
}

// Reset restores the full budget.
func (q *Quantum) Reset() {
	q.current.Store(q.reload)
}

// Consume spends one unit of budget. It returns true exactly when the budget
// was exhausted by this call, in which case the budget is reloaded.
func (q *Quantum) Consume() bool {
	for {
		current := q.current.Load()
		next, expired := current-1, false
		if current <= 1 {
			next, expired = q.reload, true
		}
		if q.current.CompareAndSwap(current, next) {
			return expired
		}
	}
}

// quantumFor returns the default budget for a priority class.
func quantumFor(priority Priority) uint32 {
	switch priority {
	case PriorityHigh:
		return 25
	case PriorityNormal:
		return 10
	case PriorityLow:
		return 5
	default:
		return 1
	}
}
