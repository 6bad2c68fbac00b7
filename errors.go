package kernelsched

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrSchedulerStarted is returned when Start is called more than once.
	ErrSchedulerStarted = errors.New("kernelsched: scheduler already started")

	// ErrQueueFull is returned when the timer event queue is at capacity;
	// callers retry with cooperative backoff.
	ErrQueueFull = errors.New("kernelsched: timer queue is full")

	// ErrProcessNotFound is returned when a process handle does not resolve,
	// e.g. the process already exited.
	ErrProcessNotFound = errors.New("kernelsched: process not found")

	// ErrNotThread is returned when an operation requires the caller to be a
	// scheduler thread.
	ErrNotThread = errors.New("kernelsched: caller is not a scheduler thread")

	// ErrNoResult is returned by JoinHandle.Join when the thread exited
	// without storing a result.
	ErrNoResult = errors.New("kernelsched: thread exited without a result")

	// ErrNoProcessors is returned by New for a config without processors.
	ErrNoProcessors = errors.New("kernelsched: config requires at least one processor")

	// ErrNoTimerSource is returned by New when Config.TimerSource is nil.
	ErrNoTimerSource = errors.New("kernelsched: config requires a timer source")

	// ErrNoContextFactory is returned by New when Config.NewContext is nil.
	ErrNoContextFactory = errors.New("kernelsched: config requires a context factory")
)

// Fault codes for protocol violations. These indicate the concurrency
// discipline itself has been broken; there is no safe continuation, so the
// offending path panics with a *Fault.
const (
	FaultIrqlNotGreaterOrEqual = "IRQL_NOT_GREATER_OR_EQUAL"
	FaultIrqlNotLessOrEqual    = "IRQL_NOT_LESS_OR_EQUAL"
	FaultDoubleRetirement      = "DOUBLE_RETIREMENT"
	FaultRetiredThreadMissing  = "RETIRED_THREAD_MISSING"
	FaultRunQueueOverflow      = "RUN_QUEUE_OVERFLOW"
	FaultSchedulerUnavailable  = "SCHEDULER_UNAVAILABLE"
	FaultJoinResultShared      = "JOIN_RESULT_SHARED"
)

// Fault is a fatal kernel-invariant violation.
type Fault struct {
	Code   string
	Detail string
}

func (f *Fault) Error() string {
	if f.Detail == "" {
		return "kernelsched: " + f.Code
	}
	return "kernelsched: " + f.Code + " " + f.Detail
}

func fault(code string, format string, args ...any) {
	panic(&Fault{Code: code, Detail: fmt.Sprintf(format, args...)})
}
