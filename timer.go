package kernelsched

import (
	"time"

	"golang.org/x/exp/slices"
)

// TimeSpec is a raw clock sample from the TimerSource, in source-defined
// ticks. The zero value is the "just" timestamp, which is always expired.
type TimeSpec int64

// TimerSource is the monotonic clock the boot layer provides: monotonic
// milliseconds, a raw measurement sample, and conversions between the sample
// type and a duration.
type TimerSource interface {
	// Monotonic returns monotonic time in milliseconds.
	Monotonic() uint64

	// Measure returns a raw clock sample.
	Measure() TimeSpec

	// FromDuration converts a duration into clock ticks.
	FromDuration(d time.Duration) TimeSpec

	// IntoDuration converts clock ticks into a duration.
	IntoDuration(t TimeSpec) time.Duration
}

// Timer is a deadline over the scheduler's monotonic clock.
type Timer struct {
	deadline TimeSpec
	src      TimerSource
}

// NewTimer returns a timer expiring after d.
func (s *Scheduler) NewTimer(d time.Duration) Timer {
	src := s.cfg.TimerSource
	return Timer{deadline: src.Measure() + src.FromDuration(d), src: src}
}

// EpsilonTimer returns a timer expiring one clock tick from now.
func (s *Scheduler) EpsilonTimer() Timer {
	src := s.cfg.TimerSource
	return Timer{deadline: src.Measure() + 1, src: src}
}

func (s *Scheduler) timerFromRaw(raw int64) Timer {
	return Timer{deadline: TimeSpec(raw), src: s.cfg.TimerSource}
}

// IsJust reports whether the timer is the zero deadline.
func (t Timer) IsJust() bool { return t.deadline == 0 }

// IsAlive reports whether the deadline is still in the future.
func (t Timer) IsAlive() bool {
	if t.IsJust() {
		return false
	}
	return t.deadline > t.src.Measure()
}

// IsExpired reports whether the deadline has passed.
func (t Timer) IsExpired() bool { return !t.IsAlive() }

// Monotonic returns the scheduler's monotonic clock reading.
func (s *Scheduler) Monotonic() time.Duration {
	return time.Duration(s.cfg.TimerSource.Monotonic()) * time.Millisecond
}

// SleepFor blocks the calling thread until at least d has elapsed. The
// thread may resume arbitrarily late under load. Registration retries with
// cooperative backoff when the timer queue is full. Calling SleepFor before
// the scheduler starts is a fatal fault.
func (s *Scheduler) SleepFor(d time.Duration) {
	if !s.IsEnabled() {
		fault(FaultSchedulerUnavailable, "timer sleep before start")
	}
	timer := s.NewTimer(d)
	event, err := s.NewOneShotEvent(timer)
	if err != nil {
		fault(FaultSchedulerUnavailable, "timer sleep outside a scheduler thread")
	}
	for timer.IsAlive() {
		if err := s.ScheduleEvent(event); err == nil {
			s.Sleep()
			return
		}
		s.yieldThread()
	}
}

// SleepAsync suspends the calling cooperative task until at least d has
// elapsed, without re-registering once the event is accepted.
func (s *Scheduler) SleepAsync(d time.Duration) {
	timer := s.NewTimer(d)
	waiter := s.NewAsyncWaiter()
	event := s.NewAsyncEvent(timer, waiter)
	for timer.IsAlive() {
		if err := s.ScheduleEvent(event); err == nil {
			waiter.Wait()
			return
		}
	}
}

// timerThread drains the pending-insertion queue into a deadline-sorted
// list, fires everything expired, publishes the next pending deadline for
// the dispatch loop's expiry check, and blocks until a new event arrives or
// the dispatch loop observes an expired deadline.
func (s *Scheduler) timerThread(uintptr) {
	events := make([]*TimerEvent, 0, sizeOfTimerQueue)
	for {
		events = s.timerPump(events)
		s.semTimer.Wait()
	}
}

// timerPump performs one pass of the timer thread: drain, sort, fire,
// publish.
func (s *Scheduler) timerPump(events []*TimerEvent) []*TimerEvent {
	if event, ok := s.timerQueue.Dequeue(); ok {
		events = append(events, event)
		for {
			event, ok := s.timerQueue.Dequeue()
			if !ok {
				break
			}
			events = append(events, event)
		}
		slices.SortFunc(events, func(a, b *TimerEvent) int {
			switch {
			case a.timer.deadline < b.timer.deadline:
				return -1
			case a.timer.deadline > b.timer.deadline:
				return 1
			default:
				return 0
			}
		})
	}

	for len(events) > 0 && events[0].IsExpired() {
		event := events[0]
		events = append(events[:0], events[1:]...)
		event.fire(s)
	}

	if len(events) > 0 {
		s.nextTimer.Store(int64(events[0].timer.deadline))
	}
	return events
}
