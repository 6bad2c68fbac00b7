package kernelsched

// WindowPoster is the narrow interface to the windowing collaborator: the
// target of a UI timer message.
type WindowPoster interface {
	// PostTimerMessage posts a timer message with the given id to the
	// window's message queue.
	PostTimerMessage(timerID int) error
}

type timerEventKind uint8

const (
	timerEventOneShot timerEventKind = iota
	timerEventAsync
	timerEventWindow
)

// TimerEvent is a deadline plus a payload: wake a sleeping thread, signal an
// async waiter, or post a UI timer message. Events live in the global
// pending-insert queue until claimed by the timer thread.
type TimerEvent struct {
	timer    Timer
	kind     timerEventKind
	thread   ThreadHandle
	waiter   *AsyncWaiter
	window   WindowPoster
	windowID int
}

// NewOneShotEvent creates an event that wakes the calling thread when the
// timer expires.
func (s *Scheduler) NewOneShotEvent(timer Timer) (*TimerEvent, error) {
	handle, ok := s.currentThreadHandle()
	if !ok {
		return nil, ErrNotThread
	}
	return &TimerEvent{timer: timer, kind: timerEventOneShot, thread: handle}, nil
}

// NewAsyncEvent creates an event that signals waiter when the timer expires.
func (s *Scheduler) NewAsyncEvent(timer Timer, waiter *AsyncWaiter) *TimerEvent {
	return &TimerEvent{timer: timer, kind: timerEventAsync, waiter: waiter}
}

// NewWindowEvent creates an event that posts a UI timer message when the
// timer expires.
func (s *Scheduler) NewWindowEvent(window WindowPoster, timerID int, timer Timer) *TimerEvent {
	return &TimerEvent{timer: timer, kind: timerEventWindow, window: window, windowID: timerID}
}

// IsAlive reports whether the event's deadline is still in the future.
func (e *TimerEvent) IsAlive() bool { return e.timer.IsAlive() }

// IsExpired reports whether the event's deadline has passed.
func (e *TimerEvent) IsExpired() bool { return e.timer.IsExpired() }

// ScheduleEvent registers an event with the timer thread. It returns
// ErrQueueFull when the pending queue is at capacity; callers retry with
// cooperative backoff.
func (s *Scheduler) ScheduleEvent(event *TimerEvent) error {
	if err := s.timerQueue.Enqueue(event); err != nil {
		return ErrQueueFull
	}
	s.semTimer.Signal()
	return nil
}

func (e *TimerEvent) fire(s *Scheduler) {
	switch e.kind {
	case timerEventOneShot:
		s.WakeThread(e.thread)
	case timerEventAsync:
		e.waiter.Signal()
	case timerEventWindow:
		if err := e.window.PostTimerMessage(e.windowID); err != nil {
			s.logger().Debug().
				Err(err).
				Int(`timer_id`, e.windowID).
				Log(`window timer message dropped`)
		}
	}
}
