// Package hostarch provides the architecture capabilities for running the
// scheduler hosted on the Go runtime: a goroutine-backed register context
// and a wall-clock timer source.
//
// Each context owns (at most) one goroutine, parked on a channel whenever
// the context is switched away from. Switching resumes the target's
// goroutine and parks the caller's, so exactly one goroutine per processor
// is ever runnable — the same occupancy invariant a register-level switch
// provides.
package hostarch

import (
	"time"

	kernelsched "github.com/joeycumines/go-kernelsched"
)

// Context is a goroutine-backed kernelsched.Context.
type Context struct {
	park    chan any
	entry   func(token any)
	started bool
}

// NewContext constructs a fresh context. Pass as Config.NewContext:
//
//	cfg.NewContext = hostarch.NewContext
func NewContext() kernelsched.Context {
	return &Context{park: make(chan any, 1)}
}

// Init records the entry the context's goroutine will run when first
// switched into.
func (c *Context) Init(fn func(token any)) {
	c.entry = fn
}

// Adopt binds the calling goroutine to this context without running the
// entry. Only the per-processor bootstrap (idle) context is adopted; a
// later switch back into it resumes the adopting goroutine.
func (c *Context) Adopt() {
	c.started = true
}

// Switch resumes next and parks the calling goroutine until something
// switches back into this context.
func (c *Context) Switch(next kernelsched.Context, token any) any {
	next.(*Context).resume(token)
	return <-c.park
}

// Handoff resumes next without parking; the calling goroutine is never
// resumed as this context again.
func (c *Context) Handoff(next kernelsched.Context, token any) {
	next.(*Context).resume(token)
}

// resume wakes the context's goroutine, starting it on first use. Only one
// processor ever switches into a given context at a time, so started needs
// no synchronization beyond the handoff itself.
func (c *Context) resume(token any) {
	if !c.started {
		c.started = true
		go c.entry(token)
		return
	}
	c.park <- token
}

// TimerSource is a kernelsched.TimerSource over the host monotonic clock,
// with microsecond measurement ticks.
type TimerSource struct {
	epoch time.Time
}

// NewTimerSource returns a timer source anchored at the current time.
func NewTimerSource() *TimerSource {
	return &TimerSource{epoch: time.Now()}
}

func (t *TimerSource) Monotonic() uint64 {
	return uint64(time.Since(t.epoch) / time.Millisecond)
}

func (t *TimerSource) Measure() kernelsched.TimeSpec {
	return kernelsched.TimeSpec(time.Since(t.epoch) / time.Microsecond)
}

func (t *TimerSource) FromDuration(d time.Duration) kernelsched.TimeSpec {
	return kernelsched.TimeSpec(d / time.Microsecond)
}

func (t *TimerSource) IntoDuration(v kernelsched.TimeSpec) time.Duration {
	return time.Duration(v) * time.Microsecond
}
