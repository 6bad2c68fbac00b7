package kernelsched

import (
	"time"

	"github.com/joeycumines/logiface"
)

// Run queue and timer queue capacities. Bounding the queues to the maximum
// plausible thread count structurally prevents overflow in correct use.
const (
	sizeOfSubQueue   = 63
	sizeOfMainQueue  = 255
	sizeOfTimerQueue = 100
)

// DefaultStackSize is the per-thread stack buffer size when Config.StackSize
// is zero.
const DefaultStackSize = 64 * 1024

// DefaultIdlePollInterval is the idle thread's interrupt-poll period when
// Config.IdlePollInterval is zero.
const DefaultIdlePollInterval = 500 * time.Microsecond

// Config carries the inputs the boot/arch layer provides to New.
type Config struct {
	// CPUs is the number of active processors. Required, at least 1.
	CPUs int

	// PerformanceCPUs is the number of performance cores; processors with
	// index >= PerformanceCPUs are efficiency ("sub") cores, eligible for
	// non-idle work only in StateFullThrottle. Defaults to CPUs.
	PerformanceCPUs int

	// StackSize is the per-thread stack buffer size in bytes. Defaults to
	// DefaultStackSize.
	StackSize int

	// AllocStack allocates thread stack buffers. Defaults to make([]byte, n).
	AllocStack StackAllocator

	// TimerSource provides the monotonic clock. Required.
	TimerSource TimerSource

	// NewContext constructs architecture contexts. Required.
	NewContext func() Context

	// Broadcast delivers a reschedule interrupt to every processor, used by
	// Freeze(force). Optional.
	Broadcast func() error

	// IdlePollInterval bounds how long an idle processor waits between
	// dispatch attempts when no doorbell interrupt arrives. Defaults to
	// DefaultIdlePollInterval.
	IdlePollInterval time.Duration

	// Logger receives structured scheduler events. Optional; a nil logger
	// disables logging.
	Logger *logiface.Logger[logiface.Event]
}

func (c *Config) validate() error {
	if c.CPUs < 1 {
		return ErrNoProcessors
	}
	if c.TimerSource == nil {
		return ErrNoTimerSource
	}
	if c.NewContext == nil {
		return ErrNoContextFactory
	}
	return nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.PerformanceCPUs <= 0 || out.PerformanceCPUs > out.CPUs {
		out.PerformanceCPUs = out.CPUs
	}
	if out.StackSize <= 0 {
		out.StackSize = DefaultStackSize
	}
	if out.AllocStack == nil {
		out.AllocStack = func(size int) []byte { return make([]byte, size) }
	}
	if out.IdlePollInterval <= 0 {
		out.IdlePollInterval = DefaultIdlePollInterval
	}
	return out
}
