package kernelsched

// Context is the architecture context capability: an opaque per-thread CPU
// register/stack context. Implementations save and restore whatever the
// target requires (general registers, floating point state, per-core
// descriptor slots); all portable scheduling logic stays behind this
// interface.
//
// Switch is synchronous: control returns to the caller's saved point only
// when some other context switches back into it. The token passed through a
// switch is opaque to the implementation and is delivered to whichever code
// resumes on the far side — the scheduler uses it to hand over the identity
// of the processor performing the switch-in.
type Context interface {
	// Init prepares a fresh context to begin execution in fn. The fn
	// receives the token from the switch that first resumes the context.
	// Init is called exactly once, before the first switch-in.
	Init(fn func(token any))

	// Adopt marks the context as owned by the calling flow of control,
	// without running Init's entry. Used for the per-processor bootstrap
	// (idle) context, which is "switched from" before it is ever switched
	// into.
	Adopt()

	// Switch saves the current flow of control into this context, resumes
	// next with the given token, and blocks until something switches back.
	// It returns the token delivered by that later switch-in.
	Switch(next Context, token any) (resumed any)

	// Handoff resumes next with the given token without saving the current
	// flow of control. Used for terminal switches out of exiting threads;
	// this context is never resumed again.
	Handoff(next Context, token any)
}

// StackAllocator allocates thread stack memory. The scheduler allocates one
// stack per thread at creation; the buffer is released when the thread
// record is dropped.
type StackAllocator func(size int) []byte
