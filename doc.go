// Package kernelsched implements a preemptive thread/process scheduler for a
// single-address-space multiprocessor kernel, hosted behind a narrow
// architecture capability so the portable policy can run (and be tested)
// anywhere.
//
// One Scheduler instance owns three priority run queues, one local scheduler
// per processor, the thread and process registries, a software timer facility
// driven by a dedicated timer thread, and aggregate usage statistics sampled
// once per second. Concurrency discipline on the hot dispatch path is the
// IRQL protocol: a per-processor, totally ordered level that must be raised
// and lowered monotonically, with violations treated as fatal faults rather
// than recoverable errors.
//
// The scheduler is explicitly constructed via New and never global; all
// processor-local state lives in the per-processor slot indexed by processor
// id. The architecture context switch is abstracted as the Context interface
// (see the hostarch package for a goroutine-backed implementation).
package kernelsched
