// Package capture implements the execution builder: the capture protocol
// that pipeline code drives to narrate a run as a structured trace.
//
// A Builder owns exactly one Execution. Pipeline code opens steps, stages
// evaluation/filter/reasoning data on them through a fluent StepBuilder,
// closes each step with Complete or Fail, and ends the run with Finalize.
// The trace is structurally valid at every observable point: an open step is
// visible to readers as running before it completes, and derived fields
// (step duration, aggregate execution status) are always computed by the
// builder, never trusted from callers.
//
// # State machine
//
// Per step: running -> {completed | failed}, exactly one terminal call.
// A second terminal call on the same StepBuilder returns a *StateError with
// code STEP_CLOSED. Fluent setters on a closed StepBuilder are no-ops (the
// chain has no error channel; the terminal call is the fail-fast point).
// Per execution: Finalize is idempotent - a second call recomputes end time
// and aggregate status from current step data. Opening a step after Finalize
// yields a spent StepBuilder whose terminal calls return EXECUTION_FINALIZED.
//
// # Concurrency
//
// One Builder mutates one execution id; the single-writer discipline is the
// caller's responsibility (ids are collision-resistant, not locked). The
// Builder itself is mutex-guarded so Snapshot can be called from observers
// while the pipeline goroutine is mid-step.
//
// Lifecycle hooks and autosave failures are isolated: a panicking callback
// or failing store is logged and swallowed, never corrupting trace state.
package capture
