package capture

import (
	"log/slog"
	"sync"
	"time"

	"github.com/openlens/glassbox/trace"
)

// Builder records one execution. Create one per pipeline run with New,
// drive it from the goroutine running the pipeline, and call Finalize
// exactly once at the end (extra calls recompute idempotently).
type Builder struct {
	mu        sync.Mutex
	exec      trace.Execution
	stepSeq   int
	finalized bool

	store    Saver
	autosave bool
	now      func() time.Time
	logger   *slog.Logger

	onStepStart         func(trace.Step)
	onStepComplete      func(trace.Step)
	onExecutionComplete func(trace.Execution)
}

// New creates a Builder bound to a fresh Execution in running state.
func New(opts Options) *Builder {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Name
	if name == "" {
		name = DefaultExecutionName
	}

	start := now()
	id := opts.ExecutionID
	if id == "" {
		id = newExecutionID(start)
	}

	tags := make([]string, len(opts.Tags))
	copy(tags, opts.Tags)

	b := &Builder{
		exec: trace.Execution{
			ID:          id,
			Name:        name,
			Description: opts.Description,
			StartTime:   start,
			Status:      trace.StatusRunning,
			Steps:       []trace.Step{},
			Context:     opts.Context.Clone(),
			Tags:        tags,
		},
		store:               opts.Store,
		autosave:            opts.Store != nil && !opts.DisableAutoSave,
		now:                 now,
		logger:              logger,
		onStepStart:         opts.OnStepStart,
		onStepComplete:      opts.OnStepComplete,
		onExecutionComplete: opts.OnExecutionComplete,
	}

	if b.autosave {
		b.save(b.exec.Clone())
	}
	return b
}

// ExecutionID returns the id of the execution this builder owns.
func (b *Builder) ExecutionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exec.ID
}

// OpenStep allocates a new running step, appends it to the execution's step
// sequence (immediately visible to snapshot readers), fires OnStepStart,
// and returns the step-scoped sub-builder.
//
// An unknown step type is recorded as StepCustom. Opening a step after
// Finalize appends nothing and returns a spent StepBuilder whose terminal
// calls report EXECUTION_FINALIZED.
func (b *Builder) OpenStep(name string, typ trace.StepType) *StepBuilder {
	if !typ.Valid() {
		typ = trace.StepCustom
	}

	b.mu.Lock()
	if b.finalized {
		execID := b.exec.ID
		b.mu.Unlock()
		return &StepBuilder{b: b, spentErr: &StateError{
			Code:        ErrCodeExecutionFinalized,
			Op:          "OpenStep",
			ExecutionID: execID,
		}}
	}

	b.stepSeq++
	step := trace.Step{
		ID:        stepID(b.stepSeq),
		Name:      name,
		Type:      typ,
		Status:    trace.StatusRunning,
		StartTime: b.now(),
	}
	b.exec.Steps = append(b.exec.Steps, step)
	index := len(b.exec.Steps) - 1
	started := step.Clone()
	snapshot := b.snapshotForSaveLocked()
	b.mu.Unlock()

	b.fireStepHook("OnStepStart", b.onStepStart, started)
	b.save(snapshot)

	return &StepBuilder{b: b, index: index}
}

// AddContext merges a key into the execution's context mapping,
// last-write-wins. Returns an EXECUTION_FINALIZED state error once the
// execution is finalized.
func (b *Builder) AddContext(key string, v trace.Value) error {
	b.mu.Lock()
	if b.finalized {
		execID := b.exec.ID
		b.mu.Unlock()
		return &StateError{
			Code:        ErrCodeExecutionFinalized,
			Op:          "AddContext",
			ExecutionID: execID,
		}
	}
	if b.exec.Context == nil {
		b.exec.Context = trace.Object{}
	}
	b.exec.Context[key] = trace.CloneValue(v)
	snapshot := b.snapshotForSaveLocked()
	b.mu.Unlock()

	b.save(snapshot)
	return nil
}

// Finalize ends the execution: aggregate status is failed if any owned step
// failed, completed otherwise; end time is stamped; finalOutput (when
// non-nil) is recorded. Fires OnExecutionComplete, saves to the store even
// when autosave is disabled, and returns the final snapshot.
//
// Finalize is idempotent: a second call recomputes end time and status from
// current step data. Steps still running at finalization stay running in
// the trace; only failed steps influence the aggregate status.
func (b *Builder) Finalize(finalOutput trace.Value) trace.Execution {
	b.mu.Lock()
	status := trace.StatusCompleted
	for i := range b.exec.Steps {
		if b.exec.Steps[i].Status == trace.StatusFailed {
			status = trace.StatusFailed
			break
		}
	}
	b.exec.Status = status
	b.exec.EndTime = b.now()
	if finalOutput != nil {
		b.exec.FinalOutput = trace.CloneValue(finalOutput)
	}
	b.finalized = true
	final := b.exec.Clone()
	b.mu.Unlock()

	if b.onExecutionComplete != nil {
		b.fireExecutionHook(final.Clone())
	}
	if b.store != nil {
		b.save(final.Clone())
	}
	return final
}

// Snapshot returns a deep, decoupled copy of the current execution state,
// usable for live progress observation at any point, including mid-step.
func (b *Builder) Snapshot() trace.Execution {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exec.Clone()
}

// snapshotForSaveLocked clones the execution for an autosave push, or
// returns an empty value when autosave is off. Callers must hold b.mu.
func (b *Builder) snapshotForSaveLocked() (snap trace.Execution) {
	if b.autosave {
		snap = b.exec.Clone()
	}
	return snap
}

// save pushes a snapshot to the store, isolating failures. A zero-ID
// snapshot means autosave was off for this mutation.
func (b *Builder) save(snapshot trace.Execution) {
	if b.store == nil || snapshot.ID == "" {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("store save panicked", "execution", snapshot.ID, "panic", r)
		}
	}()
	if err := b.store.Save(snapshot); err != nil {
		b.logger.Error("store save failed", "execution", snapshot.ID, "error", err)
	}
}

// fireStepHook invokes a step lifecycle hook, isolating panics so a
// misbehaving hook cannot corrupt the capture protocol.
func (b *Builder) fireStepHook(name string, hook func(trace.Step), step trace.Step) {
	if hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("lifecycle hook panicked", "hook", name, "step", step.ID, "panic", r)
		}
	}()
	hook(step)
}

func (b *Builder) fireExecutionHook(exec trace.Execution) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("lifecycle hook panicked", "hook", "OnExecutionComplete", "execution", exec.ID, "panic", r)
		}
	}()
	b.onExecutionComplete(exec)
}
