package capture

import (
	"github.com/openlens/glassbox/trace"
)

// StepBuilder is the step-scoped sub-builder returned by OpenStep. The
// fluent With* setters stage fields on the pending step in any order,
// overwriting on repeat; Complete and Fail are the terminal calls.
//
// After a terminal call the StepBuilder is spent: setters become no-ops and
// terminal calls return a STEP_CLOSED state error. Once the owning
// execution is finalized every StepBuilder is spent the same way, with
// EXECUTION_FINALIZED from the terminal calls, so an in-flight step cannot
// rewrite a finalized trace. Only the goroutine driving the owning Builder
// should use a StepBuilder.
type StepBuilder struct {
	b     *Builder
	index int

	closed    bool
	spentErr  *StateError // set when the step was opened after Finalize
	stagedErr error       // evaluation invariant violation, surfaced by Complete
}

// WithInput stages the step's input payload.
func (sb *StepBuilder) WithInput(payload trace.Value) *StepBuilder {
	return sb.stage("WithInput", func(step *trace.Step) {
		step.Input = trace.CloneValue(payload)
	})
}

// WithFilters stages the step-level filter configuration: filter name to
// threshold value and human-readable rule.
func (sb *StepBuilder) WithFilters(filters map[string]trace.FilterConfig) *StepBuilder {
	return sb.stage("WithFilters", func(step *trace.Step) {
		applied := make(map[string]trace.FilterConfig, len(filters))
		for name, fc := range filters {
			applied[name] = trace.FilterConfig{Value: trace.CloneValue(fc.Value), Rule: fc.Rule}
		}
		step.FiltersApplied = applied
	})
}

// WithEvaluations stages the step's candidate evaluations.
//
// The set is validated against the data-model invariant that a ranked
// evaluation must be qualified. A violating set is rejected wholesale (the
// prior staged value, if any, is kept) and the error is surfaced by the
// next Complete call - the fluent chain itself has no error channel.
func (sb *StepBuilder) WithEvaluations(evals []trace.CandidateEvaluation) *StepBuilder {
	return sb.stage("WithEvaluations", func(step *trace.Step) {
		for _, ev := range evals {
			if ev.Rank != nil && !ev.Qualified {
				sb.stagedErr = &EvaluationError{
					StepID:       step.ID,
					EvaluationID: ev.ID,
					Message:      "rank set on unqualified candidate",
				}
				sb.b.logger.Warn("rejected evaluation set",
					"step", step.ID, "evaluation", ev.ID, "reason", "rank set on unqualified candidate")
				return
			}
		}
		sb.stagedErr = nil
		staged := make([]trace.CandidateEvaluation, len(evals))
		for i, ev := range evals {
			staged[i] = ev.Clone()
		}
		step.Evaluations = staged
	})
}

// WithReasoning stages the human-readable narrative for the step.
func (sb *StepBuilder) WithReasoning(reasoning string) *StepBuilder {
	return sb.stage("WithReasoning", func(step *trace.Step) {
		step.Reasoning = reasoning
	})
}

// WithMetadata stages arbitrary step metadata, opaque to the core.
func (sb *StepBuilder) WithMetadata(metadata trace.Object) *StepBuilder {
	return sb.stage("WithMetadata", func(step *trace.Step) {
		step.Metadata = metadata.Clone()
	})
}

// Complete closes the step successfully: records output, merges supplied
// metrics, stamps the end time, and computes metrics.duration from the
// step's own timestamps (a caller-supplied duration is always overwritten).
// Fires OnStepComplete and autosaves. Returns the finalized step.
//
// Returns a *StateError when the step is already terminal or the execution
// has been finalized, and an *EvaluationError staged
// by WithEvaluations - in that case the step stays running so the caller
// can restage a valid evaluation set and complete again.
func (sb *StepBuilder) Complete(output trace.Value, metrics *trace.StepMetrics) (trace.Step, error) {
	b := sb.b
	b.mu.Lock()
	if err := sb.terminalGuardLocked("Complete"); err != nil {
		b.mu.Unlock()
		return trace.Step{}, err
	}
	if sb.stagedErr != nil {
		err := sb.stagedErr
		b.mu.Unlock()
		return trace.Step{}, err
	}

	step := &b.exec.Steps[sb.index]
	step.Output = trace.CloneValue(output)
	step.Status = trace.StatusCompleted
	step.EndTime = b.now()
	if metrics != nil {
		step.Metrics = metrics.Clone()
	}
	step.Metrics.Duration = step.EndTime.Sub(step.StartTime)
	sb.closed = true

	done := step.Clone()
	snapshot := b.snapshotForSaveLocked()
	b.mu.Unlock()

	b.fireStepHook("OnStepComplete", b.onStepComplete, done)
	b.save(snapshot)
	return done, nil
}

// Fail closes the step as failed: records the error message, stamps the end
// time, and computes metrics.duration. Fires OnStepComplete and autosaves.
// Returns the finalized step.
//
// Fail is never blocked by a staged evaluation error - capturing the
// pipeline's own failure takes precedence.
func (sb *StepBuilder) Fail(errorMessage string) (trace.Step, error) {
	b := sb.b
	b.mu.Lock()
	if err := sb.terminalGuardLocked("Fail"); err != nil {
		b.mu.Unlock()
		return trace.Step{}, err
	}

	step := &b.exec.Steps[sb.index]
	step.Status = trace.StatusFailed
	step.Error = errorMessage
	step.EndTime = b.now()
	step.Metrics.Duration = step.EndTime.Sub(step.StartTime)
	sb.closed = true

	done := step.Clone()
	snapshot := b.snapshotForSaveLocked()
	b.mu.Unlock()

	b.fireStepHook("OnStepComplete", b.onStepComplete, done)
	b.save(snapshot)
	return done, nil
}

// stage runs a setter mutation under the builder lock. Setters on a spent
// sub-builder, or on any sub-builder after Finalize, are no-ops.
func (sb *StepBuilder) stage(op string, mutate func(step *trace.Step)) *StepBuilder {
	b := sb.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if sb.spentErr != nil || sb.closed || b.finalized {
		b.logger.Debug("setter ignored on spent step builder", "op", op)
		return sb
	}
	mutate(&b.exec.Steps[sb.index])
	return sb
}

// terminalGuardLocked rejects a terminal call on a spent sub-builder, and
// on any sub-builder once the owning execution is finalized: a step still
// running at Finalize stays running in the trace, so a late Complete or
// Fail must not rewrite the finalized aggregate. Callers must hold b.mu.
func (sb *StepBuilder) terminalGuardLocked(op string) error {
	if sb.spentErr != nil {
		err := *sb.spentErr
		err.Op = op
		return &err
	}
	if sb.closed {
		return &StateError{
			Code:        ErrCodeStepClosed,
			Op:          op,
			ExecutionID: sb.b.exec.ID,
			StepID:      sb.b.exec.Steps[sb.index].ID,
		}
	}
	if sb.b.finalized {
		return &StateError{
			Code:        ErrCodeExecutionFinalized,
			Op:          op,
			ExecutionID: sb.b.exec.ID,
			StepID:      sb.b.exec.Steps[sb.index].ID,
		}
	}
	return nil
}
