package capture

import (
	"errors"
	"fmt"
)

// StateError reports an operation invoked on an entity that has already
// reached a terminal state: a second terminal call on a step, a mutation
// after finalize, or a step opened on a finalized execution.
//
// StateError includes structured fields for diagnostics.
type StateError struct {
	// Code identifies the error category.
	Code StateErrorCode

	// Op is the operation that was rejected (e.g., "Complete", "AddContext").
	Op string

	// ExecutionID identifies the affected execution.
	ExecutionID string

	// StepID identifies the affected step, when the operation was
	// step-scoped.
	StepID string
}

// StateErrorCode categorizes builder state errors.
type StateErrorCode string

const (
	// ErrCodeStepClosed indicates a terminal call on an already-terminal step.
	ErrCodeStepClosed StateErrorCode = "STEP_CLOSED"

	// ErrCodeExecutionFinalized indicates a mutation after Finalize.
	ErrCodeExecutionFinalized StateErrorCode = "EXECUTION_FINALIZED"
)

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("%s: invalid builder state: %s (execution=%s, step=%s)",
			e.Code, e.Op, e.ExecutionID, e.StepID)
	}
	return fmt.Sprintf("%s: invalid builder state: %s (execution=%s)", e.Code, e.Op, e.ExecutionID)
}

// IsStateError reports whether err is a *StateError.
// Uses errors.As to handle wrapped errors.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// EvaluationError reports a candidate evaluation that violates a data-model
// invariant (a ranked evaluation must be qualified). The offending
// evaluation set is rejected wholesale so the trace never holds it.
type EvaluationError struct {
	StepID       string
	EvaluationID string
	Message      string
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("invalid evaluation %q on step %s: %s", e.EvaluationID, e.StepID, e.Message)
}

// IsEvaluationError reports whether err is an *EvaluationError.
func IsEvaluationError(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}
