package trace

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of an Execution or Step.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Statuses lists every valid status, in lifecycle order.
// Used by aggregations that must emit a key for each status.
var Statuses = []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed}

// Valid reports whether s is one of the four defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal status. A terminal entity is
// immutable; the builder refuses further mutation once it is reached.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepType categorizes a step for consumers. It never changes core behavior.
type StepType string

const (
	StepLLM       StepType = "llm"
	StepSearch    StepType = "search"
	StepFilter    StepType = "filter"
	StepRank      StepType = "rank"
	StepTransform StepType = "transform"
	StepCustom    StepType = "custom"
)

// Valid reports whether t is one of the defined step types.
func (t StepType) Valid() bool {
	switch t {
	case StepLLM, StepSearch, StepFilter, StepRank, StepTransform, StepCustom:
		return true
	}
	return false
}

// FilterResult is one filter's verdict on one candidate, with a
// human-readable justification. Atomic and immutable.
type FilterResult struct {
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// FilterConfig describes a filter as applied to a whole step: its
// threshold/configuration value and the human-readable rule, independent of
// any single candidate's result.
type FilterConfig struct {
	Value Value  `json:"value,omitempty"`
	Rule  string `json:"rule"`
}

// UnmarshalJSON implements json.Unmarshaler; Value is interface-typed and
// needs explicit dispatch.
func (f *FilterConfig) UnmarshalJSON(data []byte) error {
	type alias FilterConfig
	shadow := struct {
		*alias
		Value json.RawMessage `json:"value,omitempty"`
	}{alias: (*alias)(f)}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	v, err := valueOrNil(shadow.Value)
	if err != nil {
		return fmt.Errorf("filter config value: %w", err)
	}
	f.Value = v
	return nil
}

// CandidateEvaluation records one candidate considered during a step.
//
// ID is unique within the step's evaluation set, not globally. Score,
// ScoreBreakdown and Rank are populated only by ranking steps; Rank is
// 1-based among qualified candidates (1 = best). If Rank is set, Qualified
// must be true - the builder enforces this at the boundary.
type CandidateEvaluation struct {
	ID             string                  `json:"id"`
	Data           Value                   `json:"data,omitempty"`
	FilterResults  map[string]FilterResult `json:"filterResults,omitempty"`
	Qualified      bool                    `json:"qualified"`
	Score          *float64                `json:"score,omitempty"`
	ScoreBreakdown map[string]float64      `json:"scoreBreakdown,omitempty"`
	Rank           *int                    `json:"rank,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler; Data is interface-typed and
// needs explicit dispatch.
func (c *CandidateEvaluation) UnmarshalJSON(data []byte) error {
	type alias CandidateEvaluation
	shadow := struct {
		*alias
		Data json.RawMessage `json:"data,omitempty"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	v, err := valueOrNil(shadow.Data)
	if err != nil {
		return fmt.Errorf("evaluation %q data: %w", c.ID, err)
	}
	c.Data = v
	return nil
}

// StepMetrics carries step-level counters. Duration is always computed by
// the builder as EndTime - StartTime; a caller-supplied duration is merged
// and then overwritten.
type StepMetrics struct {
	InputCount  *int          `json:"inputCount,omitempty"`
	OutputCount *int          `json:"outputCount,omitempty"`
	PassedCount *int          `json:"passedCount,omitempty"`
	FailedCount *int          `json:"failedCount,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Step is one unit of pipeline work within an Execution.
//
// A step is created in StatusRunning by the builder, mutated only through
// its step-scoped sub-builder, transitions exactly once to StatusCompleted
// or StatusFailed, and is immutable thereafter. EndTime is zero until the
// terminal transition. Output is present only when completed; Error only
// when failed.
type Step struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Type           StepType                `json:"type"`
	Status         Status                  `json:"status"`
	StartTime      time.Time               `json:"startTime"`
	EndTime        time.Time               `json:"endTime,omitzero"`
	Input          Value                   `json:"input,omitempty"`
	Output         Value                   `json:"output,omitempty"`
	Reasoning      string                  `json:"reasoning,omitempty"`
	Metrics        StepMetrics             `json:"metrics,omitzero"`
	Evaluations    []CandidateEvaluation   `json:"evaluations,omitempty"`
	FiltersApplied map[string]FilterConfig `json:"filtersApplied,omitempty"`
	Metadata       Object                  `json:"metadata,omitempty"`
	Error          string                  `json:"error,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler; Input and Output are
// interface-typed and need explicit dispatch.
func (s *Step) UnmarshalJSON(data []byte) error {
	type alias Step
	shadow := struct {
		*alias
		Input  json.RawMessage `json:"input,omitempty"`
		Output json.RawMessage `json:"output,omitempty"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	var err error
	if s.Input, err = valueOrNil(shadow.Input); err != nil {
		return fmt.Errorf("step %q input: %w", s.ID, err)
	}
	if s.Output, err = valueOrNil(shadow.Output); err != nil {
		return fmt.Errorf("step %q output: %w", s.ID, err)
	}
	return nil
}

// Execution is one full pipeline run: the root of the trace tree.
//
// Steps is append-only, ordered by step-open order. Context is mutable via
// the builder's AddContext until finalization. Tags are set at creation and
// immutable. Status after finalization is failed if any owned step failed,
// completed otherwise; it is never independently set by callers.
type Execution struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime,omitzero"`
	Status      Status    `json:"status"`
	Steps       []Step    `json:"steps"`
	Context     Object    `json:"context,omitempty"`
	FinalOutput Value     `json:"finalOutput,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler; FinalOutput is interface-typed
// and needs explicit dispatch.
func (e *Execution) UnmarshalJSON(data []byte) error {
	type alias Execution
	shadow := struct {
		*alias
		FinalOutput json.RawMessage `json:"finalOutput,omitempty"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	v, err := valueOrNil(shadow.FinalOutput)
	if err != nil {
		return fmt.Errorf("execution %q finalOutput: %w", e.ID, err)
	}
	e.FinalOutput = v
	return nil
}
