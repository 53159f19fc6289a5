package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one scripted pipeline run.
type Scenario struct {
	// Name uniquely identifies the scenario; golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description,omitempty"`

	// Execution is the execution header passed to the builder.
	Execution ExecutionSpec `yaml:"execution"`

	// Steps are driven through the capture API in order.
	Steps []StepSpec `yaml:"steps"`

	// FinalOutput is passed to Finalize. Optional.
	FinalOutput any `yaml:"finalOutput,omitempty"`

	// SkipFinalize leaves the execution running - used to script abandoned
	// runs, which stay visible in the store as running.
	SkipFinalize bool `yaml:"skipFinalize,omitempty"`

	// Assertions validate the final execution and store contents.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExecutionSpec is the scenario's execution header.
type ExecutionSpec struct {
	// ID fixes the execution id for deterministic golden comparison.
	// Defaults to "exec-" + scenario name.
	ID          string         `yaml:"id,omitempty"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Tags        []string       `yaml:"tags,omitempty"`
	Context     map[string]any `yaml:"context,omitempty"`
}

// StepSpec scripts one step: staged fields plus exactly one terminal
// outcome. A step with neither Complete nor Fail is left running.
type StepSpec struct {
	Name        string                    `yaml:"name"`
	Type        string                    `yaml:"type"`
	Input       any                       `yaml:"input,omitempty"`
	Filters     map[string]FilterSpec     `yaml:"filters,omitempty"`
	Evaluations []EvaluationSpec          `yaml:"evaluations,omitempty"`
	Reasoning   string                    `yaml:"reasoning,omitempty"`
	Metadata    map[string]any            `yaml:"metadata,omitempty"`
	AddContext  map[string]any            `yaml:"addContext,omitempty"`
	Complete    *CompleteSpec             `yaml:"complete,omitempty"`
	Fail        string                    `yaml:"fail,omitempty"`
}

// FilterSpec mirrors trace.FilterConfig with a free-form value.
type FilterSpec struct {
	Value any    `yaml:"value,omitempty"`
	Rule  string `yaml:"rule"`
}

// EvaluationSpec mirrors trace.CandidateEvaluation with free-form data.
type EvaluationSpec struct {
	ID             string                      `yaml:"id"`
	Data           any                         `yaml:"data,omitempty"`
	FilterResults  map[string]FilterResultSpec `yaml:"filterResults,omitempty"`
	Qualified      bool                        `yaml:"qualified"`
	Score          *float64                    `yaml:"score,omitempty"`
	ScoreBreakdown map[string]float64          `yaml:"scoreBreakdown,omitempty"`
	Rank           *int                        `yaml:"rank,omitempty"`
}

// FilterResultSpec mirrors trace.FilterResult.
type FilterResultSpec struct {
	Passed bool   `yaml:"passed"`
	Detail string `yaml:"detail,omitempty"`
}

// CompleteSpec is the successful terminal outcome of a step.
type CompleteSpec struct {
	Output  any          `yaml:"output,omitempty"`
	Metrics *MetricsSpec `yaml:"metrics,omitempty"`
}

// MetricsSpec carries caller-supplied counters; duration is always computed
// by the builder and cannot be scripted.
type MetricsSpec struct {
	InputCount  *int `yaml:"inputCount,omitempty"`
	OutputCount *int `yaml:"outputCount,omitempty"`
	PassedCount *int `yaml:"passedCount,omitempty"`
	FailedCount *int `yaml:"failedCount,omitempty"`
}

// Assertion validates the final execution or store state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Status is the expected status (execution_status, step_status).
	Status string `yaml:"status,omitempty"`

	// Step names the target step (step_status, step_metrics).
	Step string `yaml:"step,omitempty"`

	// Count is the expected step count (step_count).
	Count int `yaml:"count,omitempty"`

	// Metrics are expected counter values by field name (step_metrics).
	Metrics map[string]int `yaml:"metrics,omitempty"`

	// Counts are expected per-status store counts (store_counts).
	// Subset match - only listed statuses are checked.
	Counts map[string]int `yaml:"counts,omitempty"`
}

// Assertion type constants.
const (
	AssertExecutionStatus = "execution_status"
	AssertStepCount       = "step_count"
	AssertStepStatus      = "step_status"
	AssertStepMetrics     = "step_metrics"
	AssertStoreCounts     = "store_counts"
)

// LoadScenario reads and decodes a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes scenario YAML and checks structural constraints the
// type system cannot express.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("parse scenario: missing name")
	}
	for i, step := range s.Steps {
		if step.Name == "" {
			return nil, fmt.Errorf("parse scenario %s: step %d missing name", s.Name, i)
		}
		if step.Complete != nil && step.Fail != "" {
			return nil, fmt.Errorf("parse scenario %s: step %q has both complete and fail", s.Name, step.Name)
		}
	}
	return &s, nil
}
