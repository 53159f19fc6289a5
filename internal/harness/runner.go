package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/openlens/glassbox/capture"
	"github.com/openlens/glassbox/internal/testutil"
	"github.com/openlens/glassbox/store"
	"github.com/openlens/glassbox/trace"
)

// Result is the outcome of one scenario run.
type Result struct {
	// Execution is the final snapshot (finalized unless SkipFinalize).
	Execution trace.Execution

	// Store is the in-memory store the run autosaved into, available for
	// store-level assertions and inspection.
	Store *store.Memory

	// Failures lists assertion failures. Empty means the scenario passed.
	Failures []string
}

// Passed reports whether every assertion held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Run executes a scenario against a fresh in-memory store with a
// deterministic clock and evaluates its assertions.
func Run(scenario *Scenario) (*Result, error) {
	return RunInto(scenario, store.NewMemory())
}

// RunInto executes a scenario against the supplied store. The CLI uses
// this to replay scenarios into a durable backend.
func RunInto(scenario *Scenario, st store.Store) (*Result, error) {
	clock := testutil.NewScenarioClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // suppress logs in tests

	execID := scenario.Execution.ID
	if execID == "" {
		execID = "exec-" + scenario.Name
	}
	seedContext, err := toObject(scenario.Execution.Context)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: context: %w", scenario.Name, err)
	}

	b := capture.New(capture.Options{
		Name:        scenario.Execution.Name,
		Description: scenario.Execution.Description,
		Context:     seedContext,
		Tags:        scenario.Execution.Tags,
		ExecutionID: execID,
		Store:       st,
		Clock:       clock.Now,
		Logger:      logger,
	})

	for i, step := range scenario.Steps {
		if err := runStep(b, step); err != nil {
			return nil, fmt.Errorf("scenario %s: step %d (%s): %w", scenario.Name, i, step.Name, err)
		}
	}

	var exec trace.Execution
	if scenario.SkipFinalize {
		exec = b.Snapshot()
	} else {
		finalOutput, err := toValue(scenario.FinalOutput)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: finalOutput: %w", scenario.Name, err)
		}
		exec = b.Finalize(finalOutput)
	}

	result := &Result{Execution: exec}
	if mem, ok := st.(*store.Memory); ok {
		result.Store = mem
	}
	result.Failures = EvaluateAssertions(result, scenario.Assertions, st)
	return result, nil
}

// runStep drives one scripted step through the capture API.
func runStep(b *capture.Builder, step StepSpec) error {
	sb := b.OpenStep(step.Name, trace.StepType(step.Type))

	if step.Input != nil {
		input, err := toValue(step.Input)
		if err != nil {
			return fmt.Errorf("input: %w", err)
		}
		sb.WithInput(input)
	}
	if len(step.Filters) > 0 {
		filters := make(map[string]trace.FilterConfig, len(step.Filters))
		for name, spec := range step.Filters {
			value, err := toValue(spec.Value)
			if err != nil {
				return fmt.Errorf("filter %q: %w", name, err)
			}
			filters[name] = trace.FilterConfig{Value: value, Rule: spec.Rule}
		}
		sb.WithFilters(filters)
	}
	if len(step.Evaluations) > 0 {
		evals, err := toEvaluations(step.Evaluations)
		if err != nil {
			return err
		}
		sb.WithEvaluations(evals)
	}
	if step.Reasoning != "" {
		sb.WithReasoning(step.Reasoning)
	}
	if len(step.Metadata) > 0 {
		metadata, err := toObject(step.Metadata)
		if err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		sb.WithMetadata(metadata)
	}
	for key, raw := range step.AddContext {
		value, err := toValue(raw)
		if err != nil {
			return fmt.Errorf("addContext %q: %w", key, err)
		}
		if err := b.AddContext(key, value); err != nil {
			return fmt.Errorf("addContext %q: %w", key, err)
		}
	}

	switch {
	case step.Fail != "":
		if _, err := sb.Fail(step.Fail); err != nil {
			return err
		}
	case step.Complete != nil:
		output, err := toValue(step.Complete.Output)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		if _, err := sb.Complete(output, toMetrics(step.Complete.Metrics)); err != nil {
			return err
		}
	default:
		// Left running intentionally (abandoned-step scenarios).
	}
	return nil
}

func toEvaluations(specs []EvaluationSpec) ([]trace.CandidateEvaluation, error) {
	evals := make([]trace.CandidateEvaluation, len(specs))
	for i, spec := range specs {
		data, err := toValue(spec.Data)
		if err != nil {
			return nil, fmt.Errorf("evaluation %q data: %w", spec.ID, err)
		}
		ev := trace.CandidateEvaluation{
			ID:             spec.ID,
			Data:           data,
			Qualified:      spec.Qualified,
			Score:          spec.Score,
			ScoreBreakdown: spec.ScoreBreakdown,
			Rank:           spec.Rank,
		}
		if len(spec.FilterResults) > 0 {
			ev.FilterResults = make(map[string]trace.FilterResult, len(spec.FilterResults))
			for name, fr := range spec.FilterResults {
				ev.FilterResults[name] = trace.FilterResult{Passed: fr.Passed, Detail: fr.Detail}
			}
		}
		evals[i] = ev
	}
	return evals, nil
}

func toMetrics(spec *MetricsSpec) *trace.StepMetrics {
	if spec == nil {
		return nil
	}
	return &trace.StepMetrics{
		InputCount:  spec.InputCount,
		OutputCount: spec.OutputCount,
		PassedCount: spec.PassedCount,
		FailedCount: spec.FailedCount,
	}
}

// toValue converts decoded YAML to a trace.Value; nil input means absent.
func toValue(v any) (trace.Value, error) {
	if v == nil {
		return nil, nil
	}
	return trace.FromGo(v)
}

func toObject(m map[string]any) (trace.Object, error) {
	if len(m) == 0 {
		return nil, nil
	}
	value, err := trace.FromGo(m)
	if err != nil {
		return nil, err
	}
	return value.(trace.Object), nil
}
