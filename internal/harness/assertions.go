package harness

import (
	"fmt"

	"github.com/openlens/glassbox/store"
	"github.com/openlens/glassbox/trace"
)

// EvaluateAssertions checks every assertion against the run result and
// store, returning one failure message per violated assertion. Unknown
// assertion types are reported as failures rather than silently skipped.
func EvaluateAssertions(result *Result, assertions []Assertion, st store.Store) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertExecutionStatus:
			err = assertExecutionStatus(result.Execution, a)
		case AssertStepCount:
			err = assertStepCount(result.Execution, a)
		case AssertStepStatus:
			err = assertStepStatus(result.Execution, a)
		case AssertStepMetrics:
			err = assertStepMetrics(result.Execution, a)
		case AssertStoreCounts:
			err = assertStoreCounts(st, a)
		default:
			err = fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func assertExecutionStatus(exec trace.Execution, a Assertion) error {
	if string(exec.Status) != a.Status {
		return fmt.Errorf("execution_status: expected %q, got %q", a.Status, exec.Status)
	}
	return nil
}

func assertStepCount(exec trace.Execution, a Assertion) error {
	if len(exec.Steps) != a.Count {
		return fmt.Errorf("step_count: expected %d, got %d", a.Count, len(exec.Steps))
	}
	return nil
}

func assertStepStatus(exec trace.Execution, a Assertion) error {
	step, ok := findStep(exec, a.Step)
	if !ok {
		return fmt.Errorf("step_status: step %q not found", a.Step)
	}
	if string(step.Status) != a.Status {
		return fmt.Errorf("step_status: step %q: expected %q, got %q", a.Step, a.Status, step.Status)
	}
	return nil
}

func assertStepMetrics(exec trace.Execution, a Assertion) error {
	step, ok := findStep(exec, a.Step)
	if !ok {
		return fmt.Errorf("step_metrics: step %q not found", a.Step)
	}
	for field, want := range a.Metrics {
		got, ok := metricCounter(step.Metrics, field)
		if !ok {
			return fmt.Errorf("step_metrics: step %q: %s not set (expected %d)", a.Step, field, want)
		}
		if got != want {
			return fmt.Errorf("step_metrics: step %q: %s: expected %d, got %d", a.Step, field, want, got)
		}
	}
	return nil
}

func assertStoreCounts(st store.Store, a Assertion) error {
	counts, err := st.CountByStatus()
	if err != nil {
		return fmt.Errorf("store_counts: %w", err)
	}
	for status, want := range a.Counts {
		got := counts[trace.Status(status)]
		if got != want {
			return fmt.Errorf("store_counts: %s: expected %d, got %d", status, want, got)
		}
	}
	return nil
}

// findStep locates a step by name, falling back to id.
func findStep(exec trace.Execution, name string) (trace.Step, bool) {
	for _, step := range exec.Steps {
		if step.Name == name || step.ID == name {
			return step, true
		}
	}
	return trace.Step{}, false
}

// metricCounter resolves a scripted metrics field name to its value.
func metricCounter(m trace.StepMetrics, field string) (int, bool) {
	var p *int
	switch field {
	case "inputCount":
		p = m.InputCount
	case "outputCount":
		p = m.OutputCount
	case "passedCount":
		p = m.PassedCount
	case "failedCount":
		p = m.FailedCount
	default:
		return 0, false
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}
