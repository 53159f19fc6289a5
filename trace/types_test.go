package trace

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Valid(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, Status("cancelled").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
}

func TestStepType_Valid(t *testing.T) {
	for _, typ := range []StepType{StepLLM, StepSearch, StepFilter, StepRank, StepTransform, StepCustom} {
		assert.True(t, typ.Valid(), "type %s", typ)
	}
	assert.False(t, StepType("reduce").Valid())
}

func testExecution() Execution {
	score := 0.82
	rank := 1
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return Execution{
		ID:          "exec_1",
		Name:        "Competitor Product Selection",
		Description: "selects comparable products",
		StartTime:   start,
		EndTime:     start.Add(10 * time.Second),
		Status:      StatusCompleted,
		Steps: []Step{
			{
				ID:        "step_1",
				Name:      "price filter",
				Type:      StepFilter,
				Status:    StatusCompleted,
				StartTime: start,
				EndTime:   start.Add(2 * time.Second),
				Input:     Object{"candidatesCount": Int(12)},
				Output:    Object{"passed": Int(8), "failed": Int(4)},
				Reasoning: "kept candidates within 0.5x-2x of the reference price",
				Metrics: StepMetrics{
					PassedCount: intPtr(8),
					FailedCount: intPtr(4),
					Duration:    2 * time.Second,
				},
				Evaluations: []CandidateEvaluation{
					{
						ID:   "B001",
						Data: Object{"price": Float(24.99)},
						FilterResults: map[string]FilterResult{
							"priceRange": {Passed: true, Detail: "$24.99 within $15-$60"},
						},
						Qualified:      true,
						Score:          &score,
						ScoreBreakdown: map[string]float64{"price": 0.9, "rating": 0.74},
						Rank:           &rank,
					},
				},
				FiltersApplied: map[string]FilterConfig{
					"priceRange": {
						Value: Object{"min": Int(15), "max": Int(60)},
						Rule:  "0.5x-2x",
					},
				},
				Metadata: Object{"model": String("ranker-v2")},
			},
		},
		Context:     Object{"marketplace": String("US")},
		FinalOutput: Object{"selected": String("B001")},
		Tags:        []string{"selection", "demo"},
	}
}

func intPtr(n int) *int { return &n }

func TestExecution_JSONRoundTrip(t *testing.T) {
	original := testExecution()

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Execution
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestExecution_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(testExecution())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, field := range []string{"id", "name", "startTime", "endTime", "status", "steps", "context", "finalOutput", "tags"} {
		assert.Contains(t, raw, field)
	}

	var steps []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["steps"], &steps))
	require.Len(t, steps, 1)
	for _, field := range []string{"filtersApplied", "startTime", "metrics", "evaluations"} {
		assert.Contains(t, steps[0], field)
	}
}

func TestExecution_RunningOmitsEndTime(t *testing.T) {
	exec := Execution{
		ID:        "exec_2",
		Name:      "in progress",
		StartTime: time.Now(),
		Status:    StatusRunning,
	}

	data, err := json.Marshal(exec)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "endTime")
	assert.NotContains(t, raw, "finalOutput")
}

func TestExecution_NullFinalOutputRoundTrips(t *testing.T) {
	exec := Execution{ID: "exec_3", Name: "null output", Status: StatusCompleted, FinalOutput: Null{}}

	data, err := json.Marshal(exec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"finalOutput":null`)

	var decoded Execution
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Null{}, decoded.FinalOutput)
}

func TestStep_ScalarPayloadRoundTrips(t *testing.T) {
	step := Step{
		ID:     "step_1",
		Name:   "summarize",
		Type:   StepLLM,
		Status: StatusCompleted,
		Input:  String("prompt text"),
		Output: Float(0.5),
	}

	data, err := json.Marshal(step)
	require.NoError(t, err)

	var decoded Step
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, String("prompt text"), decoded.Input)
	assert.Equal(t, Float(0.5), decoded.Output)
}
