package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlens/glassbox/trace"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func exec(id string, status trace.Status, start time.Time, tags ...string) trace.Execution {
	return trace.Execution{
		ID:        id,
		Name:      "run " + id,
		StartTime: start,
		Status:    status,
		Tags:      tags,
	}
}

func seedStore(t *testing.T, execs ...trace.Execution) *Memory {
	t.Helper()
	m := NewMemory()
	for _, e := range execs {
		require.NoError(t, m.Save(e))
	}
	return m
}

func TestSave_EmptyIDRejected(t *testing.T) {
	m := NewMemory()
	assert.Error(t, m.Save(trace.Execution{}))
}

func TestSave_UpsertOverwritesWholesale(t *testing.T) {
	m := seedStore(t, exec("e1", trace.StatusRunning, baseTime, "a"))

	updated := exec("e1", trace.StatusCompleted, baseTime)
	require.NoError(t, m.Save(updated))

	got, found, err := m.Get("e1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, trace.StatusCompleted, got.Status)
	assert.Nil(t, got.Tags, "overwrite is wholesale, not a field merge")

	n, err := m.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGet_NotFoundIsAbsenceNotError(t *testing.T) {
	m := NewMemory()
	_, found, err := m.Get("missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGet_ReturnsDecoupledCopy(t *testing.T) {
	e := exec("e1", trace.StatusRunning, baseTime)
	e.Context = trace.Object{"k": trace.String("v")}
	m := seedStore(t, e)

	got, _, err := m.Get("e1")
	require.NoError(t, err)
	got.Context["k"] = trace.String("mutated")

	fresh, _, err := m.Get("e1")
	require.NoError(t, err)
	assert.Equal(t, trace.String("v"), fresh.Context["k"])
}

func TestSave_StoresDecoupledCopy(t *testing.T) {
	e := exec("e1", trace.StatusRunning, baseTime)
	e.Context = trace.Object{"k": trace.String("v")}
	m := seedStore(t, e)

	e.Context["k"] = trace.String("mutated after save")

	got, _, err := m.Get("e1")
	require.NoError(t, err)
	assert.Equal(t, trace.String("v"), got.Context["k"])
}

func TestDelete(t *testing.T) {
	m := seedStore(t, exec("e1", trace.StatusRunning, baseTime))

	removed, err := m.Delete("e1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = m.Delete("e1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestClear(t *testing.T) {
	m := seedStore(t,
		exec("e1", trace.StatusRunning, baseTime),
		exec("e2", trace.StatusCompleted, baseTime),
	)

	require.NoError(t, m.Clear())
	n, err := m.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCountByStatus_AllKeysPresentAndSumToCount(t *testing.T) {
	m := seedStore(t,
		exec("e1", trace.StatusRunning, baseTime),
		exec("e2", trace.StatusCompleted, baseTime),
		exec("e3", trace.StatusCompleted, baseTime),
		exec("e4", trace.StatusFailed, baseTime),
	)

	counts, err := m.CountByStatus()
	require.NoError(t, err)

	assert.Equal(t, map[trace.Status]int{
		trace.StatusPending:   0,
		trace.StatusRunning:   1,
		trace.StatusCompleted: 2,
		trace.StatusFailed:    1,
	}, counts)

	total, err := m.Count()
	require.NoError(t, err)
	sum := 0
	for _, n := range counts {
		sum += n
	}
	assert.Equal(t, total, sum)
}

func TestCountByStatus_EmptyStore(t *testing.T) {
	counts, err := NewMemory().CountByStatus()
	require.NoError(t, err)
	assert.Len(t, counts, 4)
	for status, n := range counts {
		assert.Zero(t, n, "status %s", status)
	}
}

func TestSubscribe_OncePerSaveUntilUnsubscribed(t *testing.T) {
	m := NewMemory()

	var got []string
	unsubscribe := m.Subscribe(func(e trace.Execution) {
		got = append(got, e.ID)
	})

	require.NoError(t, m.Save(exec("e1", trace.StatusRunning, baseTime)))
	require.NoError(t, m.Save(exec("e1", trace.StatusCompleted, baseTime)))
	require.NoError(t, m.Save(exec("e2", trace.StatusRunning, baseTime)))

	unsubscribe()
	require.NoError(t, m.Save(exec("e3", trace.StatusRunning, baseTime)))

	assert.Equal(t, []string{"e1", "e1", "e2"}, got)
}

func TestSubscribe_MultipleSubscribersAllNotified(t *testing.T) {
	m := NewMemory()

	counts := make([]int, 3)
	for i := range counts {
		i := i
		m.Subscribe(func(trace.Execution) { counts[i]++ })
	}

	require.NoError(t, m.Save(exec("e1", trace.StatusRunning, baseTime)))
	assert.Equal(t, []int{1, 1, 1}, counts)
}

func TestSubscribe_PanickingSubscriberIsolated(t *testing.T) {
	m := NewMemory()

	var survived int
	m.Subscribe(func(trace.Execution) { panic("bad subscriber") })
	m.Subscribe(func(trace.Execution) { survived++ })

	require.NoError(t, m.Save(exec("e1", trace.StatusRunning, baseTime)))
	assert.Equal(t, 1, survived)
}

func TestSubscribe_ReceivesDecoupledCopy(t *testing.T) {
	m := NewMemory()

	m.Subscribe(func(e trace.Execution) {
		if e.Context != nil {
			e.Context["k"] = trace.String("mutated")
		}
	})

	e := exec("e1", trace.StatusRunning, baseTime)
	e.Context = trace.Object{"k": trace.String("v")}
	require.NoError(t, m.Save(e))

	got, _, err := m.Get("e1")
	require.NoError(t, err)
	assert.Equal(t, trace.String("v"), got.Context["k"])
}

func TestRoundTrip_FullyPopulatedExecution(t *testing.T) {
	score := 0.7
	rank := 1
	e := trace.Execution{
		ID:        "exec_full",
		Name:      "round trip",
		StartTime: baseTime,
		EndTime:   baseTime.Add(time.Minute),
		Status:    trace.StatusCompleted,
		Context:   trace.Object{"marketplace": trace.String("US")},
		Tags:      []string{"demo"},
	}
	for i := 0; i < 5; i++ {
		evalCount := 3 + i*2 // 3..11 evaluations per step
		step := trace.Step{
			ID:        fmt.Sprintf("step_%d", i+1),
			Name:      fmt.Sprintf("stage %d", i+1),
			Type:      trace.StepFilter,
			Status:    trace.StatusCompleted,
			StartTime: baseTime.Add(time.Duration(i) * time.Second),
			EndTime:   baseTime.Add(time.Duration(i+1) * time.Second),
			Reasoning: "narrative",
			FiltersApplied: map[string]trace.FilterConfig{
				"threshold": {Value: trace.Float(0.5), Rule: ">= 0.5"},
			},
		}
		for j := 0; j < evalCount; j++ {
			step.Evaluations = append(step.Evaluations, trace.CandidateEvaluation{
				ID:        fmt.Sprintf("c%d", j),
				Data:      trace.Object{"n": trace.Int(int64(j))},
				Qualified: true,
				Score:     &score,
				Rank:      &rank,
			})
		}
		e.Steps = append(e.Steps, step)
	}
	e.FinalOutput = trace.Object{"winner": trace.String("c0")}

	m := seedStore(t, e)
	got, found, err := m.Get("exec_full")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, e, got)
}

func TestConcurrent_SavesAndQueries(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("e%d", i)
			for j := 0; j < 20; j++ {
				_ = m.Save(exec(id, trace.StatusRunning, baseTime.Add(time.Duration(i)*time.Second)))
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = m.FindAll(QueryOptions{Status: trace.StatusRunning})
				_, _ = m.CountByStatus()
			}
		}()
	}
	wg.Wait()

	n, err := m.Count()
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}
