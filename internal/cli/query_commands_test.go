package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const failedScenarioYAML = `name: failing-rerank
execution:
  name: Failing Rerank
  tags: [rerank]
steps:
  - name: rerank
    type: llm
    fail: model timeout
assertions:
  - type: execution_status
    status: failed
`

// seedDatabase replays two scenarios (one completed, one failed) into a
// fresh database and returns its path.
func seedDatabase(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(validScenarioYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(failedScenarioYAML), 0o644))
	dbPath := filepath.Join(dir, "traces.db")

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--db", dbPath})
	require.NoError(t, cmd.Execute())

	return dbPath
}

func TestListAll(t *testing.T) {
	dbPath := seedDatabase(t)

	buf := &bytes.Buffer{}
	cmd := NewListCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "exec-valid-scenario")
	assert.Contains(t, buf.String(), "exec-failing-rerank")
	assert.Contains(t, buf.String(), "2 execution(s)")
}

func TestListStatusAndTagFilters(t *testing.T) {
	dbPath := seedDatabase(t)

	buf := &bytes.Buffer{}
	cmd := NewListCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--status", "failed", "--tag", "rerank"})

	require.NoError(t, cmd.Execute())

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var rows []ExecutionRow
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "exec-failing-rerank", rows[0].ID)
	assert.Equal(t, "failed", rows[0].Status)
}

func TestListRejectsInvalidStatus(t *testing.T) {
	dbPath := seedDatabase(t)

	cmd := NewListCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, "--status", "done"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestListRejectsInvalidOrder(t *testing.T) {
	dbPath := seedDatabase(t)

	cmd := NewListCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, "--order", "duration"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestShowExecution(t *testing.T) {
	dbPath := seedDatabase(t)

	buf := &bytes.Buffer{}
	cmd := NewShowCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "exec-failing-rerank"})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "Execution exec-failing-rerank")
	assert.Contains(t, out, "Status:  failed")
	assert.Contains(t, out, "rerank [llm] failed")
	assert.Contains(t, out, "model timeout")
}

func TestShowUnknownExecution(t *testing.T) {
	dbPath := seedDatabase(t)

	cmd := NewShowCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, "exec-nope"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestStats(t *testing.T) {
	dbPath := seedDatabase(t)

	buf := &bytes.Buffer{}
	cmd := NewStatsCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	require.NoError(t, cmd.Execute())

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var stats StoreStats
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus["completed"])
	assert.Equal(t, 1, stats.ByStatus["failed"])
	assert.Equal(t, 0, stats.ByStatus["running"])
}
