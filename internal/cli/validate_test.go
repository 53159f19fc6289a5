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

const validScenarioYAML = `name: valid-scenario
execution:
  name: Valid Run
  tags: [test]
steps:
  - name: filter step
    type: filter
    input: { count: 2 }
    complete:
      output: { kept: 1 }
      metrics: { passedCount: 1, failedCount: 1 }
assertions:
  - type: execution_status
    status: completed
`

func writeScenarioFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateAcceptsValidScenario(t *testing.T) {
	path := writeScenarioFile(t, "valid.yaml", validScenarioYAML)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "ok   "+path)
	assert.Contains(t, buf.String(), "1 valid, 0 invalid")
}

func TestValidateRejectsUnknownStepType(t *testing.T) {
	path := writeScenarioFile(t, "bad-type.yaml", `name: bad-type
execution:
  name: Bad Type
steps:
  - name: s
    type: teleport
`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "FAIL "+path)
}

func TestValidateRejectsUnknownField(t *testing.T) {
	path := writeScenarioFile(t, "extra.yaml", `name: extra-field
execution:
  name: Extra
retries: 12
`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidateRejectsConflictingOutcome(t *testing.T) {
	// Passes the structural schema; the harness parser catches it.
	path := writeScenarioFile(t, "conflict.yaml", `name: conflict
execution:
  name: Conflict
steps:
  - name: s
    type: llm
    complete:
      output: 1
    fail: boom
`)

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "both complete and fail")
}

func TestValidateDirectoryJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(validScenarioYAML), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateMissingPath(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
