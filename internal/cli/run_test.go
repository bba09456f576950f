package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sigevent/internal/store"
	"github.com/roach88/sigevent/internal/trace"
)

const edgeScenarioYAML = `
name: edge
description: "query is true only at the change tick"
signals:
  clk: "0"
steps:
  - register: {site: ev1, file: top.vhd, line: 12, args: [clk]}
  - change: {signal: clk, value: "1", time: 100}
  - query: {site: ev1, time: 100, expect: true}
  - query: {site: ev1, time: 101, expect: false}
  - teardown: {expect_released: 1}
`

const failingScenarioYAML = `
name: failing
description: "expects the wrong result"
steps:
  - register: {site: ev1, file: top.vhd, line: 1, args: [clk]}
  - query: {site: ev1, time: 0, expect: true}
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunMissingArgument(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestRunInvalidScenario(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "name: bad\n")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenario")
}

func TestRunTextOutput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "edge.yaml", edgeScenarioYAML)

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "✓ edge (session test-session-default)")
	assert.Contains(t, out, "[1] REG    top.vhd:12 #0 <- clk")
	assert.Contains(t, out, "[2] CHANGE #0 @0:100")
	assert.Contains(t, out, "[3] QUERY  #0 @0:100 = 1")
	assert.Contains(t, out, "[4] QUERY  #0 @0:101 = 0")
	assert.Contains(t, out, "[5] END    released 1")
	assert.NotContains(t, out, "=== Metrics ===")
}

func TestRunFailingScenario(t *testing.T) {
	path := writeFile(t, t.TempDir(), "failing.yaml", failingScenarioYAML)

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ failing")
	assert.Contains(t, buf.String(), "expected 1, got 0")
}

func TestRunSetupErrorDiagnostics(t *testing.T) {
	path := writeFile(t, t.TempDir(), "setup.yaml", `
name: setup
description: "missing argument"
steps:
  - register: {site: ev1, file: top.vhd, line: 3, args: [], expect_error: "requires a single argument"}
`)

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "=== Diagnostics ===")
	assert.Contains(t, out, "top.vhd:3: (compiler error) $ivlh_attribute_event requires a single argument.")
	assert.Contains(t, out, "finish requested: 1")
	assert.Contains(t, out, "REG    top.vhd:3 (no monitor)")
}

func TestRunJSONOutput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "edge.yaml", edgeScenarioYAML)

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--session", "s-42"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status    string `json:"status"`
		SessionID string `json:"session_id"`
		Data      struct {
			Scenario string `json:"scenario"`
			Result   struct {
				Pass  bool          `json:"pass"`
				Trace []trace.Event `json:"trace"`
			} `json:"result"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "s-42", resp.SessionID)
	assert.Equal(t, "edge", resp.Data.Scenario)
	assert.True(t, resp.Data.Result.Pass)
	assert.Len(t, resp.Data.Result.Trace, 5)
}

func TestRunWithMetrics(t *testing.T) {
	path := writeFile(t, t.TempDir(), "edge.yaml", edgeScenarioYAML)

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--metrics"})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "=== Metrics ===")
	assert.Contains(t, out, "sigevent_monitors_created_total 1")
	assert.Contains(t, out, `sigevent_queries_total{result="true"} 1`)
	assert.Contains(t, out, "sigevent_monitors_released_total 1")
}

func TestRunPersistsTrace(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "edge.yaml", edgeScenarioYAML)
	dbPath := filepath.Join(tmpDir, "traces.db")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--db", dbPath})

	require.NoError(t, cmd.Execute())

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	sessions, err := st.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "edge", sessions[0].Scenario)
	assert.Equal(t, 5, sessions[0].Events)
	// No session id in the scenario or flags: a UUIDv7 is generated.
	assert.Len(t, sessions[0].ID, 36)
	assert.Contains(t, buf.String(), "(session "+sessions[0].ID+")")
}

func TestRunPersistsWithFixedGenerator(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "edge.yaml", edgeScenarioYAML)
	dbPath := filepath.Join(tmpDir, "traces.db")

	opts := &RunOptions{
		RootOptions:      &RootOptions{Format: "text"},
		Database:         dbPath,
		SessionGenerator: trace.NewFixedGenerator("fixed-1"),
	}
	cmd := NewRunCommand(opts.RootOptions)
	cmd.SetOut(&bytes.Buffer{})

	require.NoError(t, runScenario(opts, path, cmd))

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	events, err := st.ReadTrace(context.Background(), "fixed-1")
	require.NoError(t, err)
	assert.Len(t, events, 5)
}
