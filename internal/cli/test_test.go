package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	graph, err := filepath.Abs(testStructCUE)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ts.yaml"), []byte(`name: ts
description: "test_struct fixture"
graph: `+graph+`
assertions:
  - type: emitted
    names: [test_struct]
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`name: wrong
description: "expects the wrong size"
graph: `+graph+`
assertions:
  - type: layout
    struct: test_struct
    total_bits: 64
`), 0o644))
	return dir
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := writeScenarioDir(t)

	_, _, err := execute(t, "test", dir, "--filter", "ts", "--update")
	require.NoError(t, err)
	golden, err := os.ReadFile(filepath.Join(dir, "golden", "ts.golden"))
	require.NoError(t, err)
	assert.Equal(t, testStructPy, string(golden))

	stdout, _, err := execute(t, "test", dir, "--filter", "ts")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ ts")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "ts.golden"), []byte("stale\n"), 0o644))
	stdout, _, err = execute(t, "test", dir, "--filter", "ts")
	require.Error(t, err)
	assert.Contains(t, stdout, "output does not match golden file")
}

func TestTestCommand_Failures(t *testing.T) {
	dir := writeScenarioDir(t)

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ wrong")
	assert.Contains(t, stdout, "layout test_struct: want 64 bits, got 128")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommand_JSON(t *testing.T) {
	dir := writeScenarioDir(t)

	stdout, _, err := execute(t, "--format", "json", "test", dir, "--filter", "ts")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"scenarios":[{"name":"ts","pass":true}],"passed":1,"failed":0,"total":1}}`, stdout)
}

func TestTestCommand_EmptyAndMissing(t *testing.T) {
	stdout, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", stdout)

	stdout, _, err = execute(t, "test", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "[E005]")
}
