package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listRuns(t *testing.T, db string) []RunSummary {
	t.Helper()
	stdout, _, err := execute(t, "--format", "json", "catalog", "runs", "--catalog", db)
	require.NoError(t, err)

	var resp struct {
		Data []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	return resp.Data
}

func TestCatalog_RecordAndShow(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")

	_, _, err := execute(t, "extract", "--catalog", db, "--output-dir", filepath.Join(dir, "out"), testStructCUE, listCUE)
	require.NoError(t, err)

	runs := listRuns(t, db)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, "ok", r.Status)
		assert.Equal(t, "python", r.Format)
		assert.NotEmpty(t, r.ID)
	}
	units := []string{runs[0].Unit, runs[1].Unit}
	assert.ElementsMatch(t, []string{"test_struct.c", "list.c"}, units)

	stdout, _, err := execute(t, "catalog", "show", "test_struct", "--catalog", db)
	require.NoError(t, err)
	assert.Equal(t, testStructPy[:len(testStructPy)-len("# dumped structs:\n# test_struct\n")], stdout)
}

func TestCatalog_ShowJSONWithHash(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")

	for range 2 {
		_, _, err := execute(t, "extract", "--catalog", db, "-o", filepath.Join(dir, "ts.py"), testStructCUE)
		require.NoError(t, err)
	}
	runs := listRuns(t, db)
	require.Len(t, runs, 2)

	stdout, _, err := execute(t, "--format", "json", "catalog", "show", "test_struct", "--catalog", db, "--run", runs[1].ID, "--hash")
	require.NoError(t, err)

	var resp struct {
		Data ShowResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, runs[1].ID, resp.Data.RunID)
	assert.Equal(t, 0, resp.Data.Ordinal)
	assert.Equal(t, "test_struct", resp.Data.Layout.Name)
	assert.Len(t, resp.Data.Layout.Fields, 3)
	// Runs are listed newest first; identical layouts oldest first.
	assert.Equal(t, []string{runs[1].ID, runs[0].ID}, resp.Data.SeenIn)
}

func TestCatalog_FailedRunIsRecorded(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")

	_, _, err := execute(t, "extract", "--catalog", db, "-o", filepath.Join(dir, "bad.py"), badCUE)
	require.Error(t, err)

	runs := listRuns(t, db)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
	assert.Contains(t, runs[0].Error, "UNEXPECTED_UNNAMED_FIELD")

	stdout, _, err := execute(t, "catalog", "runs", "--catalog", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✗ "+runs[0].ID)
	assert.Contains(t, stdout, "[failed]")
}

func TestCatalog_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	stdout, _, err := execute(t, "catalog", "runs", "--catalog", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", stdout)
}

func TestCatalog_ShowMissing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	stdout, _, err := execute(t, "catalog", "show", "nothing", "--catalog", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "[E005]")
}

func TestCatalog_RequiresPath(t *testing.T) {
	_, _, err := execute(t, "catalog", "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"catalog" not set`)
}
