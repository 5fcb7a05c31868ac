package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/structlayout/internal/config"
)

func TestExtract_ToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "layout.py")

	stdout, _, err := execute(t, "extract", "-o", out, testStructCUE)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ "+testStructCUE+" → "+out+" (1 layout(s))")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, testStructPy, string(data))
}

func TestExtract_ToStdout(t *testing.T) {
	stdout, stderr, err := execute(t, "extract", "-o", "-", testStructCUE)
	require.NoError(t, err)
	assert.Equal(t, testStructPy, stdout)
	assert.Contains(t, stderr, "✓ "+testStructCUE)
}

func TestExtract_TargetAndNoTrailer(t *testing.T) {
	stdout, _, err := execute(t, "extract", "-o", "-", "--struct", "node", "--no-trailer", listCUE)
	require.NoError(t, err)
	assert.Equal(t, `node = Struct('node', 128, {
    'next': (0, Pointer(64, StructField(128, 'node'))),
    'value': (64, Scalar(32, 'int', True)),
})
`, stdout)
}

func TestExtract_JSONLines(t *testing.T) {
	stdout, _, err := execute(t, "extract", "-o", "-", "--layout-format", "json", listCUE)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `{"emitted":["list","node"]}`, lines[2])

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "list", first["name"])
}

func TestExtract_OutputDirConcurrent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	stdout, _, err := execute(t, "--format", "json", "extract", "--output-dir", dir, "--jobs", "2", testStructCUE, listCUE)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ExtractResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Units, 2)
	assert.Equal(t, testStructCUE, resp.Data.Units[0].Unit)
	assert.Equal(t, []string{"list", "node"}, resp.Data.Units[1].Emitted)

	data, err := os.ReadFile(filepath.Join(dir, "test_struct.py"))
	require.NoError(t, err)
	assert.Equal(t, testStructPy, string(data))
	_, err = os.Stat(filepath.Join(dir, "list.py"))
	require.NoError(t, err)
}

func TestExtract_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{
			name:    "missing output",
			args:    []string{"extract", testStructCUE},
			wantMsg: "missing output destination",
		},
		{
			name:    "several units without output dir",
			args:    []string{"extract", "-o", "x.py", testStructCUE, listCUE},
			wantMsg: "required when extracting 2 units",
		},
		{
			name:    "unknown layout format",
			args:    []string{"extract", "-o", "-", "--layout-format", "xml", testStructCUE},
			wantMsg: `unknown format "xml"`,
		},
		{
			name:    "bad jobs",
			args:    []string{"extract", "-o", "-", "--jobs", "0", testStructCUE},
			wantMsg: "must be at least 1",
		},
		{
			name:    "missing config file",
			args:    []string{"extract", "--config", "nope.toml", testStructCUE},
			wantMsg: "read config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, "[E002]")
			assert.Contains(t, stdout, tt.wantMsg)
		})
	}
}

func TestExtract_NoInputs(t *testing.T) {
	stdout, _, err := execute(t, "extract", "-o", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "[E003]")
}

func TestExtract_ConfigFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "from-config.jsonl")
	cfgPath := filepath.Join(dir, "structlayout.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"output = \""+filepath.ToSlash(out)+"\"\nformat = \"json\"\ntrailer = false\n"), 0o644))

	_, _, err := execute(t, "extract", "--config", cfgPath, testStructCUE)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"fields":[`))

	// Flags win over the file.
	stdout, _, err := execute(t, "extract", "--config", cfgPath, "-o", "-", "--layout-format", "python", "--no-trailer=false", testStructCUE)
	require.NoError(t, err)
	assert.Equal(t, testStructPy, stdout)
}

func TestExtract_FailedUnitDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()

	stdout, stderr, err := execute(t, "extract", "--output-dir", dir, "--jobs", "2", badCUE, testStructCUE, "missing.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 of 3 unit(s) failed")

	assert.Contains(t, stdout, "✗ "+badCUE)
	assert.Contains(t, stdout, "UNEXPECTED_UNNAMED_FIELD")
	assert.Contains(t, stdout, "✓ "+testStructCUE)
	assert.Contains(t, stdout, "✗ missing.cue")
	assert.Contains(t, stderr, "extraction failed")

	data, err := os.ReadFile(filepath.Join(dir, "test_struct.py"))
	require.NoError(t, err)
	assert.Equal(t, testStructPy, string(data))
}

func TestExtract_FailedUnitJSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "extract", "-o", filepath.Join(t.TempDir(), "bad.py"), badCUE)
	require.Error(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ExtractResult `json:"data"`
		Error  CLIError      `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeExtractFailed, resp.Error.Code)
	require.Len(t, resp.Data.Units, 1)
	assert.Equal(t, ErrCodeExtractFailed, resp.Data.Units[0].Code)
}

func TestExtract_NotAnObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.o")
	require.NoError(t, os.WriteFile(path, []byte("not elf"), 0o644))

	stdout, _, err := execute(t, "--format", "json", "extract", "-o", filepath.Join(t.TempDir(), "out.py"), path)
	require.Error(t, err)

	var resp struct {
		Data ExtractResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Units, 1)
	assert.Equal(t, ErrCodeLoadFailed, resp.Data.Units[0].Code)
}

type closeFailure struct{ bytes.Buffer }

func (*closeFailure) Close() error { return errors.New("disk quota exceeded") }

func TestExtractor_CloseErrorFailsUnit(t *testing.T) {
	cfg := config.Default()
	cfg.Output = filepath.Join(t.TempDir(), "layout.py")
	out := &closeFailure{}
	x := &extractor{
		cfg:    cfg,
		stdout: io.Discard,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		create: func(string) (io.WriteCloser, error) { return out, nil },
	}

	res := x.extract(context.Background(), testStructCUE)
	assert.Equal(t, ErrCodeWriteFailed, res.Code)
	assert.Contains(t, res.Error, "disk quota exceeded")
	assert.Equal(t, testStructPy, out.String())
}
