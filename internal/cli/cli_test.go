package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStructPy = `test_struct = Struct('test_struct', 128, {
    'first_field': (0, Scalar(32, 'int', True)),
    'second_field': (32, Scalar(8, 'char', True)),
    'third_field': (64, Pointer(64, Scalar(64, 'long unsigned int', False))),
})
# dumped structs:
# test_struct
`

const (
	testStructCUE = "testdata/graphs/test_struct.cue"
	listCUE       = "testdata/graphs/list.cue"
	badCUE        = "testdata/graphs/bad.cue"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "structlayout", cmd.Use)
	assert.Contains(t, cmd.Long, "memory layout")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"extract"}, {"holes"}, {"catalog"}, {"catalog", "runs"}, {"catalog", "show"}, {"peek"}, {"test"}, {"version"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	extract, _, err := cmd.Find([]string{"extract"})
	require.NoError(t, err)
	output := extract.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, "1", extract.Flags().Lookup("jobs").DefValue)
	assert.Equal(t, "python", extract.Flags().Lookup("layout-format").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "structlayout 0.3.0 (ir 1)\n", out)

	out, _, err = execute(t, "--format", "json", "version")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"tool":"0.3.0","ir":"1"}}`, out)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	wrapped := WrapExitError(ExitFailure, "outer", assert.AnError)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.Equal(t, "outer: "+assert.AnError.Error(), wrapped.Error())
}

func TestOutputFormatter_Text(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf, Verbose: true}

	require.NoError(t, f.Error(ErrCodeConfig, "bad", "detail"))
	assert.Equal(t, "Error [E002]: bad\nDetails: detail\n", buf.String())
	assert.Equal(t, "✓", f.Mark(true))
	assert.Equal(t, "✗", f.Mark(false))

	buf.Reset()
	f.VerboseLog("hello %d", 1)
	assert.Equal(t, "hello 1\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	err := f.Fail(ExitCommandError, ErrCodeNotFound, "gone", nil)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.JSONEq(t, `{"status":"error","error":{"code":"E005","message":"gone"}}`, buf.String())
}
