package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/structlayout/internal/holes"
)

func TestHoles_Text(t *testing.T) {
	stdout, _, err := execute(t, "holes", testStructCUE)
	require.NoError(t, err)
	assert.Contains(t, stdout, "test_struct: 24-bit hole at 40 after second_field")
	assert.Contains(t, stdout, "1 hole(s), 24 bit(s) of padding in 1 layout(s)")
}

func TestHoles_NoHoles(t *testing.T) {
	stdout, _, err := execute(t, "holes", "testdata/graphs/packed.cue")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ no holes in 1 layout(s)")
}

func TestHoles_JSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "holes", testStructCUE, listCUE)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   HolesResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Structs)
	// list and node each end in 32 bits of tail padding.
	assert.Equal(t, uint64(24+32+32), resp.Data.TotalBits)
	require.Len(t, resp.Data.Holes, 3)
	assert.True(t, resp.Data.Holes[1].IsTail())
	assert.Equal(t, "list", resp.Data.Holes[1].Struct)
	assert.Equal(t, []holes.Hole{{
		Struct:       "test_struct",
		After:        "second_field",
		AfterOffset:  32,
		AfterBits:    8,
		Before:       "third_field",
		BeforeOffset: 64,
		Offset:       40,
		Bits:         24,
	}}, resp.Data.Holes[:1])
}

func TestHoles_ExtractionFailure(t *testing.T) {
	stdout, _, err := execute(t, "holes", badCUE)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "[E006]")
}

func TestHoles_MissingInput(t *testing.T) {
	stdout, _, err := execute(t, "holes", "missing.cue")
	require.Error(t, err)
	assert.Contains(t, stdout, "[E005]")
}
