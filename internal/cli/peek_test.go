package cli

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeImage lays out little-endian words at byte offsets and writes them
// to a file of size bytes.
func writeImage(t *testing.T, size int, words map[int]uint64) string {
	t.Helper()
	buf := make([]byte, size)
	for off, w := range words {
		binary.LittleEndian.PutUint64(buf[off:], w)
	}
	path := filepath.Join(t.TempDir(), "mem.bin")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

// listImage holds a two-node list at 0x2000.
func listImage(t *testing.T) string {
	return writeImage(t, 48, map[int]uint64{
		0x00: 0x2010, 0x08: 2, // list
		0x10: 0x2020, 0x18: 5, // node
		0x20: 0, 0x28: 6, // node
	})
}

func TestPeek_Unit(t *testing.T) {
	image := writeImage(t, 24, map[int]uint64{
		0x00: 42 | 'A'<<32,
		0x08: 0x1010,
		0x10: 99,
	})

	stdout, _, err := execute(t, "peek", "test_struct", image, "--unit", testStructCUE, "--base", "0x1000")
	require.NoError(t, err)
	assert.Equal(t, `int first_field = 42 0x2a
char second_field = 65 0x41
third_field = 0x1010
`, stdout)
}

func TestPeek_FollowsStructPointers(t *testing.T) {
	image := listImage(t)

	stdout, _, err := execute(t, "peek", "list", image, "--unit", listCUE, "--base", "0x2000")
	require.NoError(t, err)
	assert.Equal(t, `head = 0x2010
    next = 0x2020
    int value = 5 0x5
int count = 2 0x2
`, stdout)

	stdout, _, err = execute(t, "peek", "list", image, "--unit", listCUE, "--base", "0x2000", "--levels", "0")
	require.NoError(t, err)
	assert.Equal(t, "head = 0x2010\nint count = 2 0x2\n", stdout)
}

func TestPeek_AddrAndByteOrder(t *testing.T) {
	image := listImage(t)

	stdout, _, err := execute(t, "peek", "node", image, "--unit", listCUE, "--base", "0x2000", "--addr", "0x2020")
	require.NoError(t, err)
	assert.Equal(t, "next = 0x0\nint value = 6 0x6\n", stdout)

	stdout, _, err = execute(t, "peek", "node", image, "--unit", listCUE, "--base", "0x2000", "--addr", "0x2020", "--byte-order", "big")
	require.NoError(t, err)
	assert.Equal(t, "next = 0x0\nint value = 100663296 0x6000000\n", stdout)
}

func TestPeek_Catalog(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	_, _, err := execute(t, "extract", "--catalog", db, "--output-dir", filepath.Join(dir, "out"), testStructCUE, listCUE)
	require.NoError(t, err)

	image := listImage(t)
	stdout, _, err := execute(t, "--format", "json", "peek", "list", image, "--catalog", db, "--base", "0x2000")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   PeekResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "list", resp.Data.Struct)
	assert.Equal(t, uint64(0x2000), resp.Data.Addr)
	assert.NotEmpty(t, resp.Data.RunID)
	assert.Contains(t, resp.Data.Dump, "    int value = 5 0x5\n")
}

func TestPeek_Errors(t *testing.T) {
	image := listImage(t)

	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "no layout source",
			args:     []string{"peek", "node", image},
			wantCode: "[E002]",
			wantMsg:  "one of --unit or --catalog is required",
		},
		{
			name:     "both layout sources",
			args:     []string{"peek", "node", image, "--unit", listCUE, "--catalog", "runs.db"},
			wantCode: "[E002]",
			wantMsg:  "mutually exclusive",
		},
		{
			name:     "bad byte order",
			args:     []string{"peek", "node", image, "--unit", listCUE, "--byte-order", "middle"},
			wantCode: "[E002]",
			wantMsg:  `unknown byte order "middle"`,
		},
		{
			name:     "missing image",
			args:     []string{"peek", "node", "nope.bin", "--unit", listCUE},
			wantCode: "[E005]",
			wantMsg:  "image not found",
		},
		{
			name:     "unknown struct",
			args:     []string{"peek", "tree", image, "--unit", listCUE, "--base", "0x2000"},
			wantCode: "[E005]",
			wantMsg:  "tree: unknown struct or union",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, tt.wantCode)
			assert.Contains(t, stdout, tt.wantMsg)
		})
	}
}
