package typegraph

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/structlayout/internal/provider"
)

const sampleDoc = `
unit: "test_struct.c"
pointer_bits: 64
base: {
	"int":               {kind: "integer", bits: 32}
	"char":              {kind: "integer", bits: 8}
	"long unsigned int": {kind: "integer", bits: 64, unsigned: true}
	"float":             {kind: "real", bits: 32}
}
enums: e1: {bits: 32, unsigned: true}
typedefs: node_t: "struct node"
defs: [
	{declare: "struct fwd"},
	{struct: "node", fields: [
		{name: "next", type: {ptr: "node_t"}},
		{name: "f", type: {ptr: "struct fwd"}},
		{name: "flags", type: "int", width: 3},
		{type: {anon: "union", fields: [
			{name: "c", type: "int"},
			{name: "d", type: "float"},
		]}},
		{name: "e", type: "enum e1"},
		{name: "tail", type: {array: "int"}},
	]},
	{struct: "test_struct", fields: [
		{name: "first_field", type: "int"},
		{name: "second_field", type: "char"},
		{name: "third_field", type: {ptr: "long unsigned int"}},
		{name: "grid", type: {array: {array: "int", count: 2}, count: 3}},
	]},
]
`

func TestLoadString_Sample(t *testing.T) {
	g, err := LoadString("sample.cue", sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, "test_struct.c", g.Unit())

	finished := g.Finished()
	require.Len(t, finished, 2)

	node := finished[0]
	id, _ := node.Identifier()
	assert.Equal(t, "node", id)

	fields := node.Fields()
	require.Len(t, fields, 6)

	next := fields[0].Type()
	assert.Equal(t, provider.KindPointer, next.Kind())
	alias, _ := next.Elem().Identifier()
	assert.Equal(t, "node_t", alias)

	fwd := fields[1].Type().Elem()
	assert.False(t, fwd.IsComplete())

	assert.True(t, fields[2].IsBitfield())
	assert.Equal(t, uint64(3), fields[2].BitWidth())

	_, named := fields[3].Name()
	assert.False(t, named)
	assert.Equal(t, provider.KindUnion, fields[3].Type().Kind())
	assert.Equal(t, uint64(160), bitPos(t, fields[3]))

	assert.Equal(t, provider.KindEnum, fields[4].Type().Kind())
	assert.True(t, fields[4].Type().IsUnsigned())

	_, sized := fields[5].Type().SizeInBits()
	assert.False(t, sized)

	ts := finished[1]
	tsFields := ts.Fields()
	assert.Equal(t, uint64(64), bitPos(t, tsFields[2]))
	grid, _ := tsFields[3].Type().SizeInBits()
	assert.Equal(t, uint64(6*32), grid)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.cue")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0644))

	g, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, g.Finished(), 2)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	assert.Error(t, err)
}

func TestLoadString_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "unknown type",
			src:   `defs: [{struct: "s", fields: [{name: "a", type: "mystery"}]}]`,
			field: "struct s.fields[0].type",
		},
		{
			name:  "missing type",
			src:   `defs: [{struct: "s", fields: [{name: "a"}]}]`,
			field: "struct s.fields[0].type",
		},
		{
			name:  "bad base kind",
			src:   `base: "int": {kind: "pointer", bits: 64}`,
			field: "base.int.kind",
		},
		{
			name:  "definition without kind",
			src:   `defs: [{fields: []}]`,
			field: "defs",
		},
		{
			name:  "duplicate definition",
			src:   `base: "int": {kind: "integer", bits: 32}, defs: [{struct: "s", fields: [{name: "a", type: "int"}]}, {struct: "s", fields: []}]`,
			field: "struct s",
		},
		{
			name:  "bad declare",
			src:   `defs: [{declare: "class x"}]`,
			field: "declare",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString("bad.cue", tt.src)
			require.Error(t, err)
			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr), "got %T: %v", err, err)
			assert.Equal(t, tt.field, loadErr.Field)
		})
	}
}

func TestLoadString_SyntaxError(t *testing.T) {
	_, err := LoadString("broken.cue", `defs: [`)
	require.Error(t, err)
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Field: "defs", Message: "broken"}
	assert.Equal(t, "defs: broken", err.Error())
}
