package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeBits(t *testing.T) {
	tests := []struct {
		name string
		desc TypeDescriptor
		want uint64
	}{
		{"scalar", Scalar(32, "int", true), 32},
		{"enum", Enum(32, "", false), 32},
		{"pointer", Pointer(64, Void()), 64},
		{"array", Array(160, 5, Scalar(32, "int", true)), 160},
		{"flexible array", Array(0, 0, Scalar(32, "int", true)), 0},
		{"struct ref", StructRef(96, "outer"), 96},
		{"bitfield", Bitfield(5), 5},
		{"void", Void(), 0},
		{"function", Function(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.desc.SizeBits())
		})
	}
}

func TestInline_PicksKindFromLayout(t *testing.T) {
	u := &StructLayout{Kind: AggregateUnion, TotalBits: 32}
	s := &StructLayout{Kind: AggregateStruct, TotalBits: 64}

	assert.Equal(t, KindUnionInline, Inline(u).Kind)
	assert.Equal(t, uint64(32), Inline(u).Bits)
	assert.Equal(t, KindStructInline, Inline(s).Kind)
}

func TestWrappersNestInDeclaredOrder(t *testing.T) {
	// pointer to array of 3 ints
	d := Pointer(64, Array(96, 3, Scalar(32, "int", true)))

	require.NotNil(t, d.Inner)
	assert.Equal(t, KindArray, d.Inner.Kind)
	require.NotNil(t, d.Inner.Inner)
	assert.Equal(t, KindScalar, d.Inner.Inner.Kind)
}

func TestStructLayout_Field(t *testing.T) {
	l := sampleLayout()

	f, ok := l.Field("third_field")
	require.True(t, ok)
	assert.Equal(t, uint64(64), f.BitOffset)

	_, ok = l.Field("missing")
	assert.False(t, ok)
	assert.False(t, l.IsUnion())
}
