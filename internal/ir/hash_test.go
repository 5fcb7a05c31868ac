package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLayout() *StructLayout {
	return &StructLayout{
		Name:      "test_struct",
		Kind:      AggregateStruct,
		TotalBits: 128,
		Fields: []FieldDescriptor{
			{Name: "first_field", BitOffset: 0, Type: Scalar(32, "int", true)},
			{Name: "third_field", BitOffset: 64, Type: Pointer(64, Scalar(64, "long unsigned int", false))},
		},
	}
}

func TestLayoutHash_Deterministic(t *testing.T) {
	h1, err := LayoutHash(sampleLayout())
	require.NoError(t, err)
	h2, err := LayoutHash(sampleLayout())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "hex-encoded SHA-256")
}

func TestLayoutHash_ChangesWithOffset(t *testing.T) {
	a := sampleLayout()
	b := sampleLayout()
	b.Fields[1].BitOffset = 96

	assert.NotEqual(t, MustLayoutHash(a), MustLayoutHash(b))
}

func TestLayoutHash_FieldOrderMatters(t *testing.T) {
	a := sampleLayout()
	b := sampleLayout()
	b.Fields[0], b.Fields[1] = b.Fields[1], b.Fields[0]

	assert.NotEqual(t, MustLayoutHash(a), MustLayoutHash(b))
}

func TestHashWithDomain_Separation(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t, hashWithDomain("a", data), hashWithDomain("b", data))
}
