package typegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/structlayout/internal/provider"
)

func bitPos(t *testing.T, f provider.Field) uint64 {
	t.Helper()
	b, ok := f.ByteOffset()
	require.True(t, ok)
	x, ok := f.ExtraBitOffset()
	require.True(t, ok)
	return b*8 + x
}

func TestComplete_NaturalAlignment(t *testing.T) {
	g := New("test.c")
	intT := Integer("int", 32, false)
	charT := Integer("char", 8, false)
	ulong := Integer("long unsigned int", 64, true)

	s := g.MustComplete(g.Struct("test_struct"),
		Member("first_field", intT),
		Member("second_field", charT),
		Member("third_field", g.PointerTo(ulong)),
	)

	fields := s.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, uint64(0), bitPos(t, fields[0]))
	assert.Equal(t, uint64(32), bitPos(t, fields[1]))
	assert.Equal(t, uint64(64), bitPos(t, fields[2]))

	bits, ok := s.SizeInBits()
	require.True(t, ok)
	assert.Equal(t, uint64(128), bits)
	assert.True(t, s.IsComplete())
	assert.Equal(t, []*Type{s}, g.Finished())
}

func TestComplete_BitfieldPacking(t *testing.T) {
	g := New("bf.c")
	intT := Integer("int", 32, false)

	s := g.MustComplete(g.Struct("x"),
		Bits("bf1", intT, 3),
		Bits("bf2", intT, 1),
		Member("n", intT),
		Bits("bf3", intT, 29),
	)

	fields := s.Fields()
	assert.Equal(t, uint64(0), bitPos(t, fields[0]))
	assert.Equal(t, uint64(3), bitPos(t, fields[1]))
	assert.Equal(t, uint64(32), bitPos(t, fields[2]))
	assert.Equal(t, uint64(64), bitPos(t, fields[3]))
	assert.Equal(t, uint64(29), fields[3].BitWidth())
}

func TestComplete_BitfieldDoesNotStraddleUnit(t *testing.T) {
	g := New("bf.c")
	charT := Integer("char", 8, false)

	s := g.MustComplete(g.Struct("x"),
		Bits("a", charT, 5),
		Bits("b", charT, 5),
	)

	fields := s.Fields()
	assert.Equal(t, uint64(0), bitPos(t, fields[0]))
	assert.Equal(t, uint64(8), bitPos(t, fields[1]), "5+5 bits would straddle the first char")

	bits, _ := s.SizeInBits()
	assert.Equal(t, uint64(16), bits)
}

func TestComplete_Union(t *testing.T) {
	g := New("u.c")
	u := g.MustComplete(g.Union("u"),
		Member("x", Integer("int", 32, false)),
		Member("c", Integer("char", 8, false)),
		Member("l", Integer("long int", 64, false)),
	)

	for _, f := range u.Fields() {
		assert.Equal(t, uint64(0), bitPos(t, f))
	}
	bits, _ := u.SizeInBits()
	assert.Equal(t, uint64(64), bits)
}

func TestComplete_FlexibleArrayMustBeLast(t *testing.T) {
	g := New("flex.c")
	intT := Integer("int", 32, false)

	s := g.MustComplete(g.Struct("ok"),
		Member("n", intT),
		Member("ar", FlexibleArrayOf(intT)),
	)
	bits, _ := s.SizeInBits()
	assert.Equal(t, uint64(32), bits)

	err := g.Complete(g.Struct("bad"),
		Member("ar", FlexibleArrayOf(intT)),
		Member("n", intT),
	)
	assert.Error(t, err)
}

func TestComplete_IncompleteMemberRejected(t *testing.T) {
	g := New("fwd.c")
	fwd := g.Struct("fwd")

	err := g.Complete(g.Struct("holder"), Member("f", fwd))
	assert.Error(t, err)

	// through a pointer it is fine
	require.NoError(t, g.Complete(g.Struct("holder2"), Member("f", g.PointerTo(fwd))))
}

func TestComplete_Twice(t *testing.T) {
	g := New("twice.c")
	s := g.MustComplete(g.Struct("s"), Member("a", Integer("int", 32, false)))

	assert.Error(t, g.Complete(s))
	assert.Error(t, g.Complete(Integer("int", 32, false)))
}

func TestVariant_ReportsMainVariant(t *testing.T) {
	g := New("td.c")
	node := g.MustComplete(g.Struct("node"), Member("v", Integer("int", 32, false)))
	alias := node.Variant("node_t")

	id, ok := alias.Identifier()
	require.True(t, ok)
	assert.Equal(t, "node_t", id)

	main, ok := alias.MainVariantName()
	require.True(t, ok)
	assert.Equal(t, "node", main)

	assert.True(t, alias.IsComplete())
	assert.Len(t, alias.Fields(), 1)
	assert.Equal(t, provider.KindStruct, alias.Kind())
}

func TestVariant_OfAnonymousStruct(t *testing.T) {
	g := New("td.c")
	anon := g.MustComplete(g.AnonStruct(), Member("v", Integer("int", 32, false)))
	alias := anon.Variant("anon_t")

	_, ok := alias.MainVariantName()
	assert.False(t, ok)
	id, _ := alias.Identifier()
	assert.Equal(t, "anon_t", id)
	assert.Empty(t, g.Finished(), "anonymous definitions never finish as named types")
}

type recorder struct {
	names    []string
	finished int
}

func (r *recorder) TypeFinished(t provider.TypeRef) error {
	name, _ := t.Identifier()
	r.names = append(r.names, name)
	return nil
}

func (r *recorder) CompilationFinished() error {
	r.finished++
	return nil
}

func TestReplay_Order(t *testing.T) {
	g := New("order.c")
	intT := Integer("int", 32, false)
	b := g.Struct("b")
	g.MustComplete(g.Struct("a"), Member("p", g.PointerTo(b)))
	g.MustComplete(b, Member("x", intT))

	r := &recorder{}
	require.NoError(t, g.Replay(r))
	assert.Equal(t, []string{"a", "b"}, r.names)
	assert.Equal(t, 1, r.finished)
}

func TestArrays(t *testing.T) {
	intT := Integer("int", 32, false)

	a := ArrayOf(intT, 17)
	bits, ok := a.SizeInBits()
	require.True(t, ok)
	assert.Equal(t, uint64(17*32), bits)
	assert.Same(t, intT, a.Elem())

	zero := ArrayOf(intT, 0)
	bits, ok = zero.SizeInBits()
	assert.True(t, ok)
	assert.Equal(t, uint64(0), bits)

	_, ok = FlexibleArrayOf(intT).SizeInBits()
	assert.False(t, ok)

	v := VectorOf(Real("float", 32), 4)
	assert.Equal(t, provider.KindVector, v.Kind())
	assert.Equal(t, uint64(128), v.Align())
}

func TestNonConstantOffset(t *testing.T) {
	f := Member("x", Integer("int", 32, false)).NonConstant()
	_, ok := f.ByteOffset()
	assert.False(t, ok)
	_, ok = f.ExtraBitOffset()
	assert.False(t, ok)
}
