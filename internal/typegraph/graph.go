package typegraph

import (
	"fmt"

	"github.com/roach88/structlayout/internal/provider"
)

// Type is a node of the in-memory type graph. It implements provider.TypeRef.
type Type struct {
	kind     provider.Kind
	name     string
	named    bool
	unsigned bool
	bits     uint64
	sized    bool
	align    uint64 // bits
	complete bool
	elem     *Type
	count    uint64
	fields   []*Field

	// main is set on typedef and qualified variants; layout queries are
	// answered by the main variant.
	main *Type
}

var _ provider.TypeRef = (*Type)(nil)

func (t *Type) base() *Type {
	if t.main != nil {
		return t.main
	}
	return t
}

func (t *Type) Kind() provider.Kind { return t.base().kind }

func (t *Type) SizeInBits() (uint64, bool) {
	b := t.base()
	return b.bits, b.sized
}

func (t *Type) IsComplete() bool { return t.base().complete }

func (t *Type) Identifier() (string, bool) { return t.name, t.named }

func (t *Type) MainVariantName() (string, bool) {
	b := t.base()
	return b.name, b.named
}

func (t *Type) IsUnsigned() bool { return t.base().unsigned }

func (t *Type) Elem() provider.TypeRef {
	b := t.base()
	if b.elem == nil {
		return nil
	}
	return b.elem
}

func (t *Type) Fields() []provider.Field {
	b := t.base()
	out := make([]provider.Field, len(b.fields))
	for i, f := range b.fields {
		out[i] = f
	}
	return out
}

// Align returns the natural alignment of the type in bits.
func (t *Type) Align() uint64 {
	b := t.base()
	if b.align == 0 {
		return 8
	}
	return b.align
}

// Variant returns a handle spelled as identifier whose main variant is t,
// the way a typedef or a qualified type refers back to its original.
func (t *Type) Variant(identifier string) *Type {
	return &Type{name: identifier, named: identifier != "", main: t.base()}
}

func (t *Type) String() string {
	b := t.base()
	if t.named {
		return fmt.Sprintf("%s %s", b.kind, t.name)
	}
	return fmt.Sprintf("anonymous %s", b.kind)
}

// Field is one struct/union member. It implements provider.Field.
type Field struct {
	name     string
	named    bool
	byteOff  uint64
	bitOff   uint64
	placed   bool
	nonConst bool
	bitfield bool
	width    uint64
	typ      *Type
}

var _ provider.Field = (*Field)(nil)

func (f *Field) Name() (string, bool) { return f.name, f.named }

func (f *Field) ByteOffset() (uint64, bool) { return f.byteOff, !f.nonConst }

func (f *Field) ExtraBitOffset() (uint64, bool) { return f.bitOff, !f.nonConst }

func (f *Field) IsBitfield() bool { return f.bitfield }

func (f *Field) BitWidth() uint64 {
	if f.bitfield {
		return f.width
	}
	bits, _ := f.typ.SizeInBits()
	return bits
}

func (f *Field) Type() provider.TypeRef { return f.typ }

// At places the field at an explicit position, split the way compilers do:
// a byte offset plus a bit delta.
func (f *Field) At(byteOff, bitOff uint64) *Field {
	f.byteOff = byteOff
	f.bitOff = bitOff
	f.placed = true
	return f
}

// NonConstant marks the offset as not a compile-time constant, as for
// variably-modified members.
func (f *Field) NonConstant() *Field {
	f.nonConst = true
	f.placed = true
	return f
}

func (f *Field) bitPos() uint64 { return f.byteOff*8 + f.bitOff }

// Graph is one compilation unit worth of types. It implements
// provider.Provider.
type Graph struct {
	unit        string
	pointerBits uint64
	finished    []*Type
}

var _ provider.Provider = (*Graph)(nil)

// New creates an empty graph for the named unit. Pointers are 64 bits wide.
func New(unit string) *Graph {
	return &Graph{unit: unit, pointerBits: 64}
}

// SetPointerBits changes the pointer width used by PointerTo.
func (g *Graph) SetPointerBits(bits uint64) { g.pointerBits = bits }

func (g *Graph) Unit() string { return g.unit }

// Finished returns the named aggregates in the order their definitions
// completed.
func (g *Graph) Finished() []*Type {
	return append([]*Type(nil), g.finished...)
}

// Replay delivers TypeFinished for every named aggregate in definition order,
// then CompilationFinished.
func (g *Graph) Replay(l provider.Listener) error {
	for _, t := range g.finished {
		if err := l.TypeFinished(t); err != nil {
			return err
		}
	}
	return l.CompilationFinished()
}
