package typegraph

import (
	"fmt"

	"github.com/roach88/structlayout/internal/provider"
)

// Integer returns a named integer type of the given width.
func Integer(name string, bits uint64, unsigned bool) *Type {
	return scalar(provider.KindInteger, name, bits, unsigned)
}

// Boolean returns a named boolean type (C _Bool).
func Boolean(name string, bits uint64) *Type {
	return scalar(provider.KindBoolean, name, bits, true)
}

// Real returns a named floating point type.
func Real(name string, bits uint64) *Type {
	return scalar(provider.KindReal, name, bits, false)
}

// Complex returns a named complex floating point type. It aligns like its
// component type.
func Complex(name string, bits uint64) *Type {
	t := scalar(provider.KindComplex, name, bits, false)
	t.align = bits / 2
	return t
}

// Enum returns an enum type. An empty name makes it anonymous.
func Enum(name string, bits uint64, unsigned bool) *Type {
	return scalar(provider.KindEnum, name, bits, unsigned)
}

func scalar(kind provider.Kind, name string, bits uint64, unsigned bool) *Type {
	return &Type{
		kind:     kind,
		name:     name,
		named:    name != "",
		unsigned: unsigned,
		bits:     bits,
		sized:    true,
		align:    bits,
		complete: true,
	}
}

// Void returns the void type. It has no size and is never complete.
func Void() *Type {
	return &Type{kind: provider.KindVoid, name: "void", named: true, unsigned: true}
}

// Function returns a function type, the target of a function pointer.
func Function() *Type {
	return &Type{kind: provider.KindFunction, align: 8}
}

// PointerTo returns a pointer to elem using the graph's pointer width.
func (g *Graph) PointerTo(elem *Type) *Type {
	return g.wrapper(provider.KindPointer, elem)
}

// ReferenceTo returns a C++-style reference to elem.
func (g *Graph) ReferenceTo(elem *Type) *Type {
	return g.wrapper(provider.KindReference, elem)
}

func (g *Graph) wrapper(kind provider.Kind, elem *Type) *Type {
	return &Type{
		kind:     kind,
		unsigned: true,
		bits:     g.pointerBits,
		sized:    true,
		align:    g.pointerBits,
		complete: true,
		elem:     elem,
	}
}

// ArrayOf returns an array of count elements. The array is sized only when
// its element is.
func ArrayOf(elem *Type, count uint64) *Type {
	bits, sized := elem.SizeInBits()
	return &Type{
		kind:     provider.KindArray,
		bits:     bits * count,
		sized:    sized,
		align:    elem.Align(),
		complete: sized,
		elem:     elem,
		count:    count,
	}
}

// FlexibleArrayOf returns an array with no bound, as used for a trailing
// flexible array member. It has no size.
func FlexibleArrayOf(elem *Type) *Type {
	return &Type{
		kind:  provider.KindArray,
		align: elem.Align(),
		elem:  elem,
	}
}

// VectorOf returns a SIMD vector of count elements, aligned to its size.
func VectorOf(elem *Type, count uint64) *Type {
	t := ArrayOf(elem, count)
	t.kind = provider.KindVector
	t.align = t.bits
	return t
}

// Struct declares a named struct. It stays incomplete (a forward
// declaration) until passed to Complete.
func (g *Graph) Struct(name string) *Type {
	return &Type{kind: provider.KindStruct, name: name, named: name != ""}
}

// Union declares a named union. It stays incomplete until passed to Complete.
func (g *Graph) Union(name string) *Type {
	return &Type{kind: provider.KindUnion, name: name, named: name != ""}
}

// AnonStruct declares an anonymous struct.
func (g *Graph) AnonStruct() *Type { return g.Struct("") }

// AnonUnion declares an anonymous union.
func (g *Graph) AnonUnion() *Type { return g.Union("") }

// Member returns a named field of type t.
func Member(name string, t *Type) *Field {
	return &Field{name: name, named: true, typ: t}
}

// Bits returns a named bitfield of the given width with declared type t.
func Bits(name string, t *Type, width uint64) *Field {
	return &Field{name: name, named: name != "", typ: t, bitfield: true, width: width}
}

// Embed returns an unnamed member of aggregate type t, whose fields are
// accessed as if they belonged to the enclosing aggregate.
func Embed(t *Type) *Field {
	return &Field{typ: t}
}

// Padding returns an unnamed bitfield, which only reserves space.
func Padding(t *Type, width uint64) *Field {
	return &Field{typ: t, bitfield: true, width: width}
}

// Complete gives an aggregate its fields and marks it complete. Fields
// without an explicit position are laid out with natural alignment. A named
// aggregate is recorded as finished and will be replayed.
func (g *Graph) Complete(t *Type, fields ...*Field) error {
	if !t.kind.IsAggregate() {
		return fmt.Errorf("complete %s: not a struct or union", t)
	}
	if t.complete {
		return fmt.Errorf("complete %s: already complete", t)
	}
	bits, align, err := layoutFields(t.kind == provider.KindUnion, fields)
	if err != nil {
		return fmt.Errorf("complete %s: %w", t, err)
	}
	t.fields = fields
	t.bits = bits
	t.align = align
	t.sized = true
	t.complete = true
	if t.named {
		g.finished = append(g.finished, t)
	}
	return nil
}

// MustComplete is like Complete but panics on error and returns t.
// Use only in tests or when inputs are known to be valid.
func (g *Graph) MustComplete(t *Type, fields ...*Field) *Type {
	if err := g.Complete(t, fields...); err != nil {
		panic(err)
	}
	return t
}

func layoutFields(union bool, fields []*Field) (uint64, uint64, error) {
	var pos, end uint64
	align := uint64(8)

	for i, f := range fields {
		if f.typ == nil {
			return 0, 0, fmt.Errorf("field %d has no type", i)
		}
		size, sized := f.typ.SizeInBits()
		if f.bitfield {
			size = f.width
			sized = true
		}
		if !sized {
			flexible := f.typ.Kind() == provider.KindArray && i == len(fields)-1
			if !flexible {
				return 0, 0, fmt.Errorf("field %d has incomplete type %s", i, f.typ)
			}
		}

		if f.placed {
			if f.nonConst {
				continue
			}
			end = max(end, f.bitPos()+size)
			if !f.bitfield {
				align = max(align, f.typ.Align())
			}
			continue
		}

		var p uint64
		switch {
		case union:
			p = 0
		case f.bitfield && f.width == 0:
			p = roundUp(pos, f.typ.Align())
		case f.bitfield:
			unit, _ := f.typ.SizeInBits()
			p = pos
			if unit > 0 && p/unit != (p+f.width-1)/unit {
				p = roundUp(p, unit)
			}
		default:
			p = roundUp(pos, f.typ.Align())
		}
		f.byteOff = p / 8
		f.bitOff = p % 8
		f.placed = true

		if !f.bitfield || f.named {
			align = max(align, f.typ.Align())
		}
		pos = p + size
		end = max(end, pos)
	}
	return roundUp(end, align), align, nil
}

func roundUp(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	if r := n % align; r != 0 {
		return n + (align - r)
	}
	return n
}
