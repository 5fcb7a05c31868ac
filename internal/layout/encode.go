package layout

import (
	"github.com/roach88/structlayout/internal/ir"
	"github.com/roach88/structlayout/internal/provider"
)

// vaListTag is the record beneath __builtin_va_list. Its main variant does
// not carry the spelling users see, so it is matched before anything else.
const vaListTag = "__va_list_tag"

// typeName returns the name an aggregate or enum is reported under: the
// main variant's name when there is one, else the identifier it was spelled
// with (a typedef of an anonymous definition).
func typeName(t provider.TypeRef) (string, bool) {
	id, hasID := t.Identifier()
	if hasID && id == vaListTag {
		return vaListTag, true
	}
	if main, ok := t.MainVariantName(); ok {
		return main, true
	}
	return id, hasID
}

func sizeOf(t provider.TypeRef) uint64 {
	bits, ok := t.SizeInBits()
	if !ok {
		return 0
	}
	return bits
}

func aggregateKind(k provider.Kind) ir.AggregateKind {
	if k == provider.KindUnion {
		return ir.AggregateUnion
	}
	return ir.AggregateStruct
}

// encodeAggregate builds the layout of a complete struct or union. name is
// empty for anonymous aggregates encoded in place.
func (s *Session) encodeAggregate(t provider.TypeRef, name string) (*ir.StructLayout, error) {
	if !t.Kind().IsAggregate() {
		return nil, invariant(ErrCodeNotAggregate, name, "", "%s is not a struct or union", t.Kind())
	}
	if !t.IsComplete() {
		return nil, invariant(ErrCodeIncompleteType, name, "", "%s has no field list", t.Kind())
	}

	l := &ir.StructLayout{
		Name:      name,
		Kind:      aggregateKind(t.Kind()),
		TotalBits: sizeOf(t),
		Fields:    []ir.FieldDescriptor{},
	}
	if err := s.encodeFields(l, t.Fields(), 0, name); err != nil {
		return nil, err
	}
	return l, nil
}

// encodeFields appends the descriptors of fields to l. base is added to
// every offset; it is non-zero when flattening an unnamed member.
func (s *Session) encodeFields(l *ir.StructLayout, fields []provider.Field, base uint64, owner string) error {
	for _, f := range fields {
		name, named := f.Name()

		byteOff, ok := f.ByteOffset()
		if !ok {
			return invariant(ErrCodeNonConstantOffset, owner, name, "byte offset is not a compile-time constant")
		}
		extra, ok := f.ExtraBitOffset()
		if !ok {
			return invariant(ErrCodeNonConstantOffset, owner, name, "bit offset is not a compile-time constant")
		}
		offset := base + byteOff*8 + extra

		ft := f.Type()
		if ft == nil {
			return invariant(ErrCodeUnknownTypeShape, owner, name, "field has no type")
		}

		if !named {
			switch {
			case f.IsBitfield(), ft.Kind() == provider.KindInteger:
				// padding
				continue
			case ft.Kind().IsAggregate():
				if !ft.IsComplete() {
					return invariant(ErrCodeIncompleteType, owner, "", "unnamed member of incomplete %s", ft.Kind())
				}
				if err := s.encodeFields(l, ft.Fields(), offset, owner); err != nil {
					return err
				}
				continue
			default:
				return invariant(ErrCodeUnexpectedUnnamedField, owner, "", "unnamed field of kind %s", ft.Kind())
			}
		}

		desc, err := s.encodeType(f, ft, owner, name)
		if err != nil {
			return err
		}
		fd := ir.FieldDescriptor{
			Name:       name,
			BitOffset:  offset,
			Type:       desc,
			IsBitfield: f.IsBitfield(),
		}
		if fd.IsBitfield {
			fd.BitWidth = f.BitWidth()
		}
		l.Fields = append(l.Fields, fd)
	}
	return nil
}

type wrapper struct {
	kind  provider.Kind
	bits  uint64
	count uint64
}

// encodeType describes the type of a named field. Pointer and array layers
// are peeled until a leaf is reached, then rewrapped so the outermost layer
// of the declaration is the outermost descriptor.
func (s *Session) encodeType(f provider.Field, t provider.TypeRef, owner, field string) (ir.TypeDescriptor, error) {
	var layers []wrapper
	for t != nil && !t.Kind().IsLeaf() {
		w := wrapper{kind: t.Kind(), bits: sizeOf(t)}
		switch t.Kind() {
		case provider.KindPointer, provider.KindReference:
		case provider.KindArray, provider.KindVector:
			w.count = elementCount(t)
		default:
			return ir.TypeDescriptor{}, invariant(ErrCodeUnknownTypeShape, owner, field, "unexpected type kind %s", t.Kind())
		}
		layers = append(layers, w)
		t = t.Elem()
	}
	if t == nil {
		return ir.TypeDescriptor{}, invariant(ErrCodeUnknownTypeShape, owner, field, "wrapper type without an element type")
	}

	leaf, err := s.encodeLeaf(f, t, len(layers) == 0, owner, field)
	if err != nil {
		return ir.TypeDescriptor{}, err
	}

	for i := len(layers) - 1; i >= 0; i-- {
		w := layers[i]
		switch w.kind {
		case provider.KindPointer, provider.KindReference:
			leaf = ir.Pointer(w.bits, leaf)
		default:
			leaf = ir.Array(w.bits, w.count, leaf)
		}
	}
	return leaf, nil
}

// elementCount returns the number of elements of an array or vector type.
// Flexible arrays and arrays of zero-sized elements both yield 0.
func elementCount(t provider.TypeRef) uint64 {
	total, ok := t.SizeInBits()
	if !ok || t.Elem() == nil {
		return 0
	}
	elem := sizeOf(t.Elem())
	if elem == 0 {
		return 0
	}
	return total / elem
}

func (s *Session) encodeLeaf(f provider.Field, t provider.TypeRef, direct bool, owner, field string) (ir.TypeDescriptor, error) {
	if direct && f.IsBitfield() {
		return ir.Bitfield(f.BitWidth()), nil
	}

	bits := sizeOf(t)
	switch kind := t.Kind(); kind {
	case provider.KindStruct, provider.KindUnion:
		name, named := typeName(t)
		if !named {
			inner, err := s.encodeAggregate(t, "")
			if err != nil {
				return ir.TypeDescriptor{}, err
			}
			return ir.Inline(inner), nil
		}
		s.reference(t, name)
		if kind == provider.KindUnion {
			return ir.UnionRef(bits, name), nil
		}
		return ir.StructRef(bits, name), nil

	case provider.KindVoid:
		return ir.Void(), nil

	case provider.KindFunction:
		return ir.Function(), nil

	case provider.KindEnum:
		name, _ := typeName(t)
		return ir.Enum(bits, name, !t.IsUnsigned()), nil

	case provider.KindInteger, provider.KindBoolean, provider.KindReal, provider.KindComplex:
		name, ok := t.Identifier()
		if !ok {
			return ir.TypeDescriptor{}, invariant(ErrCodeMissingName, owner, field, "%s type has no name", kind)
		}
		return ir.Scalar(bits, name, !t.IsUnsigned()), nil

	default:
		return ir.TypeDescriptor{}, invariant(ErrCodeUnknownTypeShape, owner, field, "unexpected leaf kind %s", kind)
	}
}

// reference defers a named aggregate seen as a field type.
func (s *Session) reference(t provider.TypeRef, name string) {
	if s.visited.Contains(name) {
		return
	}
	s.pending.Enqueue(t)
	s.logger.Debug("queued reference", "type", name, "pending", s.pending.Len())
}
