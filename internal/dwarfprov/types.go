package dwarfprov

import (
	"debug/dwarf"
	"encoding/binary"

	"fortio.org/safecast"

	"github.com/roach88/structlayout/internal/provider"
)

// typeRef adapts a dwarf.Type to provider.TypeRef.
type typeRef struct {
	t       dwarf.Type
	ptrBits uint64
	order   binary.ByteOrder
	refs    *references
}

var _ provider.TypeRef = (*typeRef)(nil)

// strip removes typedefs and qualifiers.
func strip(t dwarf.Type) dwarf.Type {
	for {
		switch x := t.(type) {
		case *dwarf.TypedefType:
			t = x.Type
		case *dwarf.QualType:
			t = x.Type
		default:
			return t
		}
	}
}

func (r *typeRef) base() dwarf.Type { return strip(r.t) }

func (r *typeRef) child(t dwarf.Type) *typeRef {
	if t == nil {
		t = &dwarf.VoidType{}
	}
	return &typeRef{t: t, ptrBits: r.ptrBits, order: r.order, refs: r.refs}
}

// isReference reports whether t is a C++ lvalue or rvalue reference, which
// debug/dwarf only knows as an UnsupportedType.
func isReference(t dwarf.Type) bool {
	u, ok := t.(*dwarf.UnsupportedType)
	return ok && (u.Tag == dwarf.TagReferenceType || u.Tag == dwarf.TagRvalueReferenceType)
}

func (r *typeRef) Kind() provider.Kind {
	switch t := r.base().(type) {
	case *dwarf.StructType:
		if t.Kind == "union" {
			return provider.KindUnion
		}
		return provider.KindStruct
	case *dwarf.PtrType:
		return provider.KindPointer
	case *dwarf.ArrayType:
		return provider.KindArray
	case *dwarf.EnumType:
		return provider.KindEnum
	case *dwarf.IntType, *dwarf.UintType, *dwarf.CharType, *dwarf.UcharType, *dwarf.AddrType:
		return provider.KindInteger
	case *dwarf.BoolType:
		return provider.KindBoolean
	case *dwarf.FloatType:
		return provider.KindReal
	case *dwarf.ComplexType:
		return provider.KindComplex
	case *dwarf.FuncType:
		return provider.KindFunction
	case nil, *dwarf.VoidType, *dwarf.UnspecifiedType:
		return provider.KindVoid
	default:
		if isReference(t) {
			return provider.KindReference
		}
		return provider.KindInvalid
	}
}

func bytesToBits(n int64) (uint64, bool) {
	if n <= 0 {
		return 0, false
	}
	b, err := safecast.Conv[uint64](n)
	if err != nil {
		return 0, false
	}
	return b * 8, true
}

func (r *typeRef) SizeInBits() (uint64, bool) {
	switch t := r.base().(type) {
	case nil, *dwarf.VoidType, *dwarf.UnspecifiedType, *dwarf.FuncType:
		return 0, false
	case *dwarf.StructType:
		if t.Incomplete {
			return 0, false
		}
		if t.ByteSize == 0 {
			return 0, true
		}
		return bytesToBits(t.ByteSize)
	case *dwarf.PtrType:
		if bits, ok := bytesToBits(t.ByteSize); ok {
			return bits, true
		}
		return r.ptrBits, true
	case *dwarf.ArrayType:
		if t.Count < 0 {
			return 0, false
		}
		count, err := safecast.Conv[uint64](t.Count)
		if err != nil {
			return 0, false
		}
		elem, ok := r.child(t.Type).SizeInBits()
		if !ok {
			return 0, false
		}
		return count * elem, true
	default:
		if isReference(t) {
			if bits, ok := bytesToBits(t.Size()); ok {
				return bits, true
			}
			return r.ptrBits, true
		}
		return bytesToBits(t.Size())
	}
}

func (r *typeRef) IsComplete() bool {
	switch t := r.base().(type) {
	case nil, *dwarf.VoidType, *dwarf.UnspecifiedType, *dwarf.FuncType:
		return false
	case *dwarf.StructType:
		return !t.Incomplete
	case *dwarf.ArrayType:
		_, ok := r.SizeInBits()
		return ok
	default:
		return true
	}
}

// Identifier walks through qualifiers, stopping at the first typedef.
func (r *typeRef) Identifier() (string, bool) {
	t := r.t
	for {
		q, ok := t.(*dwarf.QualType)
		if !ok {
			break
		}
		t = q.Type
	}
	if td, ok := t.(*dwarf.TypedefType); ok {
		return td.Name, td.Name != ""
	}
	return ownName(t)
}

func (r *typeRef) MainVariantName() (string, bool) {
	return ownName(r.base())
}

func ownName(t dwarf.Type) (string, bool) {
	switch x := t.(type) {
	case nil:
		return "void", true
	case *dwarf.StructType:
		return x.StructName, x.StructName != ""
	case *dwarf.EnumType:
		return x.EnumName, x.EnumName != ""
	case *dwarf.PtrType, *dwarf.ArrayType, *dwarf.FuncType:
		return "", false
	case *dwarf.VoidType:
		return "void", true
	default:
		if isReference(t) {
			return "", false
		}
		name := t.Common().Name
		return name, name != ""
	}
}

func (r *typeRef) IsUnsigned() bool {
	switch t := r.base().(type) {
	case *dwarf.UintType, *dwarf.UcharType, *dwarf.BoolType, *dwarf.AddrType, *dwarf.PtrType:
		return true
	case *dwarf.EnumType:
		// Enums without negative values get an unsigned underlying type.
		for _, v := range t.Val {
			if v.Val < 0 {
				return false
			}
		}
		return true
	default:
		return isReference(t)
	}
}

func (r *typeRef) Elem() provider.TypeRef {
	switch t := r.base().(type) {
	case *dwarf.PtrType:
		return r.child(t.Type)
	case *dwarf.ArrayType:
		return r.child(t.Type)
	default:
		if isReference(t) {
			return r.child(r.refs.target(t.(*dwarf.UnsupportedType)))
		}
		return nil
	}
}

func (r *typeRef) Fields() []provider.Field {
	st, ok := r.base().(*dwarf.StructType)
	if !ok || st.Incomplete {
		return nil
	}
	out := make([]provider.Field, len(st.Field))
	for i, f := range st.Field {
		out[i] = r.field(f)
	}
	return out
}

func (r *typeRef) String() string {
	if r.t == nil {
		return "void"
	}
	return r.t.String()
}
