package ir

// AggregateKind distinguishes struct layouts from union layouts.
type AggregateKind string

const (
	AggregateStruct AggregateKind = "struct"
	AggregateUnion  AggregateKind = "union"
)

// TypeKind tags the variant held by a TypeDescriptor.
type TypeKind string

const (
	KindScalar       TypeKind = "scalar"
	KindEnum         TypeKind = "enum"
	KindPointer      TypeKind = "pointer"
	KindArray        TypeKind = "array"
	KindStructRef    TypeKind = "struct_ref"
	KindStructInline TypeKind = "struct_inline"
	KindUnionRef     TypeKind = "union_ref"
	KindUnionInline  TypeKind = "union_inline"
	KindBitfield     TypeKind = "bitfield"
	KindFunction     TypeKind = "function"
	KindVoid         TypeKind = "void"
)

// TypeDescriptor is the fully-typed description of a field's type.
//
// Only the members meaningful for Kind are set:
//
//	scalar, enum:       Bits, Name, Signed (enum Name is empty when anonymous)
//	pointer:            Bits, Inner
//	array:              Bits (total), Count, Inner
//	struct_ref/union_ref:       Bits, Name
//	struct_inline/union_inline: Bits, Layout
//	bitfield:           Width
//	function, void:     nothing
//
// Count is 0 both for flexible array members and for arrays whose element
// has size 0. The two cases are not distinguished.
type TypeDescriptor struct {
	Kind   TypeKind        `json:"kind" msgpack:"k"`
	Bits   uint64          `json:"bits,omitempty" msgpack:"b,omitempty"`
	Name   string          `json:"name,omitempty" msgpack:"n,omitempty"`
	Signed bool            `json:"signed,omitempty" msgpack:"s,omitempty"`
	Count  uint64          `json:"count,omitempty" msgpack:"c,omitempty"`
	Width  uint64          `json:"width,omitempty" msgpack:"w,omitempty"`
	Inner  *TypeDescriptor `json:"inner,omitempty" msgpack:"i,omitempty"`
	Layout *StructLayout   `json:"layout,omitempty" msgpack:"l,omitempty"`
}

// FieldDescriptor places one field inside its enclosing aggregate.
type FieldDescriptor struct {
	Name       string         `json:"name" msgpack:"n"`
	BitOffset  uint64         `json:"bit_offset" msgpack:"o"`
	Type       TypeDescriptor `json:"type" msgpack:"t"`
	IsBitfield bool           `json:"is_bitfield,omitempty" msgpack:"bf,omitempty"`
	BitWidth   uint64         `json:"bit_width,omitempty" msgpack:"bw,omitempty"`
}

// StructLayout is the layout of one struct or union.
// Name is empty for anonymous aggregates inlined into another layout.
type StructLayout struct {
	Name      string            `json:"name,omitempty" msgpack:"n,omitempty"`
	Kind      AggregateKind     `json:"kind" msgpack:"k"`
	TotalBits uint64            `json:"total_bits" msgpack:"tb"`
	Fields    []FieldDescriptor `json:"fields" msgpack:"f"`
}

// Scalar returns a scalar leaf descriptor.
func Scalar(bits uint64, name string, signed bool) TypeDescriptor {
	return TypeDescriptor{Kind: KindScalar, Bits: bits, Name: name, Signed: signed}
}

// Enum returns an enum leaf descriptor. An empty name marks an anonymous enum.
func Enum(bits uint64, name string, signed bool) TypeDescriptor {
	return TypeDescriptor{Kind: KindEnum, Bits: bits, Name: name, Signed: signed}
}

// Pointer wraps inner in a pointer layer.
func Pointer(bits uint64, inner TypeDescriptor) TypeDescriptor {
	return TypeDescriptor{Kind: KindPointer, Bits: bits, Inner: &inner}
}

// Array wraps inner in an array layer of count elements.
func Array(totalBits, count uint64, inner TypeDescriptor) TypeDescriptor {
	return TypeDescriptor{Kind: KindArray, Bits: totalBits, Count: count, Inner: &inner}
}

// StructRef references a named struct emitted elsewhere.
func StructRef(bits uint64, name string) TypeDescriptor {
	return TypeDescriptor{Kind: KindStructRef, Bits: bits, Name: name}
}

// UnionRef references a named union emitted elsewhere.
func UnionRef(bits uint64, name string) TypeDescriptor {
	return TypeDescriptor{Kind: KindUnionRef, Bits: bits, Name: name}
}

// Inline embeds an anonymous aggregate layout.
func Inline(layout *StructLayout) TypeDescriptor {
	kind := KindStructInline
	if layout.Kind == AggregateUnion {
		kind = KindUnionInline
	}
	return TypeDescriptor{Kind: kind, Bits: layout.TotalBits, Layout: layout}
}

// Bitfield returns a bitfield leaf of the given width.
func Bitfield(width uint64) TypeDescriptor {
	return TypeDescriptor{Kind: KindBitfield, Width: width}
}

// Function returns a function leaf (the target of a function pointer).
func Function() TypeDescriptor {
	return TypeDescriptor{Kind: KindFunction}
}

// Void returns a void leaf.
func Void() TypeDescriptor {
	return TypeDescriptor{Kind: KindVoid}
}

// SizeBits returns the number of bits the descriptor occupies.
// Bitfields occupy their width; void and function leaves occupy nothing.
func (d TypeDescriptor) SizeBits() uint64 {
	switch d.Kind {
	case KindBitfield:
		return d.Width
	case KindVoid, KindFunction:
		return 0
	default:
		return d.Bits
	}
}

// IsUnion reports whether the layout describes a union.
func (l *StructLayout) IsUnion() bool {
	return l.Kind == AggregateUnion
}

// Field returns the field with the given name.
func (l *StructLayout) Field(name string) (FieldDescriptor, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}
