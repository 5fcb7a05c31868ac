package provider

import "fmt"

// Kind classifies a type handle.
type Kind int

const (
	KindInvalid Kind = iota
	KindInteger
	KindBoolean
	KindEnum
	KindReal
	KindComplex
	KindStruct
	KindUnion
	KindVoid
	KindFunction
	KindPointer
	KindReference
	KindArray
	KindVector
)

var kindNames = map[Kind]string{
	KindInvalid:   "invalid",
	KindInteger:   "integer",
	KindBoolean:   "boolean",
	KindEnum:      "enum",
	KindReal:      "real",
	KindComplex:   "complex",
	KindStruct:    "struct",
	KindUnion:     "union",
	KindVoid:      "void",
	KindFunction:  "function",
	KindPointer:   "pointer",
	KindReference: "reference",
	KindArray:     "array",
	KindVector:    "vector",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsAggregate reports whether k is a struct or union.
func (k Kind) IsAggregate() bool {
	return k == KindStruct || k == KindUnion
}

// IsLeaf reports whether k has no type beneath it.
// Pointers, references, arrays and vectors wrap an element type.
func (k Kind) IsLeaf() bool {
	switch k {
	case KindInteger, KindBoolean, KindEnum, KindReal, KindComplex,
		KindStruct, KindUnion, KindVoid, KindFunction:
		return true
	default:
		return false
	}
}

// TypeRef is an opaque handle into the compiler's type graph.
type TypeRef interface {
	Kind() Kind

	// SizeInBits returns the type size. ok is false for void and
	// incomplete types, and for flexible arrays.
	SizeInBits() (bits uint64, ok bool)

	// IsComplete reports whether the type has a known layout.
	IsComplete() bool

	// Identifier returns the name the type is spelled with at this use,
	// which may be a typedef name. ok is false for anonymous types.
	Identifier() (name string, ok bool)

	// MainVariantName returns the name of the unqualified, untypedef'd
	// variant of the type, when it has one.
	MainVariantName() (name string, ok bool)

	// IsUnsigned reports integer/enum signedness.
	IsUnsigned() bool

	// Elem returns the pointee or element type for pointer, reference,
	// array and vector kinds, and nil otherwise.
	Elem() TypeRef

	// Fields returns struct/union members in declaration order.
	Fields() []Field
}

// Field is one member of a struct or union.
type Field interface {
	// Name returns the member name. ok is false for anonymous members and
	// unnamed padding.
	Name() (name string, ok bool)

	// ByteOffset returns the member offset in whole bytes. ok is false when
	// the offset is not a compile-time constant.
	ByteOffset() (bytes uint64, ok bool)

	// ExtraBitOffset returns the sub-byte delta that must be added to the
	// byte offset. ok is false when it is not a compile-time constant.
	ExtraBitOffset() (bits uint64, ok bool)

	IsBitfield() bool
	BitWidth() uint64
	Type() TypeRef
}

// Listener receives provider notifications.
// A non-nil error aborts the replay; the provider returns it unchanged.
type Listener interface {
	TypeFinished(t TypeRef) error
	CompilationFinished() error
}

// Provider replays one compilation unit into a Listener.
type Provider interface {
	// Unit names the compilation unit, e.g. the object file path.
	Unit() string
	Replay(l Listener) error
}
