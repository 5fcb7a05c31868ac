package access

import "errors"

var (
	// ErrNullDeref is returned when a read or write goes through address 0.
	ErrNullDeref = errors.New("NULL dereference")

	// ErrInvalidDeref is returned when following a pointer to void or to a
	// function.
	ErrInvalidDeref = errors.New("cannot dereference")

	// ErrOverflow is returned when a value does not fit its field.
	ErrOverflow = errors.New("value does not fit")

	// ErrIndex is returned for an index outside a sized array.
	ErrIndex = errors.New("index out of range")

	// ErrNoField is returned when an aggregate has no field of that name.
	ErrNoField = errors.New("no such field")

	// ErrUnknownType is returned when a named reference cannot be resolved.
	ErrUnknownType = errors.New("unknown struct or union")

	// ErrKind is returned when an operation does not apply to a value's kind,
	// such as assigning to a struct.
	ErrKind = errors.New("wrong kind")

	// ErrUnsupported is returned for widths and bitfield placements the
	// accessor cannot load in one aligned access.
	ErrUnsupported = errors.New("unsupported access")

	// ErrUnmapped is returned for addresses outside an Image.
	ErrUnmapped = errors.New("address not mapped")
)
