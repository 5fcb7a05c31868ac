package layout

import (
	"errors"
	"fmt"
)

// ErrSessionFinished is returned by callbacks delivered after
// CompilationFinished.
var ErrSessionFinished = errors.New("layout: session already finished")

// InvariantErrorCode categorizes type graph shapes the encoder cannot
// describe faithfully.
type InvariantErrorCode string

const (
	// ErrCodeUnknownTypeShape indicates a type kind the encoder does not know.
	ErrCodeUnknownTypeShape InvariantErrorCode = "UNKNOWN_TYPE_SHAPE"

	// ErrCodeNonConstantOffset indicates a field offset that is not a
	// compile-time constant.
	ErrCodeNonConstantOffset InvariantErrorCode = "NON_CONSTANT_OFFSET"

	// ErrCodeIncompleteType indicates an attempt to lay out a type with no
	// field list.
	ErrCodeIncompleteType InvariantErrorCode = "INCOMPLETE_TYPE"

	// ErrCodeNotAggregate indicates a struct layout requested for a type that
	// is neither a struct nor a union.
	ErrCodeNotAggregate InvariantErrorCode = "NOT_AGGREGATE"

	// ErrCodeUnnamedTopLevel indicates a top-level emission of an anonymous
	// aggregate.
	ErrCodeUnnamedTopLevel InvariantErrorCode = "UNNAMED_TOP_LEVEL"

	// ErrCodeUnexpectedUnnamedField indicates an unnamed field that is neither
	// padding nor an anonymous struct/union member.
	ErrCodeUnexpectedUnnamedField InvariantErrorCode = "UNEXPECTED_UNNAMED_FIELD"

	// ErrCodeMissingName indicates a scalar leaf whose type has no name.
	ErrCodeMissingName InvariantErrorCode = "MISSING_NAME"
)

// InvariantError reports a type graph the encoder refuses to describe.
// Output is trusted by its consumers, so these are never downgraded to
// warnings: the Session stops and writes nothing more.
type InvariantError struct {
	// Code identifies the error category.
	Code InvariantErrorCode

	// Type is the aggregate being encoded, if known.
	Type string

	// Field is the field being encoded, if any.
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	switch {
	case e.Type != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (type=%s, field=%s)", e.Code, e.Message, e.Type, e.Field)
	case e.Type != "":
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.Type)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsInvariantError reports whether err is an InvariantError, optionally
// with one of the given codes. Uses errors.As to handle wrapped errors.
func IsInvariantError(err error, codes ...InvariantErrorCode) bool {
	var ie *InvariantError
	if !errors.As(err, &ie) {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if ie.Code == c {
			return true
		}
	}
	return false
}

func invariant(code InvariantErrorCode, typ, field, format string, args ...any) *InvariantError {
	return &InvariantError{
		Code:    code,
		Type:    typ,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
