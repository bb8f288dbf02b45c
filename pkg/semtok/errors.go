package semtok

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrMalformedInput is returned when a payload violates the framing rules of
	// its format (bad base64, length not a multiple of the record size, overflow).
	ErrMalformedInput = errors.Base("malformed input")

	// ErrIndexOutOfRange is returned when a scope, type or modifier index has no
	// entry in the table it is resolved against.
	ErrIndexOutOfRange = errors.Base("index out of range")
)

// DecodeError is the error returned by every decoder in this package.
type DecodeError struct {
	// Kind is ErrMalformedInput or ErrIndexOutOfRange.
	Kind error

	// Field names the offending part of the payload, e.g. "token type".
	Field string

	// Index is the offending value: the index for ErrIndexOutOfRange, the
	// payload length for length violations.
	Index int

	// Limit is the table size for ErrIndexOutOfRange and the required
	// multiple for length violations.
	Limit int

	// Err is the underlying cause, if any.
	Err error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Err)
	case e.Kind == ErrIndexOutOfRange:
		return fmt.Sprintf("%s: %s %d not in [0,%d)", e.Kind, e.Field, e.Index, e.Limit)
	case e.Limit > 0:
		return fmt.Sprintf("%s: %s %d is not a multiple of %d", e.Kind, e.Field, e.Index, e.Limit)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Field)
	}
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func outOfRange(field string, index uint32, limit int) *DecodeError {
	return &DecodeError{Kind: ErrIndexOutOfRange, Field: field, Index: int(index), Limit: limit}
}

func badLength(field string, length, multiple int) *DecodeError {
	return &DecodeError{Kind: ErrMalformedInput, Field: field, Index: length, Limit: multiple}
}
