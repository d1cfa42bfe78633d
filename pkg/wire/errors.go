package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated means the input ended before a fixed-width field or the
	// number of bytes declared by a length prefix.
	ErrTruncated = errors.New("wire: truncated input")

	// ErrLengthOverflow means a length prefix declared more data than the
	// configured maximum.
	ErrLengthOverflow = errors.New("wire: declared length exceeds limit")

	// ErrInvalidEncoding means a value is malformed for its type.
	ErrInvalidEncoding = errors.New("wire: invalid encoding")

	// ErrInvalidNameList is the ErrInvalidEncoding reported for name-lists.
	ErrInvalidNameList = fmt.Errorf("%w: name-list", ErrInvalidEncoding)

	// ErrTrailingData means a message decoded completely but bytes remain.
	ErrTrailingData = errors.New("wire: trailing data")
)

// DecodeError locates a decoding failure inside a payload.
type DecodeError struct {
	Field  string // field being decoded
	Offset int    // byte offset of the field within the payload
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
