// FILE: src/internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Kind names a failure category. Low-level components either absorb
// expected per-record anomalies into statistics or raise an error carrying
// one of these kinds; the processor is the single place that converts
// record-level failures into stream continuation.
type Kind string

const (
	// Missing or unreadable input file. Fatal, raised at construction.
	KindResource Kind = "resource_unavailable"

	// Unknown file extension. Fatal, raised on the first read.
	KindUnsupportedFormat Kind = "unsupported_format"

	// Malformed input. Non-fatal at jsonl line granularity, fatal for a
	// mid-stream text/csv read-layer error.
	KindDecode Kind = "decode_error"

	// Normalization step failed. Carries the original cause.
	KindNormalization Kind = "normalization_failure"
)

// Error is a failure tagged with its category.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a tagged error wrapping an optional cause.
func NewError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
		Err:  err,
	}
}

// IsKind reports whether any error in err's chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
