package climate

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can tell a sparse sample apart from a
// malformed request or a missing upstream series.
type Kind string

const (
	KindInsufficientData  Kind = "InsufficientData"
	KindInvalidParameters Kind = "InvalidParameters"
	KindDataUnavailable   Kind = "DataUnavailable"
)

var (
	// ErrInsufficientData matches any *Error of kind InsufficientData via errors.Is.
	ErrInsufficientData = &Error{Kind: KindInsufficientData}
	// ErrInvalidParameters matches any *Error of kind InvalidParameters via errors.Is.
	ErrInvalidParameters = &Error{Kind: KindInvalidParameters}
	// ErrDataUnavailable matches any *Error of kind DataUnavailable via errors.Is.
	ErrDataUnavailable = &Error{Kind: KindDataUnavailable}
)

// Error carries a failure kind and a human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality, so errors.Is(err, ErrInsufficientData) works for
// any detail.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Insufficient builds an InsufficientData error.
func Insufficient(format string, args ...any) error {
	return &Error{Kind: KindInsufficientData, Detail: fmt.Sprintf(format, args...)}
}

// Invalid builds an InvalidParameters error.
func Invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalidParameters, Detail: fmt.Sprintf(format, args...)}
}

// Unavailable wraps an upstream failure as DataUnavailable.
func Unavailable(err error, format string, args ...any) error {
	return &Error{Kind: KindDataUnavailable, Detail: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or "" if err is not a climate error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
