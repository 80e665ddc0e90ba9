package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies errors crossing the core boundary so callers can tell them apart.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindSchema
	KindData
	KindNotFound
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindSchema:
		return "SchemaError"
	case KindData:
		return "DataError"
	case KindNotFound:
		return "NotFoundError"
	case KindAuth:
		return "AuthError"
	default:
		return "UnknownError"
	}
}

// Error is a kinded error carrying a human-readable message and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewSchemaError(err error, format string, args ...interface{}) error {
	return newError(KindSchema, err, format, args...)
}

func NewDataError(err error, format string, args ...interface{}) error {
	return newError(KindData, err, format, args...)
}

func NewNotFoundError(format string, args ...interface{}) error {
	return newError(KindNotFound, nil, format, args...)
}

func NewAuthError(format string, args ...interface{}) error {
	return newError(KindAuth, nil, format, args...)
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewValidationErrorf is a shorthand for a ValidationError without field errors.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// KindOf returns the Kind of the first kinded error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Kind
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return KindValidation
	}
	return KindUnknown
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// Message returns the human-readable part of a kinded error.
func Message(err error) string {
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Message
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
