// Package apperrors classifies service errors so handlers can map them to
// HTTP status codes without inspecting message strings.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	// KindStorage is the default for unclassified failures.
	KindStorage Kind = iota
	// KindValidation marks caller-fixable input errors.
	KindValidation
	// KindNotFound marks references to absent entities.
	KindNotFound
	// KindConflict marks duplicate-submission attempts.
	KindConflict
)

// Error carries the error kind, the failing operation and a caller-facing
// message. Err holds the underlying cause for logs.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validationf(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps an underlying persistence failure.
func Storage(op, msg string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Message: msg, Err: err}
}

// KindOf extracts the kind of err; unclassified errors are storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// HTTPStatus maps an error to its response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-safe message for err. Validation, not-found and
// conflict messages pass through verbatim; storage detail stays in the logs.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStorage {
		return e.Message
	}
	return "internal server error"
}
