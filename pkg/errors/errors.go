// Package errors defines the API error type. Every failure that reaches a
// handler is an *Error carrying its HTTP status and a stable code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the serialised error body. Err holds the underlying cause for logs
// and is never sent to clients.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Field   string            `json:"field,omitempty"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Err != nil:
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Code, e.Err)
	default:
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is compares by code, so errors.Is(Clone(ErrNotFound, "x"), ErrNotFound) holds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates an Error without a cause.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap creates an Error that keeps err as its cause.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Internal reports an unexpected failure as INTERNAL_ERROR.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}

// Validation reports a single invalid field.
func Validation(field, message string) *Error {
	return &Error{
		Code:    ErrValidation.Code,
		Status:  ErrValidation.Status,
		Message: message,
		Field:   field,
	}
}

// WithDetails attaches per-field messages. The receiver is copied.
func (e *Error) WithDetails(details map[string]string) *Error {
	if e == nil || len(details) == 0 {
		return e
	}
	out := *e
	out.Details = make(map[string]string, len(details))
	for k, v := range details {
		out.Details[k] = v
	}
	return &out
}

var (
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid user id or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")

	ErrValidation    = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotFound      = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict      = New("CONFLICT", http.StatusConflict, "conflict")
	ErrLimitExceeded = New("LIMIT_EXCEEDED", http.StatusConflict, "limit exceeded")

	ErrUpstream = New("UPSTREAM_ERROR", http.StatusBadGateway, "upstream service failed")
	ErrInternal = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrCacheMiss never reaches clients; cache callers branch on it.
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError returns err as an *Error, wrapping unknown errors as internal.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err, ErrInternal.Message)
}

// StatusOf is the HTTP status err maps to; nil maps to 200.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return FromError(err).Status
}

// Clone copies err, replacing the message when one is given.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	out := *err
	if message != "" {
		out.Message = message
	}
	return &out
}
