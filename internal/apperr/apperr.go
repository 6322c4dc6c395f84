// Package apperr defines the failure kinds shared by the services so callers
// can branch on a category instead of matching error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a failure category.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindValidation    Kind = "validation_error"
	KindUnavailable   Kind = "inference_unavailable"
	KindModelNotFound Kind = "model_not_found"
	KindEmptyResponse Kind = "empty_response"
	KindSlackAPI      Kind = "slack_api_error"
	KindSearch        Kind = "search_failure"
	KindConfig        Kind = "config_error"
)

// Error is a categorized application error.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail attaches extra context shown to the caller.
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to the status code returned to inbound callers.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnavailable, KindModelNotFound:
		return http.StatusServiceUnavailable
	case KindEmptyResponse, KindSlackAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
