package common

import (
	"errors"
	"net/http"
)

// Kind classifies an error so flow boundaries can apply differentiated policy.
// Validation failures are rejected before any gateway call, gateway failures
// are never retried, persistence failures are local store problems.
type Kind string

const (
	KindValidation  Kind = "VALIDATION"
	KindGateway     Kind = "GATEWAY"
	KindPersistence Kind = "PERSISTENCE"
)

// AppError represents an error with an attached kind, code and HTTP status.
type AppError struct {
	Kind       Kind
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewValidation constructs a validation error rejected before any gateway call.
func NewValidation(code, message string, err error) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Message: message, HTTPStatus: http.StatusBadRequest, Err: err}
}

// NewGateway constructs an error representing a failed call to the payment processor.
func NewGateway(code, message string, err error) *AppError {
	return &AppError{Kind: KindGateway, Code: code, Message: message, HTTPStatus: http.StatusBadGateway, Err: err}
}

// NewPersistence constructs an error representing a local store failure.
func NewPersistence(code, message string, err error) *AppError {
	return &AppError{Kind: KindPersistence, Code: code, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// KindOf reports the kind of the error if it is (or wraps) an AppError.
func KindOf(err error) (Kind, bool) {
	var app *AppError
	if errors.As(err, &app) {
		return app.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatusOf maps an error to the HTTP status it should be rendered with.
func HTTPStatusOf(err error) int {
	var app *AppError
	if errors.As(err, &app) && app.HTTPStatus != 0 {
		return app.HTTPStatus
	}
	return http.StatusInternalServerError
}

// CodeOf extracts the error code, defaulting to INTERNAL.
func CodeOf(err error) string {
	var app *AppError
	if errors.As(err, &app) && app.Code != "" {
		return app.Code
	}
	return "INTERNAL"
}
