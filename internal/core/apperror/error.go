// Package apperror provides structured error handling for the dictionary gateway.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by concern
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeStorage  = "STORAGE_ERROR"

	// Upstream transport errors
	CodeUpstream = "UPSTREAM_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"
	CodeNetwork  = "NETWORK_ERROR"

	// Validation errors (400)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Capability boundaries (422)
	CodeNotSupported = "NOT_SUPPORTED"
	CodeReadOnly     = "READ_ONLY_DICTIONARY"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the gateway.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, upstream bodies, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewUpstream creates a transport error carrying the upstream HTTP status,
// status text and best-effort parsed response body.
func NewUpstream(status int, statusText string, body map[string]any) *AppError {
	return &AppError{
		Code:       CodeUpstream,
		Message:    fmt.Sprintf("upstream error %d: %s", status, statusText),
		HTTPStatus: http.StatusBadGateway,
		Details: map[string]any{
			"status":      status,
			"status_text": statusText,
			"body":        body,
		},
	}
}

// NewTimeout creates a client-side timeout error (408-equivalent).
func NewTimeout(endpoint string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    "request timeout",
		HTTPStatus: http.StatusGatewayTimeout,
		Details:    map[string]any{"status": http.StatusRequestTimeout, "endpoint": endpoint},
	}
}

// NewNetwork creates a network failure error (upstream status 0).
func NewNetwork(endpoint string, err error) *AppError {
	return &AppError{
		Code:       CodeNetwork,
		Message:    "network error",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"status": 0, "endpoint": endpoint},
		Err:        err,
	}
}

// NewNotSupported creates an error for operations the backend does not implement.
func NewNotSupported(dictionaryType, operation string) *AppError {
	return &AppError{
		Code:       CodeNotSupported,
		Message:    fmt.Sprintf("%s is not supported for %s", operation, dictionaryType),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"dictionary_type": dictionaryType, "operation": operation},
	}
}

// NewReadOnly creates an error for mutations of read-only dictionaries.
func NewReadOnly(dictionaryType string) *AppError {
	return &AppError{
		Code:       CodeReadOnly,
		Message:    fmt.Sprintf("%s dictionary is read-only", dictionaryType),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"dictionary_type": dictionaryType},
	}
}

// NewStorage creates a fallback store error.
func NewStorage(err error) *AppError {
	return &AppError{
		Code:       CodeStorage,
		Message:    "storage error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsTimeout checks if error is CodeTimeout
func IsTimeout(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeTimeout
	}
	return false
}

// IsNotSupported checks if error is CodeNotSupported
func IsNotSupported(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotSupported
	}
	return false
}

// IsReadOnly checks if error is CodeReadOnly
func IsReadOnly(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeReadOnly
	}
	return false
}
