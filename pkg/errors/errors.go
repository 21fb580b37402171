package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodePrecondition      = "PRECONDITION_FAILED"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeUnsupportedMethod = "UNSUPPORTED_PAYMENT_METHOD"
	CodeGateway           = "GATEWAY_ERROR"
	CodePersistence       = "PERSISTENCE_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
)

// AppError represents an application error
type AppError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON response structure for errors
type ErrorResponse struct {
	Error   ErrorBody `json:"error"`
	TraceID string    `json:"trace_id,omitempty"`
}

// ErrorBody contains error details
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ToJSON converts an error to the standard JSON response
func ToJSON(err error, traceID string) (int, []byte) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = &AppError{
			Code:    CodeInternal,
			Message: "An internal error occurred",
		}
	}

	response := ErrorResponse{
		Error: ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
		TraceID: traceID,
	}

	data, _ := json.Marshal(response)
	return HTTPStatus(appErr), data
}

// HTTPStatus returns the HTTP status code for an error
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case CodeValidation, CodeUnsupportedMethod:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInsufficientStock:
		return http.StatusConflict
	case CodePrecondition:
		return http.StatusPreconditionFailed
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may safely retry the failed request.
// Gateway failures leave no partial state behind, persistence failures abort
// the whole request.
func Retryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == CodeGateway
}

// Constructor functions

// NewValidation creates a validation error
func NewValidation(message string, details interface{}) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Details: details,
	}
}

// NewNotFound creates a not found error
func NewNotFound(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with id '%v' not found", resource, id),
	}
}

// NewConflict creates a conflict error
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

// NewPrecondition creates a precondition failed error
func NewPrecondition(message string) *AppError {
	return &AppError{
		Code:    CodePrecondition,
		Message: message,
	}
}

// NewInsufficientStock creates an insufficient stock error carrying the
// offending product identifiers
func NewInsufficientStock(message string, details interface{}) *AppError {
	return &AppError{
		Code:    CodeInsufficientStock,
		Message: message,
		Details: details,
	}
}

// NewUnsupportedMethod creates an error for an unknown payment method
func NewUnsupportedMethod(method string) *AppError {
	return &AppError{
		Code:    CodeUnsupportedMethod,
		Message: fmt.Sprintf("payment method '%s' is not supported", method),
	}
}

// NewGateway creates a retryable external processor error
func NewGateway(message string, err error) *AppError {
	return &AppError{
		Code:    CodeGateway,
		Message: message,
		Err:     err,
	}
}

// NewPersistence creates a storage layer error
func NewPersistence(message string, err error) *AppError {
	return &AppError{
		Code:    CodePersistence,
		Message: message,
		Err:     err,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewUnauthorized creates an unauthorized error
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewForbidden creates a forbidden error
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

// Is checks if an error matches a specific code
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message + ": " + appErr.Message,
			Details: appErr.Details,
			Err:     err,
		}
	}
	return NewInternal(message, err)
}
