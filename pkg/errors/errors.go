// Package errors provides structured error handling for the aggregation engine
// Following enterprise patterns for error management and observability
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents an error code
type ErrorCode string

// Error codes for the food-data aggregation engine
const (
	// Client errors (4xx)
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Server errors (5xx)
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Provider pipeline errors
	CodeProviderNotConfigured ErrorCode = "PROVIDER_NOT_CONFIGURED"
	CodeRateLimitExceeded     ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeProviderHTTP          ErrorCode = "PROVIDER_HTTP_ERROR"
	CodeParse                 ErrorCode = "PARSE_ERROR"
	CodeFusionExhausted       ErrorCode = "FUSION_EXHAUSTED"
)

// AppError represents an application error with structured information
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeProviderNotConfigured, CodeServiceUnavailable, CodeFusionExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// Provider pipeline errors

// NewProviderNotConfiguredError indicates a provider is missing credentials
// and cannot be used. Fatal for that provider only.
func NewProviderNotConfiguredError(provider string) *AppError {
	return NewAppError(
		CodeProviderNotConfigured,
		"Provider not configured",
		fmt.Sprintf("Missing credentials for %s", provider),
	).WithMetadata("provider", provider)
}

// NewRateLimitExceededError indicates the local monthly budget for a
// provider is exhausted. No network call was made.
func NewRateLimitExceededError(provider string, limit int) *AppError {
	return NewAppError(
		CodeRateLimitExceeded,
		"Rate limit exceeded",
		fmt.Sprintf("Monthly budget of %d requests for %s is exhausted", limit, provider),
	).WithMetadata("provider", provider).WithMetadata("limit", limit)
}

// NewProviderHTTPError indicates the upstream rejected the call.
func NewProviderHTTPError(provider string, statusCode int, body string) *AppError {
	return NewAppError(
		CodeProviderHTTP,
		"Provider request failed",
		fmt.Sprintf("%s returned status %d", provider, statusCode),
	).WithMetadata("provider", provider).
		WithMetadata("status_code", statusCode).
		WithMetadata("body", body)
}

// NewParseError indicates the upstream response shape was unexpected.
// Callers treat this as "no data", never as a crash.
func NewParseError(provider string, cause error) *AppError {
	return NewAppError(
		CodeParse,
		"Provider response malformed",
		fmt.Sprintf("Could not parse %s response", provider),
	).WithMetadata("provider", provider).WithCause(cause)
}

// NewFusionExhaustedError indicates every provider failed or was
// unconfigured. The fusion layer absorbs this into a fallback record.
func NewFusionExhaustedError(item string) *AppError {
	return NewAppError(
		CodeFusionExhausted,
		"All providers failed",
		fmt.Sprintf("No provider returned data for %q", item),
	).WithMetadata("item", item)
}

// Utility functions

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus extracts the upstream HTTP status from a provider error,
// or zero when the error carries none.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !stderrors.As(err, &appErr) || appErr.Metadata == nil {
		return 0
	}
	if status, ok := appErr.Metadata["status_code"].(int); ok {
		return status
	}
	return 0
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails represents the error details in API responses
type ErrorDetails struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// ToErrorResponse converts an AppError to an API error response
func ToErrorResponse(err *AppError) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		},
	}
}
