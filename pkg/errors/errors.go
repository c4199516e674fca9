// Package errors provides structured error handling for the application
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	CodeBadRequest           ErrorCode = "BAD_REQUEST"
	CodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable   ErrorCode = "SERVICE_UNAVAILABLE"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Page operation failures
	CodeRecipeUnavailable ErrorCode = "RECIPE_UNAVAILABLE"
	CodeRemixUnavailable  ErrorCode = "REMIX_UNAVAILABLE"
	CodeNoCurrentRecipe   ErrorCode = "NO_CURRENT_RECIPE"
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
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
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
	case CodeNoCurrentRecipe:
		return http.StatusConflict
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeExternalServiceError, CodeRecipeUnavailable, CodeRemixUnavailable:
		return http.StatusBadGateway
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

// NewExternalServiceError creates an external service error.
// status is the upstream HTTP status, or zero when no response was received.
func NewExternalServiceError(service string, status int, cause error) *AppError {
	details := fmt.Sprintf("failed to communicate with %s", service)
	if status != 0 {
		details = fmt.Sprintf("%s returned status %d", service, status)
	}
	err := NewAppError(CodeExternalServiceError, "External service error", details).
		WithMetadata("service", service).
		WithCause(cause)
	if status != 0 {
		err.WithMetadata("status", status)
	}
	return err
}

// NewRecipeUnavailableError reports a failed random recipe fetch
func NewRecipeUnavailableError(cause error) *AppError {
	return NewAppError(CodeRecipeUnavailable, "Recipe could not be loaded", "").WithCause(cause)
}

// NewRemixUnavailableError reports a failed remix
func NewRemixUnavailableError(theme string, cause error) *AppError {
	return NewAppError(CodeRemixUnavailable, "Recipe could not be remixed", "").
		WithMetadata("theme", theme).
		WithCause(cause)
}

// NewNoCurrentRecipeError reports a remix attempted before any recipe was loaded
func NewNoCurrentRecipeError(cause error) *AppError {
	return NewAppError(CodeNoCurrentRecipe, "No recipe loaded", "load a recipe before remixing").WithCause(cause)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

// NewValidationErrors creates a validation AppError from field errors
func NewValidationErrors(errs []ValidationError) *AppError {
	validationErrs := ValidationErrors(errs)

	return NewAppError(
		CodeValidationFailed,
		"Validation failed",
		validationErrs.Error(),
	).WithMetadata("validation_errors", validationErrs)
}

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(CodeInternal, message, "").WithCause(err)
}

// Is reports whether any error in err's chain is an AppError with the given code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode returns the code of the first AppError in err's chain, or CodeInternal
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
