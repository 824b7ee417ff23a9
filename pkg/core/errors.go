package core

import (
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: dump_unavailable, user_not_found, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches another ExecutionError by code, so copies produced by the
// With* helpers still compare equal to the predefined errors.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Element errors
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryElement,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrUserNotFound = &ExecutionError{
		Category: ErrCategoryElement,
		Code:     "user_not_found",
		Message:  "user not found",
	}
	ErrMalformedBounds = &ExecutionError{
		Category: ErrCategoryElement,
		Code:     "malformed_bounds",
		Message:  "malformed bounds attribute",
	}

	// Retry errors
	ErrRetryExhausted = &ExecutionError{
		Category: ErrCategoryRetry,
		Code:     "retry_exhausted",
		Message:  "retry budget exhausted",
	}

	// Device errors
	ErrDeviceNotFound = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "device_not_found",
		Message:  "no android device attached",
	}
	ErrDumpUnavailable = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "dump_unavailable",
		Message:  "ui dump unavailable",
	}
	ErrCommandFailed = &ExecutionError{
		Category: ErrCategoryDevice,
		Code:     "command_failed",
		Message:  "device command failed",
	}

	// App errors
	ErrAppNotInstalled = &ExecutionError{
		Category: ErrCategoryApp,
		Code:     "app_not_installed",
		Message:  "application is not installed",
	}
	ErrAppNotRunning = &ExecutionError{
		Category: ErrCategoryApp,
		Code:     "app_not_running",
		Message:  "application did not reach the foreground",
	}

	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
	ErrMissingRequired = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_required",
		Message:  "missing required field",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
