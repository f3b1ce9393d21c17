package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// LSPError represents a standard LSP error with code and optional data
type LSPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *LSPError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("LSP error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("LSP error %d: %s", e.Code, e.Message)
}

// ValidationError represents parameter validation errors
type ValidationError struct {
	Parameter string `json:"parameter"`
	Message   string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for parameter '%s': %s", e.Parameter, e.Message)
}

// Error constructors

// NewLSPError creates a new LSP error with specified code, message, and optional data
func NewLSPError(code int, message string, data interface{}) *LSPError {
	return &LSPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewValidationError creates a new validation error for the specified parameter
func NewValidationError(parameter, message string) *ValidationError {
	return &ValidationError{
		Parameter: parameter,
		Message:   message,
	}
}

// Error classification functions

// IsFramingError checks if the error chain contains a FramingError
func IsFramingError(err error) bool {
	var target *FramingError
	return stderrors.As(err, &target)
}

// IsTruncationError checks if the error chain contains a TruncationError
func IsTruncationError(err error) bool {
	var target *TruncationError
	return stderrors.As(err, &target)
}

// IsTransportError reports whether err ends the session (framing or truncation)
func IsTransportError(err error) bool {
	return IsFramingError(err) || IsTruncationError(err)
}

// IsArchiveReadError checks if the error chain contains an ArchiveReadError
func IsArchiveReadError(err error) bool {
	var target *ArchiveReadError
	return stderrors.As(err, &target)
}

// IsValidationError checks if the error chain contains a ValidationError
func IsValidationError(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

// IsCancellationError checks if the error is a cancellation error
func IsCancellationError(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// Error wrapping utilities

// WrapWithContext wraps an error with operation context
func WrapWithContext(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// WrapValidationError wraps an error as a validation error
func WrapValidationError(parameter string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{
		Parameter: parameter,
		Message:   err.Error(),
	}
}

// CodeFor maps an error onto a JSON-RPC error code
func CodeFor(err error) int {
	var lspErr *LSPError
	switch {
	case err == nil:
		return 0
	case stderrors.As(err, &lspErr):
		return lspErr.Code
	case IsFramingError(err):
		return FramingFailure
	case IsTruncationError(err):
		return TruncatedMessage
	case IsArchiveReadError(err):
		return ArchiveReadFailed
	case IsValidationError(err):
		return InvalidParams
	case IsCancellationError(err):
		return RequestCancelled
	default:
		return InternalError
	}
}
