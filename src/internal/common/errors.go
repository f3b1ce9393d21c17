package common

import (
	"semanticdb-lsp/src/internal/errors"
)

// WrapProcessingError wraps an error with operation context for better error messages
func WrapProcessingError(operation string, err error) error {
	return errors.WrapWithContext(operation, err)
}

// CreateValidationErrorForURI creates a validation error for URI-related issues
func CreateValidationErrorForURI(msg string) error {
	return errors.NewValidationError("uri", msg)
}

// CreateValidationErrorForPosition creates a validation error for position-related issues
func CreateValidationErrorForPosition(msg string) error {
	return errors.NewValidationError("position", msg)
}

// GetErrorCategory returns a category string for error classification
func GetErrorCategory(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.IsFramingError(err):
		return "framing"
	case errors.IsTruncationError(err):
		return "truncation"
	case errors.IsArchiveReadError(err):
		return "archive"
	case errors.IsValidationError(err):
		return "validation"
	case errors.IsCancellationError(err):
		return "cancellation"
	default:
		return "general"
	}
}
