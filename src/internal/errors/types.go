package errors

import (
	"fmt"
)

// FramingError reports a violation of the header/Content-Length framing.
// It is terminal for the stream: message boundaries can no longer be trusted.
type FramingError struct {
	Reason string
	// Line is the offending header line, if any
	Line string
}

func (e *FramingError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("framing error: %s (line %q)", e.Reason, e.Line)
	}
	return fmt.Sprintf("framing error: %s", e.Reason)
}

// NewFramingError creates a new FramingError
func NewFramingError(reason, line string) *FramingError {
	return &FramingError{
		Reason: reason,
		Line:   line,
	}
}

// TruncationError reports a stream that ended before the current message was complete
type TruncationError struct {
	// State is "headers" or "body"
	State  string
	Needed int
	Got    int
}

func (e *TruncationError) Error() string {
	if e.State == "body" {
		return fmt.Sprintf("stream truncated in message body: got %d of %d bytes", e.Got, e.Needed)
	}
	return fmt.Sprintf("stream truncated in message headers after %d bytes", e.Got)
}

// NewTruncationError creates a new TruncationError
func NewTruncationError(state string, needed, got int) *TruncationError {
	return &TruncationError{
		State:  state,
		Needed: needed,
		Got:    got,
	}
}

// ArchiveReadError reports that a read-only archive member could not be copied out
type ArchiveReadError struct {
	URI   string
	Cause error
}

func (e *ArchiveReadError) Error() string {
	return fmt.Sprintf("cannot materialize archive member %s: %v", e.URI, e.Cause)
}

func (e *ArchiveReadError) Unwrap() error {
	return e.Cause
}

// NewArchiveReadError creates a new ArchiveReadError
func NewArchiveReadError(uri string, cause error) *ArchiveReadError {
	return &ArchiveReadError{
		URI:   uri,
		Cause: cause,
	}
}
