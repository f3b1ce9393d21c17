package types

import (
	"fmt"
)

// Position represents a text position with line and character information.
// Line and character are zero-based following LSP convention.
type Position struct {
	Line      int32 `json:"line"`
	Character int32 `json:"character"`
}

// Compare orders positions lexicographically by (line, character)
func (p Position) Compare(other Position) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Character < other.Character:
		return -1
	case p.Character > other.Character:
		return 1
	}
	return 0
}

// Range represents a text range with start and end positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NewRange builds a range from its four coordinates
func NewRange(startLine, startCharacter, endLine, endCharacter int32) Range {
	return Range{
		Start: Position{Line: startLine, Character: startCharacter},
		End:   Position{Line: endLine, Character: endCharacter},
	}
}

// Valid reports whether the range is non-negative and start <= end
func (r Range) Valid() bool {
	if r.Start.Line < 0 || r.Start.Character < 0 || r.End.Line < 0 || r.End.Character < 0 {
		return false
	}
	return r.Start.Compare(r.End) <= 0
}

// Contains reports whether (line, character) lies inside the range.
// Both endpoints are inclusive.
func (r Range) Contains(line, character int32) bool {
	p := Position{Line: line, Character: character}
	return r.Start.Compare(p) <= 0 && p.Compare(r.End) <= 0
}

// Compare orders ranges by start, then by end
func (r Range) Compare(other Range) int {
	if c := r.Start.Compare(other.Start); c != 0 {
		return c
	}
	return r.End.Compare(other.End)
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line, r.Start.Character, r.End.Line, r.End.Character)
}

// Location represents a location in a source file.
type Location struct {
	// URI is the file URI
	URI string `json:"uri"`

	// Range is the text range in the file
	Range Range `json:"range"`
}

// Compare orders locations by uri, then by range
func (l Location) Compare(other Location) int {
	switch {
	case l.URI < other.URI:
		return -1
	case l.URI > other.URI:
		return 1
	}
	return l.Range.Compare(other.Range)
}

// DiagnosticSeverity mirrors the LSP severity levels
type DiagnosticSeverity int32

const (
	DiagnosticSeverityUnspecified DiagnosticSeverity = iota
	DiagnosticSeverityError
	DiagnosticSeverityWarning
	DiagnosticSeverityInformation
	DiagnosticSeverityHint
)

// Diagnostic represents a diagnostic message (error, warning, etc.) produced by
// semantic analysis of one file.
type Diagnostic struct {
	// Severity indicates the severity level of this diagnostic
	Severity DiagnosticSeverity `json:"severity"`

	// Message is the diagnostic message text
	Message string `json:"message"`

	// Range is where the diagnostic applies
	Range Range `json:"range"`
}
