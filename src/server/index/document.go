package index

import (
	"encoding/json"
	"fmt"
	"strings"

	"semanticdb-lsp/src/internal/errors"
	"semanticdb-lsp/src/internal/types"
	"semanticdb-lsp/src/semanticdb"
)

// Role says whether an occurrence declares its symbol or uses it
type Role int

const (
	RoleDefinition Role = iota + 1
	RoleReference
)

func (r Role) String() string {
	switch r {
	case RoleDefinition:
		return "definition"
	case RoleReference:
		return "reference"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) valid() bool {
	return r == RoleDefinition || r == RoleReference
}

// MarshalText encodes the role as "definition" or "reference"
func (r Role) MarshalText() ([]byte, error) {
	if !r.valid() {
		return nil, fmt.Errorf("unknown occurrence role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText accepts "definition" and "reference" in any case
func (r *Role) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "definition":
		*r = RoleDefinition
	case "reference":
		*r = RoleReference
	default:
		return fmt.Errorf("unknown occurrence role %q", text)
	}
	return nil
}

// Occurrence is one appearance of a symbol in an analyzed file
type Occurrence struct {
	Symbol semanticdb.Symbol
	Range  types.Range
	Role   Role
}

type occurrenceJSON struct {
	Symbol string       `json:"symbol"`
	Range  *types.Range `json:"range"`
	Role   Role         `json:"role"`
}

// MarshalJSON writes the symbol in SemanticDB syntax
func (o Occurrence) MarshalJSON() ([]byte, error) {
	if o.Symbol == nil {
		return nil, fmt.Errorf("occurrence without symbol")
	}
	r := o.Range
	return json.Marshal(occurrenceJSON{Symbol: o.Symbol.String(), Range: &r, Role: o.Role})
}

// UnmarshalJSON parses the symbol string; a missing range is an error
func (o *Occurrence) UnmarshalJSON(data []byte) error {
	var raw occurrenceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sym, err := semanticdb.Parse(raw.Symbol)
	if err != nil {
		return err
	}
	if raw.Range == nil {
		return errors.NewValidationError("range", fmt.Sprintf("occurrence of %s has no range", raw.Symbol))
	}
	*o = Occurrence{Symbol: sym, Range: *raw.Range, Role: raw.Role}
	return nil
}

// Diagnostic is a message from semantic analysis of one file
type Diagnostic = types.Diagnostic

// Document is the analysis output for one file: every occurrence and diagnostic
type Document struct {
	URI         string       `json:"uri"`
	Occurrences []Occurrence `json:"occurrences"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Validate reports the first malformed field of doc as a ValidationError
func (d *Document) Validate() error {
	if d == nil {
		return errors.NewValidationError("document", "nil document")
	}
	if d.URI == "" {
		return errors.NewValidationError("uri", "document uri is empty")
	}
	for i, occ := range d.Occurrences {
		if occ.Symbol == nil {
			return errors.NewValidationError("occurrences", fmt.Sprintf("occurrence %d has no symbol", i))
		}
		if !occ.Range.Valid() {
			return errors.NewValidationError("occurrences", fmt.Sprintf("occurrence %d of %s has invalid range %s", i, occ.Symbol, occ.Range))
		}
		if !occ.Role.valid() {
			return errors.NewValidationError("occurrences", fmt.Sprintf("occurrence %d of %s has unknown role %d", i, occ.Symbol, int(occ.Role)))
		}
	}
	for i, diag := range d.Diagnostics {
		if !diag.Range.Valid() {
			return errors.NewValidationError("diagnostics", fmt.Sprintf("diagnostic %d has invalid range %s", i, diag.Range))
		}
	}
	return nil
}

// DecodeDocument parses the JSON form of a semantic document
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapValidationError("document", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
