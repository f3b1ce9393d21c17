package jsonutil

import (
	"encoding/json"

	"semanticdb-lsp/src/internal/errors"
)

// Convert re-encodes v as T through its JSON form
func Convert[T any](v any) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeParams decodes request params into T. Missing params and JSON that
// does not fit T are reported as validation errors.
func DecodeParams[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 || string(raw) == "null" {
		return out, errors.NewValidationError("params", "missing request parameters")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errors.WrapValidationError("params", err)
	}
	return out, nil
}
