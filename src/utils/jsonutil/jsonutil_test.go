package jsonutil

import (
	"encoding/json"
	"testing"

	"semanticdb-lsp/src/internal/errors"
)

func TestConvert_StructToMap(t *testing.T) {
	type S struct {
		A int
		B string
	}
	in := S{A: 42, B: "x"}
	out, err := Convert[map[string]interface{}](in)
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if out["A"].(float64) != 42 || out["B"].(string) != "x" {
		t.Fatalf("unexpected convert result: %#v", out)
	}
}

func TestConvert_TypeMismatchReturnsError(t *testing.T) {
	_, err := Convert[int]("123")
	if err == nil {
		t.Fatalf("expected error converting string to int")
	}
}

func TestDecodeParams(t *testing.T) {
	type params struct {
		Line int `json:"line"`
	}

	got, err := DecodeParams[params](json.RawMessage(`{"line":4}`))
	if err != nil || got.Line != 4 {
		t.Fatalf("DecodeParams = %+v, %v", got, err)
	}

	for _, raw := range []json.RawMessage{nil, json.RawMessage(`null`), json.RawMessage(`{"line":"x"}`)} {
		if _, err := DecodeParams[params](raw); !errors.IsValidationError(err) {
			t.Fatalf("DecodeParams(%s) error = %v, want validation error", raw, err)
		}
	}
}
