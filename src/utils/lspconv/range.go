package lspconv

import (
	"go.lsp.dev/protocol"

	"semanticdb-lsp/src/internal/types"
)

// ToProtocolPosition converts a position; negative coordinates clamp to 0
func ToProtocolPosition(p types.Position) protocol.Position {
	return protocol.Position{
		Line:      clamp(p.Line),
		Character: clamp(p.Character),
	}
}

// ToProtocolRange converts a range to its LSP shape
func ToProtocolRange(r types.Range) protocol.Range {
	return protocol.Range{
		Start: ToProtocolPosition(r.Start),
		End:   ToProtocolPosition(r.End),
	}
}

// FromProtocolPosition returns the zero-based line and character of p
func FromProtocolPosition(p protocol.Position) (int32, int32) {
	return int32(p.Line), int32(p.Character)
}

// FromProtocolRange converts an LSP range back to index coordinates
func FromProtocolRange(r protocol.Range) types.Range {
	sl, sc := FromProtocolPosition(r.Start)
	el, ec := FromProtocolPosition(r.End)
	return types.NewRange(sl, sc, el, ec)
}

// ToProtocolDiagnostic converts an analysis diagnostic for publishing
func ToProtocolDiagnostic(d types.Diagnostic, source string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    ToProtocolRange(d.Range),
		Severity: protocol.DiagnosticSeverity(d.Severity),
		Source:   source,
		Message:  d.Message,
	}
}

func clamp(v int32) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}
