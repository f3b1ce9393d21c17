package references

import (
	"context"

	"go.lsp.dev/protocol"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/internal/types"
	"semanticdb-lsp/src/server/index"
	"semanticdb-lsp/src/utils/lspconv"
)

// Options configures an Engine
type Options struct {
	// Materializer resolves archive locations for definition queries; nil leaves them as they are
	Materializer Materializer
	// Strict returns materialization failures instead of the unmaterialized location
	Strict bool
}

// Engine answers position-based reference, highlight and definition queries
// against a SymbolIndex. Misses are empty results, never errors.
type Engine struct {
	index        *index.SymbolIndex
	materializer Materializer
	strict       bool
}

func NewEngine(idx *index.SymbolIndex, opts Options) *Engine {
	return &Engine{
		index:        idx,
		materializer: opts.Materializer,
		strict:       opts.Strict,
	}
}

// Positions returns the locations of the symbol at the point that lie in
// uri itself. Other files are dropped by exact string comparison of uris.
func (e *Engine) Positions(uri string, line, character int32, includeDefinition bool) []types.Location {
	data, _, ok := e.index.FindReferences(uri, line, character)
	if !ok {
		return []types.Location{}
	}
	all := e.index.ReferencePositions(data, includeDefinition)
	out := make([]types.Location, 0, len(all))
	for _, loc := range all {
		if loc.URI == uri {
			out = append(out, loc)
		}
	}
	return out
}

// Highlight returns the in-file occurrences of the symbol at the point,
// marking the definition as a write and every reference as a read. The
// definition is the one recorded for uri, so a file that redefines a
// symbol defined elsewhere still highlights its own declaration.
func (e *Engine) Highlight(uri string, line, character int32) []protocol.DocumentHighlight {
	data, _, ok := e.index.FindReferences(uri, line, character)
	if !ok {
		return []protocol.DocumentHighlight{}
	}

	def, hasDef := data.Definitions[uri]
	hasDef = hasDef && !e.index.IsArchiveURI(uri)

	highlights := make([]protocol.DocumentHighlight, 0)
	for _, loc := range e.index.ReferencePositions(data, false) {
		if loc.URI != uri {
			continue
		}
		if hasDef && def.Compare(loc.Range) < 0 {
			highlights = append(highlights, writeHighlight(def))
			hasDef = false
		}
		if hasDef && def == loc.Range {
			continue
		}
		highlights = append(highlights, protocol.DocumentHighlight{
			Range: lspconv.ToProtocolRange(loc.Range),
			Kind:  protocol.DocumentHighlightKindRead,
		})
	}
	if hasDef {
		highlights = append(highlights, writeHighlight(def))
	}
	return highlights
}

func writeHighlight(r types.Range) protocol.DocumentHighlight {
	return protocol.DocumentHighlight{
		Range: lspconv.ToProtocolRange(r),
		Kind:  protocol.DocumentHighlightKindWrite,
	}
}

// References returns the locations of the symbol at the point across every
// indexed file. Locations inside archives are not included.
func (e *Engine) References(uri string, line, character int32, includeDefinition bool) []protocol.Location {
	data, _, ok := e.index.FindReferences(uri, line, character)
	if !ok {
		return []protocol.Location{}
	}
	return lspconv.ToProtocolLocations(e.index.ReferencePositions(data, includeDefinition))
}

// Definition returns where the symbol at the point is defined. A definition
// inside an archive is materialized to a real file first. When that fails
// the archive location is returned unless the engine is strict.
func (e *Engine) Definition(ctx context.Context, uri string, line, character int32) ([]protocol.Location, error) {
	loc, sym, ok := e.index.FindDefinition(uri, line, character)
	if !ok {
		return []protocol.Location{}, nil
	}

	result := *loc
	if e.materializer != nil && e.index.IsArchiveURI(result.URI) {
		materialized, err := e.materializer.Materialize(ctx, result.URI)
		if err != nil {
			if e.strict {
				return nil, err
			}
			common.IndexLogger.Warn("Definition of %s left in archive: %v", sym, err)
		} else {
			result.URI = materialized
		}
	}
	return []protocol.Location{lspconv.ToProtocolLocation(result)}, nil
}
