package lspconv

import (
	"encoding/json"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"semanticdb-lsp/src/internal/types"
	"semanticdb-lsp/src/utils/jsonutil"
)

// ToProtocolLocation converts a location; the uri is passed through unchanged
func ToProtocolLocation(loc types.Location) protocol.Location {
	return protocol.Location{
		URI:   uri.URI(loc.URI),
		Range: ToProtocolRange(loc.Range),
	}
}

// ToProtocolLocations converts a slice of locations, never returning nil
func ToProtocolLocations(locs []types.Location) []protocol.Location {
	out := make([]protocol.Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, ToProtocolLocation(loc))
	}
	return out
}

// FromProtocolLocations converts LSP locations back, never returning nil
func FromProtocolLocations(locs []protocol.Location) []types.Location {
	out := make([]types.Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, types.Location{URI: string(loc.URI), Range: FromProtocolRange(loc.Range)})
	}
	return out
}

// ParseLocations converts various LSP location result shapes to a []types.Location
func ParseLocations(result interface{}) []types.Location {
	switch v := result.(type) {
	case nil:
		return nil
	case types.Location:
		return []types.Location{v}
	case []types.Location:
		return v
	case json.RawMessage:
		var locs []types.Location
		if err := json.Unmarshal(v, &locs); err == nil {
			return locs
		}
		var single types.Location
		if err := json.Unmarshal(v, &single); err == nil && single.URI != "" {
			return []types.Location{single}
		}
		return nil
	case []interface{}:
		out := make([]types.Location, 0, len(v))
		for _, item := range v {
			if loc, err := jsonutil.Convert[types.Location](item); err == nil && loc.URI != "" {
				out = append(out, loc)
			}
		}
		return out
	case map[string]interface{}:
		if loc, err := jsonutil.Convert[types.Location](v); err == nil && loc.URI != "" {
			return []types.Location{loc}
		}
		return nil
	default:
		return nil
	}
}
