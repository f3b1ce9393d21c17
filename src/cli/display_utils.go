package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"semanticdb-lsp/src/server/index"
)

// printJSON writes v as indented JSON followed by a newline
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// displayStats prints index statistics for the stats command
func displayStats(w io.Writer, dir string, idx *index.SymbolIndex) {
	stats := idx.Stats()
	fmt.Fprintf(w, "Semantic documents: %s\n", dir)
	fmt.Fprintf(w, "  Documents:   %d\n", stats.Documents)
	fmt.Fprintf(w, "  Symbols:     %d\n", stats.Symbols)
	fmt.Fprintf(w, "  Occurrences: %d\n", stats.Occurrences)

	withDiagnostics := 0
	for _, uri := range idx.Documents() {
		if len(idx.Diagnostics(uri)) > 0 {
			withDiagnostics++
		}
	}
	fmt.Fprintf(w, "  Documents with diagnostics: %d\n", withDiagnostics)
}
