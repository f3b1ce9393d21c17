package index

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/internal/types"
	"semanticdb-lsp/src/semanticdb"
	"semanticdb-lsp/src/utils"
)

// Options configures a SymbolIndex
type Options struct {
	// ArchiveSchemes prefix uris of read-only archive members; defaults to "jar:"
	ArchiveSchemes []string
	// Resolver supplies fallback symbols on a miss; defaults to semanticdb.DefaultResolver
	Resolver semanticdb.Resolver
	// Registerer receives the index metrics; nil leaves them unregistered
	Registerer prometheus.Registerer
}

// SymbolData is everything known about one symbol across all indexed files
type SymbolData struct {
	// Definition is nil when no indexed file defines the symbol. When several
	// files do, it is the one with the lowest uri.
	Definition *types.Location
	// Definitions holds the definition range of every file that defines the symbol
	Definitions map[string]types.Range
	// References maps a uri to the reference ranges in that file, sorted
	References map[string][]types.Range
}

// Empty reports whether d carries neither a definition nor references
func (d *SymbolData) Empty() bool {
	return d == nil || (d.Definition == nil && len(d.References) == 0)
}

// Stats summarizes the index contents
type Stats struct {
	Documents   int `json:"documents"`
	Symbols     int `json:"symbols"`
	Occurrences int `json:"occurrences"`
}

// contribution is what one file adds to one symbol entry
type contribution struct {
	definition *types.Range
	references []types.Range
}

// fileSnapshot is the immutable indexed form of one document
type fileSnapshot struct {
	uri           string
	seq           uint64
	occurrences   []Occurrence
	diagnostics   []Diagnostic
	contributions map[semanticdb.Symbol]contribution
}

// symbolEntry is immutable once published; commits replace it wholesale
type symbolEntry struct {
	definitions map[string]types.Range
	references  map[string][]types.Range
}

// SymbolIndex maps symbols to their definitions and references across files.
// Each file's contributions are replaced atomically; concurrent readers see
// either the whole previous version of a file or the whole new one.
type SymbolIndex struct {
	mu          sync.RWMutex
	files       map[string]*fileSnapshot
	symbols     map[semanticdb.Symbol]*symbolEntry
	committed   map[string]uint64
	occurrences int

	seq      atomic.Uint64
	schemes  []string
	resolver semanticdb.Resolver
	metrics  *Metrics
}

// New creates an empty index
func New(opts Options) *SymbolIndex {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = semanticdb.DefaultResolver{}
	}
	return &SymbolIndex{
		files:     make(map[string]*fileSnapshot),
		symbols:   make(map[semanticdb.Symbol]*symbolEntry),
		committed: make(map[string]uint64),
		schemes:   opts.ArchiveSchemes,
		resolver:  resolver,
		metrics:   NewMetrics(opts.Registerer),
	}
}

// Metrics returns the collectors updated by this index
func (idx *SymbolIndex) Metrics() *Metrics {
	return idx.metrics
}

// IndexDocument replaces everything previously indexed for doc.URI with doc.
// A malformed document is rejected with a ValidationError and the previous
// state of its uri is kept.
func (idx *SymbolIndex) IndexDocument(doc *Document) error {
	seq := idx.seq.Add(1)
	if err := doc.Validate(); err != nil {
		idx.metrics.DocumentsRejected.Inc()
		return err
	}

	snap := buildSnapshot(doc, seq)
	if idx.commit(doc.URI, seq, snap) {
		idx.metrics.DocumentsIndexed.Inc()
		common.IndexLogger.Debug("Indexed %s: %d occurrences, %d diagnostics", doc.URI, len(snap.occurrences), len(snap.diagnostics))
	}
	return nil
}

// RemoveDocument drops every contribution of uri
func (idx *SymbolIndex) RemoveDocument(uri string) {
	seq := idx.seq.Add(1)
	if idx.commit(uri, seq, nil) {
		common.IndexLogger.Debug("Removed %s from index", uri)
	}
}

func buildSnapshot(doc *Document, seq uint64) *fileSnapshot {
	occs := make([]Occurrence, len(doc.Occurrences))
	copy(occs, doc.Occurrences)
	sort.SliceStable(occs, func(i, j int) bool {
		return occs[i].Range.Compare(occs[j].Range) < 0
	})

	contributions := make(map[semanticdb.Symbol]contribution)
	for _, occ := range occs {
		c := contributions[occ.Symbol]
		switch occ.Role {
		case RoleDefinition:
			if c.definition == nil {
				r := occ.Range
				c.definition = &r
			}
		case RoleReference:
			if n := len(c.references); n == 0 || c.references[n-1] != occ.Range {
				c.references = append(c.references, occ.Range)
			}
		}
		contributions[occ.Symbol] = c
	}

	diags := make([]Diagnostic, len(doc.Diagnostics))
	copy(diags, doc.Diagnostics)

	return &fileSnapshot{
		uri:           doc.URI,
		seq:           seq,
		occurrences:   occs,
		diagnostics:   diags,
		contributions: contributions,
	}
}

// commit swaps the snapshot of uri for snap (nil removes it). It returns
// false when a pass with a newer sequence number already committed.
func (idx *SymbolIndex) commit(uri string, seq uint64, snap *fileSnapshot) bool {
	start := time.Now()
	idx.mu.Lock()
	defer func() {
		idx.mu.Unlock()
		idx.metrics.CommitDuration.Observe(time.Since(start).Seconds())
	}()

	if last, ok := idx.committed[uri]; ok && last > seq {
		idx.metrics.StaleCommits.Inc()
		common.IndexLogger.Debug("Dropping stale pass %d for %s (committed %d)", seq, uri, last)
		return false
	}
	idx.committed[uri] = seq

	old := idx.files[uri]
	touched := make(map[semanticdb.Symbol]struct{})
	if old != nil {
		for sym := range old.contributions {
			touched[sym] = struct{}{}
		}
		idx.occurrences -= len(old.occurrences)
	}
	if snap != nil {
		for sym := range snap.contributions {
			touched[sym] = struct{}{}
		}
		idx.occurrences += len(snap.occurrences)
	}

	for sym := range touched {
		var c *contribution
		if snap != nil {
			if found, ok := snap.contributions[sym]; ok {
				c = &found
			}
		}
		entry := idx.symbols[sym].with(uri, c)
		if entry == nil {
			delete(idx.symbols, sym)
		} else {
			idx.symbols[sym] = entry
		}
	}

	if snap == nil {
		delete(idx.files, uri)
	} else {
		idx.files[uri] = snap
	}

	idx.metrics.Documents.Set(float64(len(idx.files)))
	idx.metrics.Symbols.Set(float64(len(idx.symbols)))
	idx.metrics.Occurrences.Set(float64(idx.occurrences))
	return true
}

// with returns a copy of e where uri contributes exactly c. A nil result
// means the symbol has nothing left.
func (e *symbolEntry) with(uri string, c *contribution) *symbolEntry {
	next := &symbolEntry{
		definitions: make(map[string]types.Range),
		references:  make(map[string][]types.Range),
	}
	if e != nil {
		for u, r := range e.definitions {
			if u != uri {
				next.definitions[u] = r
			}
		}
		for u, rs := range e.references {
			if u != uri {
				next.references[u] = rs
			}
		}
	}
	if c != nil {
		if c.definition != nil {
			next.definitions[uri] = *c.definition
		}
		if len(c.references) > 0 {
			next.references[uri] = c.references
		}
	}
	if len(next.definitions) == 0 && len(next.references) == 0 {
		return nil
	}
	return next
}

func (e *symbolEntry) data() *SymbolData {
	if e == nil {
		return nil
	}
	data := &SymbolData{
		Definitions: make(map[string]types.Range, len(e.definitions)),
		References:  make(map[string][]types.Range, len(e.references)),
	}
	for u, rs := range e.references {
		data.References[u] = append([]types.Range(nil), rs...)
	}
	// several files may claim a definition; the lowest uri wins so answers are stable
	for u, r := range e.definitions {
		data.Definitions[u] = r
		if data.Definition == nil || u < data.Definition.URI {
			data.Definition = &types.Location{URI: u, Range: r}
		}
	}
	return data
}

func (idx *SymbolIndex) file(uri string) *fileSnapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.files[uri]
}

// Lookup returns the data of sym, or nil when nothing is indexed for it
func (idx *SymbolIndex) Lookup(sym semanticdb.Symbol) *SymbolData {
	idx.mu.RLock()
	entry := idx.symbols[sym]
	idx.mu.RUnlock()
	return entry.data()
}

// FindSymbolAt returns the symbol of the occurrence in uri containing the
// point. Both range ends are inclusive; when several occurrences contain
// the point the narrowest one wins.
func (idx *SymbolIndex) FindSymbolAt(uri string, line, character int32) (semanticdb.Symbol, bool) {
	snap := idx.file(uri)
	if snap == nil {
		return nil, false
	}
	return snap.symbolAt(line, character)
}

func (s *fileSnapshot) symbolAt(line, character int32) (semanticdb.Symbol, bool) {
	point := types.Position{Line: line, Character: character}
	// occurrences are sorted by start, so nothing past hi can contain the point
	hi := sort.Search(len(s.occurrences), func(i int) bool {
		return s.occurrences[i].Range.Start.Compare(point) > 0
	})

	var best *Occurrence
	for i := 0; i < hi; i++ {
		occ := &s.occurrences[i]
		if !occ.Range.Contains(line, character) {
			continue
		}
		if best == nil || occ.Range.Start.Compare(best.Range.Start) > 0 {
			best = occ
		}
	}
	if best == nil {
		return nil, false
	}
	return best.Symbol, true
}

// FindReferences resolves the point to a symbol and returns its data. A
// symbol that no indexed file defines is treated as a surface name: the
// resolver's reference alternatives are tried in order and the first one
// with a definition wins. Without such an alternative the symbol's own
// references are returned, then the first alternative with any data. The
// returned symbol is the one whose data was found.
func (idx *SymbolIndex) FindReferences(uri string, line, character int32) (*SymbolData, semanticdb.Symbol, bool) {
	sym, ok := idx.FindSymbolAt(uri, line, character)
	if !ok {
		idx.metrics.observeQuery(QueryReferences, OutcomeMiss)
		return nil, nil, false
	}
	data, found, outcome := idx.referencesData(sym)
	idx.metrics.observeQuery(QueryReferences, outcome)
	if outcome == OutcomeMiss {
		return nil, sym, false
	}
	if outcome == OutcomeAlternative {
		common.IndexLogger.Debug("References of %s resolved through %s", sym, found)
	}
	return data, found, true
}

func (idx *SymbolIndex) referencesData(sym semanticdb.Symbol) (*SymbolData, semanticdb.Symbol, string) {
	own := idx.Lookup(sym)
	if own != nil && own.Definition != nil {
		return own, sym, OutcomeHit
	}

	alts := idx.resolver.ReferenceAlternatives(sym)
	altData := make([]*SymbolData, len(alts))
	for i, alt := range alts {
		altData[i] = idx.Lookup(alt)
		if altData[i] != nil && altData[i].Definition != nil {
			return altData[i], alt, OutcomeAlternative
		}
	}
	if !own.Empty() {
		return own, sym, OutcomeHit
	}
	for i, alt := range alts {
		if !altData[i].Empty() {
			return altData[i], alt, OutcomeAlternative
		}
	}
	return nil, sym, OutcomeMiss
}

// FindDefinition resolves the point to a symbol and returns where it is
// defined, trying the resolver's definition alternatives on a miss.
func (idx *SymbolIndex) FindDefinition(uri string, line, character int32) (*types.Location, semanticdb.Symbol, bool) {
	sym, ok := idx.FindSymbolAt(uri, line, character)
	if !ok {
		idx.metrics.observeQuery(QueryDefinition, OutcomeMiss)
		return nil, nil, false
	}
	if data := idx.Lookup(sym); data != nil && data.Definition != nil {
		idx.metrics.observeQuery(QueryDefinition, OutcomeHit)
		return data.Definition, sym, true
	}
	for _, alt := range idx.resolver.DefinitionAlternatives(sym) {
		if data := idx.Lookup(alt); data != nil && data.Definition != nil {
			idx.metrics.observeQuery(QueryDefinition, OutcomeAlternative)
			common.IndexLogger.Debug("Definition of %s resolved through %s", sym, alt)
			return data.Definition, alt, true
		}
	}
	idx.metrics.observeQuery(QueryDefinition, OutcomeMiss)
	return nil, sym, false
}

// IsArchiveURI reports whether uri addresses a member of a read-only archive
func (idx *SymbolIndex) IsArchiveURI(uri string) bool {
	return utils.IsArchiveURI(uri, idx.schemes)
}

// ReferencePositions flattens data into locations: every reference and, when
// includeDefinition is set, the definition. Locations inside archives are
// left out. The result is sorted by uri then range with no duplicates.
func (idx *SymbolIndex) ReferencePositions(data *SymbolData, includeDefinition bool) []types.Location {
	if data.Empty() {
		return []types.Location{}
	}

	locs := make([]types.Location, 0, len(data.References)+1)
	for uri, ranges := range data.References {
		if idx.IsArchiveURI(uri) {
			continue
		}
		for _, r := range ranges {
			locs = append(locs, types.Location{URI: uri, Range: r})
		}
	}
	if includeDefinition && data.Definition != nil && !idx.IsArchiveURI(data.Definition.URI) {
		locs = append(locs, *data.Definition)
	}

	sort.Slice(locs, func(i, j int) bool {
		return locs[i].Compare(locs[j]) < 0
	})
	out := locs[:0]
	for i, loc := range locs {
		if i > 0 && loc == locs[i-1] {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// Occurrences returns the occurrences of uri sorted by range
func (idx *SymbolIndex) Occurrences(uri string) []Occurrence {
	snap := idx.file(uri)
	if snap == nil {
		return nil
	}
	return append([]Occurrence(nil), snap.occurrences...)
}

// Diagnostics returns the diagnostics recorded for uri
func (idx *SymbolIndex) Diagnostics(uri string) []Diagnostic {
	snap := idx.file(uri)
	if snap == nil {
		return nil
	}
	return append([]Diagnostic(nil), snap.diagnostics...)
}

// Documents returns the indexed uris in sorted order
func (idx *SymbolIndex) Documents() []string {
	idx.mu.RLock()
	uris := make([]string, 0, len(idx.files))
	for uri := range idx.files {
		uris = append(uris, uri)
	}
	idx.mu.RUnlock()
	sort.Strings(uris)
	return uris
}

func (idx *SymbolIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Stats{
		Documents:   len(idx.files),
		Symbols:     len(idx.symbols),
		Occurrences: idx.occurrences,
	}
}
