package index

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/internal/constants"
	"semanticdb-lsp/src/utils/filepattern"
)

// LoadOptions controls LoadDirectory
type LoadOptions struct {
	// Exclude holds glob patterns matched against paths relative to the root
	Exclude []string
	// Concurrency bounds parallel file loads; <= 0 selects the default
	Concurrency int
	// OnLoaded is called for every indexed file, possibly concurrently
	OnLoaded func(path string, doc *Document)
}

// LoadStats counts the outcome of a directory load
type LoadStats struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// IsSemanticDocument reports whether path names a semantic document file
func IsSemanticDocument(path string) bool {
	return strings.HasSuffix(path, constants.SemanticDocumentSuffix)
}

// LoadFile decodes the semantic document at path and indexes it
func LoadFile(idx *SymbolIndex, path string) (*Document, error) {
	data, err := common.SafeReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		idx.metrics.DocumentsRejected.Inc()
		return nil, fmt.Errorf("semantic document %s: %w", path, err)
	}
	if err := idx.IndexDocument(doc); err != nil {
		return nil, fmt.Errorf("semantic document %s: %w", path, err)
	}
	return doc, nil
}

// LoadDirectory indexes every semantic document below dir. Malformed files
// are logged and skipped; only walk failures and cancellation are errors.
func LoadDirectory(ctx context.Context, idx *SymbolIndex, dir string, opts LoadOptions) (LoadStats, error) {
	excludes, err := filepattern.Compile(opts.Exclude)
	if err != nil {
		return LoadStats{}, err
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = constants.DefaultIndexConcurrency
	}

	var loaded, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if gctx.Err() != nil {
			return gctx.Err()
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != dir && (constants.SkipDirectories[d.Name()] || excludes.Match(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsSemanticDocument(path) || excludes.Match(rel) {
			return nil
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			doc, err := LoadFile(idx, path)
			if err != nil {
				skipped.Add(1)
				common.IndexLogger.Warn("Skipping %s: %v", rel, err)
				return nil
			}
			loaded.Add(1)
			if opts.OnLoaded != nil {
				opts.OnLoaded(path, doc)
			}
			return nil
		})
		return nil
	})

	waitErr := g.Wait()
	stats := LoadStats{Loaded: int(loaded.Load()), Skipped: int(skipped.Load())}
	if walkErr != nil {
		return stats, fmt.Errorf("failed to walk %s: %w", dir, walkErr)
	}
	if waitErr != nil {
		return stats, waitErr
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	common.IndexLogger.Info("Loaded %d semantic documents from %s (%d skipped)", stats.Loaded, dir, stats.Skipped)
	return stats, nil
}
