package server

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"semanticdb-lsp/src/config"
	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/server/index"
	rpc "semanticdb-lsp/src/server/protocol"
	"semanticdb-lsp/src/server/references"
	"semanticdb-lsp/src/server/watcher"
)

// Runtime is a fully wired server: index, query engine, watcher and metrics
type Runtime struct {
	Config   *config.Config
	Index    *index.SymbolIndex
	Engine   *references.Engine
	Server   *Server
	Registry *prometheus.Registry

	sync    *watcher.IndexSync
	metrics *MetricsServer
}

// NewRuntime builds every component from cfg and loads the semantic documents
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	if cfg == nil {
		cfg = config.GetDefaultConfig()
	}

	dir, err := common.ValidateAndGetWorkingDir(cfg.Index.SemanticDBDir)
	if err != nil {
		return nil, common.WrapProcessingError("resolve semanticdb directory", err)
	}
	cfg.Index.SemanticDBDir = dir

	registry := prometheus.NewRegistry()
	idx := index.New(index.Options{
		ArchiveSchemes: cfg.Archive.Schemes,
		Registerer:     registry,
	})

	sync := watcher.NewIndexSync(idx, cfg.Index.SemanticDBDir, index.LoadOptions{
		Exclude:     cfg.Index.Exclude,
		Concurrency: cfg.Index.Concurrency,
	})
	if _, err := sync.Load(ctx); err != nil {
		return nil, common.WrapProcessingError("load semantic documents", err)
	}

	engine := references.NewEngine(idx, references.Options{
		Materializer: references.NewArchiveMaterializer(cfg.Archive.ScratchDir, cfg.Archive.Schemes),
		Strict:       cfg.Archive.Strict,
	})
	srv := NewServer(idx, engine, rpc.ReaderOptions{
		MaxHeaderBytes: cfg.Framing.MaxHeaderBytes,
		ReadChunkSize:  cfg.Framing.ReadChunkSize,
	})
	sync.OnChange(srv.PublishDiagnostics)

	return &Runtime{
		Config:   cfg,
		Index:    idx,
		Engine:   engine,
		Server:   srv,
		Registry: registry,
		sync:     sync,
	}, nil
}

// Serve runs the language server on in/out together with the optional
// watcher and metrics endpoint, and tears them down when the session ends.
func (r *Runtime) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if r.Config.Index.Watch {
		if err := r.sync.Watch(0); err != nil {
			return fmt.Errorf("failed to watch %s: %w", r.Config.Index.SemanticDBDir, err)
		}
	}
	if addr := r.Config.Metrics.Addr; addr != "" {
		r.metrics = NewMetricsServer(addr, r.Registry, r.Index)
		if err := r.metrics.Start(); err != nil {
			r.sync.Close()
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.Server.Serve(gctx, in, out)
	})
	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if r.metrics != nil {
		if stopErr := r.metrics.Stop(shutdownCtx); stopErr != nil {
			common.LSPLogger.Warn("Metrics server shutdown: %v", stopErr)
		}
	}
	if closeErr := r.sync.Close(); closeErr != nil {
		common.LSPLogger.Warn("Watcher shutdown: %v", closeErr)
	}
	return err
}

// MetricsAddr returns the address the metrics endpoint is bound to, if any
func (r *Runtime) MetricsAddr() string {
	if r.metrics == nil {
		return ""
	}
	return r.metrics.Addr()
}
