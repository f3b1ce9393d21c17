package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/server/index"
)

// MetricsServer exposes prometheus metrics and index stats over HTTP
type MetricsServer struct {
	addr     string
	gatherer prometheus.Gatherer
	index    *index.SymbolIndex
	server   *http.Server
	listener net.Listener
}

func NewMetricsServer(addr string, gatherer prometheus.Gatherer, idx *index.SymbolIndex) *MetricsServer {
	return &MetricsServer{
		addr:     addr,
		gatherer: gatherer,
		index:    idx,
	}
}

// Handler returns the mux serving /metrics and /health
func (s *MetricsServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "up",
			"index":  s.index.Stats(),
		})
	})

	return mux
}

// Start listens on the configured address and serves in the background
func (s *MetricsServer) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	common.LSPLogger.Info("Metrics server listening on %s", listener.Addr())

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			common.LSPLogger.Error("Metrics server failed: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, useful when listening on port 0
func (s *MetricsServer) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
