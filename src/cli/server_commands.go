package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.lsp.dev/protocol"

	cmdcommon "semanticdb-lsp/src/cli/common"
	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/internal/types"
	"semanticdb-lsp/src/server"
	"semanticdb-lsp/src/utils/lspconv"
)

// queryTimeout bounds one-shot commands, archive extraction included
const queryTimeout = 2 * time.Minute

// RunServe loads the index and serves one LSP session on stdin/stdout
func RunServe(configPath string, overrides Overrides) error {
	cfg := LoadConfigForServer(configPath, overrides)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now()
	runtime, err := server.NewRuntime(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	stats := runtime.Index.Stats()
	common.CLILogger.Info("Indexed %d documents, %d symbols from %s in %v",
		stats.Documents, stats.Symbols, cfg.Index.SemanticDBDir, time.Since(start).Round(time.Millisecond))

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			common.CLILogger.Info("Received shutdown signal, stopping server...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := runtime.Serve(ctx, os.Stdin, os.Stdout); err != nil && err != context.Canceled {
		return err
	}
	common.CLILogger.Info("Server stopped")
	return nil
}

// QueryRequest is one navigation query issued from the command line
type QueryRequest struct {
	Kind               string
	URI                string
	Line               int32
	Character          int32
	IncludeDeclaration bool
}

// RunQuery loads the index, answers req and prints the result as JSON
func RunQuery(w io.Writer, configPath string, overrides Overrides, req QueryRequest) error {
	cmdCtx, err := cmdcommon.NewCommandContext(LoadConfigForCLI(configPath, overrides), queryTimeout)
	if err != nil {
		return err
	}
	defer cmdCtx.Cleanup()

	result, err := answerQuery(cmdCtx, req)
	if err != nil {
		return err
	}
	return printJSON(w, result)
}

func answerQuery(cmdCtx *cmdcommon.CommandContext, req QueryRequest) (interface{}, error) {
	engine := cmdCtx.Runtime.Engine
	switch req.Kind {
	case QueryKindReferences:
		return lspconv.FromProtocolLocations(engine.References(req.URI, req.Line, req.Character, req.IncludeDeclaration)), nil
	case QueryKindDefinition:
		locs, err := engine.Definition(cmdCtx.Context, req.URI, req.Line, req.Character)
		if err != nil {
			return nil, err
		}
		return lspconv.FromProtocolLocations(locs), nil
	case QueryKindHighlight:
		highlights := engine.Highlight(req.URI, req.Line, req.Character)
		return highlightsForDisplay(highlights), nil
	default:
		return nil, fmt.Errorf("unknown query kind %q (want %s, %s or %s)",
			req.Kind, QueryKindReferences, QueryKindDefinition, QueryKindHighlight)
	}
}

// RunStats loads the index and prints its statistics
func RunStats(w io.Writer, configPath string, overrides Overrides) error {
	cmdCtx, err := cmdcommon.NewCommandContext(LoadConfigForCLI(configPath, overrides), queryTimeout)
	if err != nil {
		return err
	}
	defer cmdCtx.Cleanup()

	displayStats(w, cmdCtx.Config.Index.SemanticDBDir, cmdCtx.Runtime.Index)
	return nil
}

type displayHighlight struct {
	Range types.Range `json:"range"`
	Kind  string      `json:"kind"`
}

func highlightsForDisplay(highlights []protocol.DocumentHighlight) []displayHighlight {
	out := make([]displayHighlight, 0, len(highlights))
	for _, h := range highlights {
		kind := "read"
		if h.Kind == protocol.DocumentHighlightKindWrite {
			kind = "write"
		}
		out = append(out, displayHighlight{Range: lspconv.FromProtocolRange(h.Range), Kind: kind})
	}
	return out
}
