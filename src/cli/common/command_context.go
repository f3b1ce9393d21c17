package common

import (
	"context"
	"fmt"
	"time"

	"semanticdb-lsp/src/config"
	"semanticdb-lsp/src/internal/common"
	"semanticdb-lsp/src/server"
)

// CommandContext encapsulates the lifecycle of a one-shot CLI command: a
// loaded index plus a context bounding the whole command.
type CommandContext struct {
	Config  *config.Config
	Runtime *server.Runtime
	Context context.Context
	Cancel  context.CancelFunc
}

// NewCommandContext loads the index described by cfg. A zero timeout means
// the command is not bounded.
func NewCommandContext(cfg *config.Config, timeout time.Duration) (*CommandContext, error) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	cmdCtx := &CommandContext{
		Config:  cfg,
		Context: ctx,
		Cancel:  cancel,
	}

	start := time.Now()
	runtime, err := server.NewRuntime(ctx, cfg)
	if err != nil {
		cmdCtx.Cleanup()
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	cmdCtx.Runtime = runtime

	stats := runtime.Index.Stats()
	common.CLILogger.Debug("Loaded %d documents from %s in %v", stats.Documents, cfg.Index.SemanticDBDir, time.Since(start))
	return cmdCtx, nil
}

// Cleanup releases the command context
func (c *CommandContext) Cleanup() {
	if c.Cancel != nil {
		c.Cancel()
	}
}
