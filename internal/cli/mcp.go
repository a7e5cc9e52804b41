package cli

import (
	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/mcp"
)

// McpCmd serves the engines to an MCP client over stdin/stdout. Nothing
// else may write to stdout while it runs.
type McpCmd struct{}

func (c *McpCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	if err := ctx.shareStore(); err != nil {
		return err
	}
	logger.Info("Starting MCP server", "backend", ctx.Store.Backend())
	return mcp.NewServer(ctx.Store, ctx.Clock).Serve(ctx.context())
}
