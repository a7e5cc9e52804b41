// Package mcp exposes the tracking engines as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/julianstephens/dayledger/internal/clock"
	"github.com/julianstephens/dayledger/internal/constants"
	"github.com/julianstephens/dayledger/internal/goals"
	"github.com/julianstephens/dayledger/internal/habits"
	"github.com/julianstephens/dayledger/internal/journal"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/internal/tasks"
)

// Server wraps the MCP server with the engines it drives.
type Server struct {
	mcpServer *mcp.Server
	store     storage.Provider
	clock     clock.Clock
	habits    *habits.Engine
	tasks     *tasks.Engine
	journal   *journal.Journal
	goals     *goals.Engine
}

func NewServer(store storage.Provider, clk clock.Clock) *Server {
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    constants.AppName,
			Version: constants.Version,
		}, nil),
		store:   store,
		clock:   clk,
		habits:  habits.NewEngine(store, clk),
		tasks:   tasks.NewEngine(store, clk),
		journal: journal.New(store, clk),
		goals:   goals.NewEngine(store, clk),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// Serve runs the server on stdin/stdout until ctx is cancelled or the
// client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session on t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}
