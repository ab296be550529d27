// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/folio/core"
	"github.com/huangsam/folio/core/egg"
	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StatsGetter is the stats operation exposed as a tool.
type StatsGetter interface {
	GetStats(ctx context.Context, identity string, opts core.GetOptions) (schema.StatsResult, error)
}

// NewMCPServer initializes and configures the folio MCP server without starting it.
// All egg tools share seq, so one MCP session plays one saga.
func NewMCPServer(baseCfg *contract.Config, stats StatsGetter, seq *egg.Sequencer) *server.MCPServer {
	s := server.NewMCPServer(
		"Folio Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		stats:   stats,
		seq:     seq,
	}

	// --- 1. Tool: get_github_stats ---
	s.AddTool(mcp.NewTool("get_github_stats",
		mcp.WithDescription("Fetch aggregated GitHub profile statistics, falling back to cached data when GitHub is unavailable."),
		mcp.WithString("identity", mcp.Description("GitHub username (defaults to the configured identity).")),
		mcp.WithBoolean("refresh", mcp.Description("Bypass a fresh cache entry and query GitHub.")),
	), h.handleGetStats)

	// --- 2. Tool: egg_gesture ---
	s.AddTool(mcp.NewTool("egg_gesture",
		mcp.WithDescription("Record one activation of a named gesture in the easter-egg saga."),
		mcp.WithString("name", mcp.Description("Gesture name (e.g. 'logo')."), mcp.Required()),
		mcp.WithNumber("times", mcp.Description("Number of consecutive activations. Defaults to 1.")),
	), h.handleGesture)

	// --- 3. Tool: egg_type ---
	s.AddTool(mcp.NewTool("egg_type",
		mcp.WithDescription("Type text into the easter-egg keystroke buffer."),
		mcp.WithString("text", mcp.Description("Keystrokes to record. Characters outside a-z are ignored."), mcp.Required()),
	), h.handleType)

	// --- 4. Tool: egg_reset ---
	s.AddTool(mcp.NewTool("egg_reset",
		mcp.WithDescription("Clear the keystroke buffer without triggering anything."),
	), h.handleReset)

	// --- 5. Tool: egg_status ---
	s.AddTool(mcp.NewTool("egg_status",
		mcp.WithDescription("Show discovered chapters, the active chapter, the next hint, and progress."),
	), h.handleStatus)

	// --- 6. Tool: egg_dismiss ---
	s.AddTool(mcp.NewTool("egg_dismiss",
		mcp.WithDescription("Dismiss the active chapter presentation."),
	), h.handleDismiss)

	return s
}

// StartMCPServer starts the folio MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, stats StatsGetter, seq *egg.Sequencer) error {
	s := NewMCPServer(baseCfg, stats, seq)
	return server.ServeStdio(s)
}
