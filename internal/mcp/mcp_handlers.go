package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/folio/core"
	"github.com/huangsam/folio/core/egg"
	"github.com/huangsam/folio/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxGestureTimes bounds the times argument of egg_gesture.
const maxGestureTimes = 20

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	stats   StatsGetter
	seq     *egg.Sequencer
}

// eggResult is the payload of every egg tool.
type eggResult struct {
	Triggered bool      `json:"triggered"`
	State     egg.State `json:"state"`
}

func (h *toolHandler) handleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identity := strings.TrimSpace(request.GetString("identity", ""))
	if identity == "" {
		identity = h.baseCfg.Identity
	}
	opts := core.GetOptions{ForceRefresh: request.GetBool("refresh", false)}

	result, err := h.stats.GetStats(ctx, identity, opts)
	if errors.Is(err, contract.ErrNoCacheAvailable) {
		return mcp.NewToolResultError(fmt.Sprintf("GitHub is unavailable and nothing is cached for %s. Retry later.", identity)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGesture(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	times := request.GetInt("times", 1)
	if times < 1 || times > maxGestureTimes {
		return mcp.NewToolResultError(fmt.Sprintf("times must be between 1 and %d", maxGestureTimes)), nil
	}

	var triggered bool
	for range times {
		if h.seq.RecordGestureActivation(name) {
			triggered = true
		}
	}
	return h.eggResult(triggered), nil
}

func (h *toolHandler) handleType(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}
	return h.eggResult(h.seq.RecordText(text)), nil
}

func (h *toolHandler) handleReset(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.seq.ResetBuffer()
	return h.eggResult(false), nil
}

func (h *toolHandler) handleStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.eggResult(false), nil
}

func (h *toolHandler) handleDismiss(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.seq.DismissActive()
	return h.eggResult(false), nil
}

func (h *toolHandler) eggResult(triggered bool) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(eggResult{Triggered: triggered, State: h.seq.Snapshot()}, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}
