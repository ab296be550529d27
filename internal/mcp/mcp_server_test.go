package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/huangsam/folio/core"
	"github.com/huangsam/folio/core/egg"
	"github.com/huangsam/folio/internal/contract"
	mcp_internal "github.com/huangsam/folio/internal/mcp"
	"github.com/huangsam/folio/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStats struct {
	mock.Mock
}

func (m *mockStats) GetStats(_ context.Context, identity string, opts core.GetOptions) (schema.StatsResult, error) {
	args := m.Called(identity, opts)
	return args.Get(0).(schema.StatsResult), args.Error(1)
}

type eggPayload struct {
	Triggered bool      `json:"triggered"`
	State     egg.State `json:"state"`
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	return res.Content[0].(mcp.TextContent).Text
}

func decodeEgg(t *testing.T, res *mcp.CallToolResult) eggPayload {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var p eggPayload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &p))
	return p
}

func TestMCPServerStatsTool(t *testing.T) {
	baseCfg := &contract.Config{Identity: "octocat"}

	t.Run("default identity", func(t *testing.T) {
		stats := &mockStats{}
		stats.On("GetStats", "octocat", core.GetOptions{}).Return(schema.StatsResult{
			ProfileSnapshot: schema.ProfileSnapshot{Username: "octocat", TotalStars: 42},
			FromCache:       true,
		}, nil)
		s := mcp_internal.NewMCPServer(baseCfg, stats, egg.NewDefault())

		res := callTool(t, s, "get_github_stats", map[string]any{})
		assert.False(t, res.IsError)
		var got schema.StatsResult
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
		assert.Equal(t, 42, got.TotalStars)
		assert.True(t, got.FromCache)
		stats.AssertExpectations(t)
	})

	t.Run("explicit identity with refresh", func(t *testing.T) {
		stats := &mockStats{}
		stats.On("GetStats", "huangsam", core.GetOptions{ForceRefresh: true}).Return(schema.StatsResult{}, nil)
		s := mcp_internal.NewMCPServer(baseCfg, stats, egg.NewDefault())

		res := callTool(t, s, "get_github_stats", map[string]any{"identity": " huangsam ", "refresh": true})
		assert.False(t, res.IsError)
		stats.AssertExpectations(t)
	})

	t.Run("no cache available", func(t *testing.T) {
		stats := &mockStats{}
		stats.On("GetStats", "octocat", core.GetOptions{}).Return(schema.StatsResult{}, contract.ErrNoCacheAvailable)
		s := mcp_internal.NewMCPServer(baseCfg, stats, egg.NewDefault())

		res := callTool(t, s, "get_github_stats", nil)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "nothing is cached for octocat")
	})

	t.Run("other failure", func(t *testing.T) {
		stats := &mockStats{}
		stats.On("GetStats", "octocat", core.GetOptions{}).Return(schema.StatsResult{}, contract.ErrInvalidIdentity)
		s := mcp_internal.NewMCPServer(baseCfg, stats, egg.NewDefault())

		res := callTool(t, s, "get_github_stats", nil)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "stats failed")
	})
}

func TestMCPServerEggTools(t *testing.T) {
	s := mcp_internal.NewMCPServer(&contract.Config{}, &mockStats{}, egg.NewDefault())

	status := decodeEgg(t, callTool(t, s, "egg_status", nil))
	assert.Equal(t, egg.Progress{Discovered: 0, Total: 5}, status.State.Progress)
	assert.Contains(t, status.State.Hint, "Chapter 1")

	got := decodeEgg(t, callTool(t, s, "egg_gesture", map[string]any{"name": egg.LogoGesture, "times": 5.0}))
	assert.True(t, got.Triggered)
	require.NotNil(t, got.State.Active)
	assert.Equal(t, egg.LogoOracle, got.State.Active.ID)

	got = decodeEgg(t, callTool(t, s, "egg_type", map[string]any{"text": "verc"}))
	assert.False(t, got.Triggered)

	decodeEgg(t, callTool(t, s, "egg_reset", nil))
	got = decodeEgg(t, callTool(t, s, "egg_type", map[string]any{"text": "etti"}))
	assert.False(t, got.Triggered, "reset clears partial input")

	got = decodeEgg(t, callTool(t, s, "egg_type", map[string]any{"text": "Vercetti"}))
	assert.True(t, got.Triggered)
	assert.Equal(t, egg.ViceLegend, got.State.Active.ID)

	got = decodeEgg(t, callTool(t, s, "egg_dismiss", nil))
	assert.Nil(t, got.State.Active)
	assert.Equal(t, 2, got.State.Progress.Discovered)
}

func TestMCPServerEggValidation(t *testing.T) {
	s := mcp_internal.NewMCPServer(&contract.Config{}, &mockStats{}, egg.NewDefault())

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"gesture without name", "egg_gesture", map[string]any{}, "name is required"},
		{"gesture zero times", "egg_gesture", map[string]any{"name": "logo", "times": 0.0}, "times must be between"},
		{"gesture too many times", "egg_gesture", map[string]any{"name": "logo", "times": 100.0}, "times must be between"},
		{"type without text", "egg_type", map[string]any{}, "text is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := callTool(t, s, tc.tool, tc.args)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tc.want)
		})
	}
}
