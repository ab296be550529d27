package core

import (
	"context"

	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
	"github.com/stretchr/testify/mock"
)

// MockStatsProvider is a mock implementation of StatsProvider for testing.
type MockStatsProvider struct {
	mock.Mock
}

var _ contract.StatsProvider = &MockStatsProvider{} // Compile-time check

// FetchProfile implements the StatsProvider interface.
func (m *MockStatsProvider) FetchProfile(ctx context.Context, identity string) (schema.UpstreamProfile, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(schema.UpstreamProfile), args.Error(1)
}

// FetchRepos implements the StatsProvider interface.
func (m *MockStatsProvider) FetchRepos(ctx context.Context, identity string) ([]schema.UpstreamRepo, error) {
	args := m.Called(ctx, identity)
	repos, _ := args.Get(0).([]schema.UpstreamRepo)
	return repos, args.Error(1)
}

// FetchContributions implements the StatsProvider interface.
func (m *MockStatsProvider) FetchContributions(ctx context.Context, identity string) ([]schema.ContributionDay, error) {
	args := m.Called(ctx, identity)
	days, _ := args.Get(0).([]schema.ContributionDay)
	return days, args.Error(1)
}
