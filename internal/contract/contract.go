// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/folio/schema"
)

// StatsProvider defines the upstream operations needed to aggregate profile statistics.
// This allows the caching logic to be tested without a real GitHub API.
type StatsProvider interface {
	// FetchProfile returns the follower, following and public repository counts.
	FetchProfile(ctx context.Context, identity string) (schema.UpstreamProfile, error)

	// FetchRepos returns the repositories of an identity in fetch order.
	// Pagination is sequential and capped by the implementation.
	FetchRepos(ctx context.Context, identity string) ([]schema.UpstreamRepo, error)

	// FetchContributions returns the raw contribution calendar.
	// Callers treat any error as an empty calendar.
	FetchContributions(ctx context.Context, identity string) ([]schema.ContributionDay, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetStatsStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking stats requests.
type HistoryStore interface {
	// RecordFetch stores one finished stats request and returns its ID
	RecordFetch(run schema.FetchRun) (int64, error)

	// ListFetches returns all recorded requests ordered by ID
	ListFetches() ([]schema.FetchRun, error)

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// Close closes the underlying connection
	Close() error
}
