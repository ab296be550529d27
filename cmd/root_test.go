package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/folio/core"
	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/internal/iocache"
	"github.com/huangsam/folio/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// unavailableGitHub answers every request with 502 and counts them.
func unavailableGitHub(t *testing.T) (*contract.Config, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	conf := &contract.Config{
		GitHubAPIURL:     srv.URL,
		ContributionsURL: srv.URL,
		RequestTimeout:   2 * time.Second,
		Freshness:        contract.DefaultFreshness,
	}
	return conf, &hits
}

func freshRecord(t *testing.T, identity string) []byte {
	t.Helper()
	now := time.Now()
	data, err := json.Marshal(schema.CacheRecord{
		Timestamp: now.UnixMilli(),
		Data:      schema.ProfileSnapshot{Username: identity, Followers: 12, FetchedAt: now},
	})
	require.NoError(t, err)
	return data
}

func TestNewStatsCacheWiresStores(t *testing.T) {
	tests := []struct {
		name        string
		opts        core.GetOptions
		wantOutcome schema.FetchOutcome
		wantHits    bool
	}{
		{name: "fresh record skips upstream", wantOutcome: schema.CachedOutcome},
		{name: "forced refresh falls back", opts: core.GetOptions{ForceRefresh: true}, wantOutcome: schema.CachedOutcome, wantHits: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, hits := unavailableGitHub(t)

			store := &iocache.MockCacheStore{}
			store.On("Get", contract.CacheKey("octocat")).Return(freshRecord(t, "octocat"), contract.CacheRecordSchemaVersion, int64(0), nil)
			history := &iocache.MockHistoryStore{}
			history.On("RecordFetch", mock.MatchedBy(func(run schema.FetchRun) bool {
				return run.Identity == "octocat" && run.Outcome == tt.wantOutcome
			})).Return(int64(1), nil).Once()

			mgr := &iocache.MockCacheManager{}
			mgr.On("GetStatsStore").Return(store)
			mgr.On("GetHistoryStore").Return(history)

			result, err := newStatsCache(conf, mgr).GetStats(context.Background(), "octocat", tt.opts)
			require.NoError(t, err)
			assert.True(t, result.FromCache)
			assert.False(t, result.Stale)
			assert.Equal(t, 12, result.Followers)
			assert.Equal(t, tt.wantHits, hits.Load() > 0)

			mgr.AssertExpectations(t)
			history.AssertExpectations(t)
			store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestNewStatsCacheWithoutStores(t *testing.T) {
	conf, hits := unavailableGitHub(t)

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetStatsStore").Return(nil)
	mgr.On("GetHistoryStore").Return(nil)

	_, err := newStatsCache(conf, mgr).GetStats(context.Background(), "octocat", core.GetOptions{})
	require.ErrorIs(t, err, contract.ErrNoCacheAvailable)
	assert.ErrorIs(t, err, contract.ErrUpstreamUnavailable)
	assert.Positive(t, hits.Load())
	mgr.AssertExpectations(t)
}
