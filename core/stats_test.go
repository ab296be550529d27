package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/internal/iocache"
	"github.com/huangsam/folio/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, time.June, 30, 12, 0, 0, 0, time.UTC)

// memStore is an in-memory CacheStore.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(key string) ([]byte, int, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, 0, 0, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, 0, 0, errors.New("not found")
	}
	return v, contract.CacheRecordSchemaVersion, 0, nil
}

func (s *memStore) Set(key string, value []byte, _ int, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *memStore) GetStatus() (schema.CacheStatus, error) { return schema.CacheStatus{}, nil }

func (s *memStore) Close() error { return nil }

func (s *memStore) raw(identity string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[contract.CacheKey(identity)]
}

func (s *memStore) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func (s *memStore) seed(t *testing.T, identity string, snapshot schema.ProfileSnapshot) {
	t.Helper()
	data, err := json.Marshal(schema.CacheRecord{Timestamp: snapshot.FetchedAt.UnixMilli(), Data: snapshot})
	require.NoError(t, err)
	s.data[contract.CacheKey(identity)] = data
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func cachedSnapshot(identity string, capturedAt time.Time) schema.ProfileSnapshot {
	return schema.ProfileSnapshot{
		Username:      identity,
		Followers:     10,
		Following:     2,
		PublicRepos:   5,
		TotalStars:    42,
		TotalCommits:  7,
		Contributions: []schema.ContributionDay{{Date: "2025-06-29", Count: 7, Level: 3}},
		TopRepositories: []schema.RepoHighlight{
			{Name: "folio", Stars: 42, URL: "https://github.com/octocat/folio", Language: schema.StringPtr("Go")},
		},
		FetchedAt: capturedAt,
	}
}

func healthyProvider(identity string) *MockStatsProvider {
	p := &MockStatsProvider{}
	p.On("FetchProfile", mock.Anything, identity).Return(schema.UpstreamProfile{Followers: 100, Following: 1, PublicRepos: 3}, nil)
	p.On("FetchRepos", mock.Anything, identity).Return([]schema.UpstreamRepo{
		{Name: "a", StargazersCount: 5, HTMLURL: "https://github.com/octocat/a"},
		{Name: "b", StargazersCount: 9, HTMLURL: "https://github.com/octocat/b"},
	}, nil)
	p.On("FetchContributions", mock.Anything, identity).Return([]schema.ContributionDay{
		{Date: "2025-06-30", Count: 4, Level: 2},
		{Date: "2025-06-29", Count: 1, Level: 1},
	}, nil)
	return p
}

func failingProvider(identity string, err error) *MockStatsProvider {
	p := &MockStatsProvider{}
	p.On("FetchProfile", mock.Anything, identity).Return(schema.UpstreamProfile{}, err)
	p.On("FetchRepos", mock.Anything, identity).Return([]schema.UpstreamRepo{}, nil).Maybe()
	p.On("FetchContributions", mock.Anything, identity).Return([]schema.ContributionDay{}, nil).Maybe()
	return p
}

func TestGetStatsFreshCacheSkipsUpstream(t *testing.T) {
	store := newMemStore()
	store.seed(t, "octocat", cachedSnapshot("octocat", baseTime))
	clock := &testClock{now: baseTime.Add(5 * time.Hour)}
	provider := &MockStatsProvider{}

	sc := NewStatsCache(store, provider, WithClock(clock.Now))
	result, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
	require.NoError(t, err)

	assert.True(t, result.FromCache)
	assert.False(t, result.Stale)
	assert.False(t, result.RateLimited)
	assert.Equal(t, 42, result.TotalStars)
	provider.AssertNotCalled(t, "FetchProfile", mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "FetchRepos", mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "FetchContributions", mock.Anything, mock.Anything)
	assert.Zero(t, store.setCount())
}

func TestGetStatsStaleFallback(t *testing.T) {
	store := newMemStore()
	store.seed(t, "octocat", cachedSnapshot("octocat", baseTime))
	before := store.raw("octocat")
	clock := &testClock{now: baseTime.Add(7 * time.Hour)}
	provider := failingProvider("octocat", contract.NewStatusError(http.StatusBadGateway, "u", ""))

	sc := NewStatsCache(store, provider, WithClock(clock.Now))
	result, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
	require.NoError(t, err)

	assert.True(t, result.FromCache)
	assert.True(t, result.Stale)
	assert.False(t, result.RateLimited)
	assert.Equal(t, "octocat", result.Username)
	assert.Equal(t, before, store.raw("octocat"))
	assert.Zero(t, store.setCount())
	provider.AssertCalled(t, "FetchProfile", mock.Anything, "octocat")
}

func TestGetStatsRateLimitTagging(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantRateLimited bool
	}{
		{"forbidden", contract.NewStatusError(http.StatusForbidden, "u", "API rate limit exceeded"), true},
		{"not found", contract.NewStatusError(http.StatusNotFound, "u", ""), false},
		{"server error", contract.NewStatusError(http.StatusInternalServerError, "u", ""), false},
		{"unavailable", contract.NewStatusError(http.StatusServiceUnavailable, "u", ""), false},
		{"transport", contract.NewTransportError("u", errors.New("connection reset")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.seed(t, "octocat", cachedSnapshot("octocat", baseTime))
			clock := &testClock{now: baseTime.Add(7 * time.Hour)}

			sc := NewStatsCache(store, failingProvider("octocat", tt.err), WithClock(clock.Now))
			result, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
			require.NoError(t, err)
			assert.True(t, result.FromCache)
			assert.Equal(t, tt.wantRateLimited, result.RateLimited)
		})
	}
}

func TestGetStatsRepoFailureIsRateLimited(t *testing.T) {
	store := newMemStore()
	store.seed(t, "octocat", cachedSnapshot("octocat", baseTime))
	clock := &testClock{now: baseTime.Add(7 * time.Hour)}

	provider := &MockStatsProvider{}
	provider.On("FetchProfile", mock.Anything, "octocat").Return(schema.UpstreamProfile{}, nil).Maybe()
	provider.On("FetchRepos", mock.Anything, "octocat").Return(nil, fmt.Errorf("page 2: %w", contract.NewStatusError(http.StatusForbidden, "u", "")))
	provider.On("FetchContributions", mock.Anything, "octocat").Return(nil, nil).Maybe()

	sc := NewStatsCache(store, provider, WithClock(clock.Now))
	result, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
	require.NoError(t, err)
	assert.True(t, result.Stale)
	assert.True(t, result.RateLimited)
}

func TestGetStatsForcedRefreshFailureOnFreshRecord(t *testing.T) {
	store := newMemStore()
	store.seed(t, "octocat", cachedSnapshot("octocat", baseTime))
	clock := &testClock{now: baseTime.Add(time.Hour)}
	provider := failingProvider("octocat", contract.NewStatusError(http.StatusForbidden, "u", ""))

	sc := NewStatsCache(store, provider, WithClock(clock.Now))
	result, err := sc.GetStats(context.Background(), "octocat", GetOptions{ForceRefresh: true})
	require.NoError(t, err)

	assert.True(t, result.FromCache)
	assert.False(t, result.Stale)
	assert.True(t, result.RateLimited)
	provider.AssertCalled(t, "FetchProfile", mock.Anything, "octocat")
}

func TestGetStatsNoCacheHardFailure(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		cause error
	}{
		{"unavailable", contract.NewStatusError(http.StatusInternalServerError, "u", ""), contract.ErrUpstreamUnavailable},
		{"rate limited", contract.NewStatusError(http.StatusForbidden, "u", ""), contract.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			clock := &testClock{now: baseTime}

			sc := NewStatsCache(store, failingProvider("octocat", tt.err), WithClock(clock.Now))
			result, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, contract.ErrNoCacheAvailable)
			assert.ErrorIs(t, err, tt.cause)
			assert.Equal(t, schema.StatsResult{}, result)
			assert.Zero(t, store.setCount())
		})
	}
}

func TestGetStatsLiveAggregationPersists(t *testing.T) {
	store := newMemStore()
	clock := &testClock{now: baseTime}
	provider := healthyProvider("octocat")

	sc := NewStatsCache(store, provider, WithClock(clock.Now))
	live, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
	require.NoError(t, err)

	assert.False(t, live.FromCache)
	assert.False(t, live.Stale)
	assert.False(t, live.RateLimited)
	assert.Equal(t, 100, live.Followers)
	assert.Equal(t, 14, live.TotalStars)
	assert.Equal(t, 5, live.TotalCommits)
	assert.Equal(t, "b", live.TopRepositories[0].Name)
	assert.True(t, live.FetchedAt.Equal(baseTime))
	assert.Equal(t, 1, store.setCount())

	var record schema.CacheRecord
	require.NoError(t, json.Unmarshal(store.raw("octocat"), &record))
	assert.Equal(t, baseTime.UnixMilli(), record.Timestamp)
	if diff := cmp.Diff(live.ProfileSnapshot, record.Data); diff != "" {
		t.Errorf("persisted snapshot mismatch (-live +persisted):\n%s", diff)
	}

	// Within the freshness window the persisted snapshot is served verbatim
	clock.Set(baseTime.Add(time.Hour))
	cached, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
	require.NoError(t, err)
	assert.True(t, cached.FromCache)
	if diff := cmp.Diff(live.ProfileSnapshot, cached.ProfileSnapshot); diff != "" {
		t.Errorf("cached snapshot mismatch (-live +cached):\n%s", diff)
	}
	provider.AssertNumberOfCalls(t, "FetchProfile", 1)
}

func TestGetStatsExpiredRecordRefreshes(t *testing.T) {
	store := newMemStore()
	store.seed(t, "octocat", cachedSnapshot("octocat", baseTime))
	clock := &testClock{now: baseTime.Add(6 * time.Hour)}

	sc := NewStatsCache(store, healthyProvider("octocat"), WithClock(clock.Now))
	result, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 100, result.Followers)
	assert.Equal(t, 1, store.setCount())
}

func TestGetStatsCustomFreshness(t *testing.T) {
	store := newMemStore()
	store.seed(t, "octocat", cachedSnapshot("octocat", baseTime))
	clock := &testClock{now: baseTime.Add(2 * time.Hour)}

	sc := NewStatsCache(store, healthyProvider("octocat"), WithClock(clock.Now), WithFreshness(time.Hour))
	result, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
}

func TestGetStatsContributionFeedDegrades(t *testing.T) {
	provider := &MockStatsProvider{}
	provider.On("FetchProfile", mock.Anything, "octocat").Return(schema.UpstreamProfile{Followers: 1}, nil)
	provider.On("FetchRepos", mock.Anything, "octocat").Return([]schema.UpstreamRepo{{Name: "a", StargazersCount: 1}}, nil)
	provider.On("FetchContributions", mock.Anything, "octocat").Return(nil, contract.NewStatusError(http.StatusForbidden, "u", ""))

	clock := &testClock{now: baseTime}
	sc := NewStatsCache(newMemStore(), provider, WithClock(clock.Now))
	result, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	assert.False(t, result.RateLimited)
	assert.Empty(t, result.Contributions)
	assert.Zero(t, result.TotalCommits)
	assert.Equal(t, 1, result.TotalStars)
}

func TestGetStatsPersistenceFailureSwallowed(t *testing.T) {
	store := &iocache.MockCacheStore{}
	store.On("Get", contract.CacheKey("octocat")).Return(nil, 0, int64(0), errors.New("no rows"))
	store.On("Set", contract.CacheKey("octocat"), mock.Anything, contract.CacheRecordSchemaVersion, baseTime.Unix()).
		Return(errors.New("disk full"))

	clock := &testClock{now: baseTime}
	sc := NewStatsCache(store, healthyProvider("octocat"), WithClock(clock.Now))
	result, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	store.AssertExpectations(t)
}

func TestGetStatsUnusableRecords(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		version int
		err     error
	}{
		{"read error", nil, 0, errors.New("connection lost")},
		{"old schema version", []byte(`{"timestamp":1,"data":{"username":"octocat"}}`), 0, nil},
		{"corrupt payload", []byte(`{"timestamp":`), contract.CacheRecordSchemaVersion, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &iocache.MockCacheStore{}
			store.On("Get", contract.CacheKey("octocat")).Return(tt.data, tt.version, int64(0), tt.err)

			clock := &testClock{now: baseTime}
			provider := failingProvider("octocat", contract.NewStatusError(http.StatusBadGateway, "u", ""))
			sc := NewStatsCache(store, provider, WithClock(clock.Now))

			_, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
			assert.ErrorIs(t, err, contract.ErrNoCacheAvailable)
			store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetStatsWithoutStore(t *testing.T) {
	clock := &testClock{now: baseTime}
	sc := NewStatsCache(nil, healthyProvider("octocat"), WithClock(clock.Now))

	result, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
}

func TestGetStatsInvalidIdentity(t *testing.T) {
	store := &iocache.MockCacheStore{}
	provider := &MockStatsProvider{}
	sc := NewStatsCache(store, provider)

	for _, identity := range []string{"", "   "} {
		_, err := sc.GetStats(context.Background(), identity, GetOptions{})
		assert.ErrorIs(t, err, contract.ErrInvalidIdentity)
	}
	store.AssertNotCalled(t, "Get", mock.Anything)
}

func TestGetStatsTrimsIdentity(t *testing.T) {
	store := newMemStore()
	store.seed(t, "octocat", cachedSnapshot("octocat", baseTime))
	clock := &testClock{now: baseTime.Add(time.Hour)}
	provider := &MockStatsProvider{}
	history := &iocache.MockHistoryStore{}
	history.On("RecordFetch", mock.MatchedBy(func(run schema.FetchRun) bool {
		return run.Identity == "octocat"
	})).Return(int64(1), nil).Once()
	sc := NewStatsCache(store, provider, WithClock(clock.Now), WithHistory(history))

	result, err := sc.GetStats(context.Background(), "  octocat\t", GetOptions{})
	require.NoError(t, err)
	assert.True(t, result.FromCache)
	assert.Equal(t, "octocat", result.Username)
	provider.AssertNotCalled(t, "FetchProfile", mock.Anything, mock.Anything)
	history.AssertExpectations(t)
}

func TestGetStatsRecordsHistory(t *testing.T) {
	t.Run("live", func(t *testing.T) {
		history := &iocache.MockHistoryStore{}
		history.On("RecordFetch", mock.MatchedBy(func(run schema.FetchRun) bool {
			return run.Identity == "octocat" && run.Outcome == schema.LiveOutcome &&
				!run.RateLimited && run.ErrorMessage == nil && run.StartedAt.Equal(baseTime)
		})).Return(int64(1), nil).Once()

		clock := &testClock{now: baseTime}
		sc := NewStatsCache(newMemStore(), healthyProvider("octocat"), WithClock(clock.Now), WithHistory(history))
		_, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
		require.NoError(t, err)
		history.AssertExpectations(t)
	})

	t.Run("failed", func(t *testing.T) {
		history := &iocache.MockHistoryStore{}
		history.On("RecordFetch", mock.MatchedBy(func(run schema.FetchRun) bool {
			return run.Outcome == schema.FailedOutcome && run.RateLimited && run.ErrorMessage != nil
		})).Return(int64(0), errors.New("history offline")).Once()

		clock := &testClock{now: baseTime}
		provider := failingProvider("octocat", contract.NewStatusError(http.StatusForbidden, "u", ""))
		sc := NewStatsCache(newMemStore(), provider, WithClock(clock.Now), WithHistory(history))
		_, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
		require.ErrorIs(t, err, contract.ErrNoCacheAvailable)
		history.AssertExpectations(t)
	})

	t.Run("stale", func(t *testing.T) {
		history := &iocache.MockHistoryStore{}
		history.On("RecordFetch", mock.MatchedBy(func(run schema.FetchRun) bool {
			return run.Outcome == schema.StaleOutcome && !run.RateLimited && run.ErrorMessage == nil
		})).Return(int64(2), nil).Once()

		store := newMemStore()
		store.seed(t, "octocat", cachedSnapshot("octocat", baseTime))
		clock := &testClock{now: baseTime.Add(8 * time.Hour)}
		provider := failingProvider("octocat", contract.NewStatusError(http.StatusBadGateway, "u", ""))
		sc := NewStatsCache(store, provider, WithClock(clock.Now), WithHistory(history))
		_, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
		require.NoError(t, err)
		history.AssertExpectations(t)
	})
}

// blockingProvider counts profile calls and blocks them until released.
type blockingProvider struct {
	profileCalls atomic.Int32
	started      chan struct{}
	release      chan struct{}
}

func (p *blockingProvider) FetchProfile(ctx context.Context, _ string) (schema.UpstreamProfile, error) {
	if p.profileCalls.Add(1) == 1 {
		close(p.started)
	}
	select {
	case <-p.release:
		return schema.UpstreamProfile{Followers: 3}, nil
	case <-ctx.Done():
		return schema.UpstreamProfile{}, ctx.Err()
	}
}

func (p *blockingProvider) FetchRepos(context.Context, string) ([]schema.UpstreamRepo, error) {
	return nil, nil
}

func (p *blockingProvider) FetchContributions(context.Context, string) ([]schema.ContributionDay, error) {
	return nil, nil
}

// waitSignals reports each caller attached to an in-flight refresh.
func waitSignals(sc *StatsCache) <-chan struct{} {
	waiting := make(chan struct{}, 4)
	sc.onWait = func(string) { waiting <- struct{}{} }
	return waiting
}

type statsOutcome struct {
	result schema.StatsResult
	err    error
}

func getStatsAsync(ctx context.Context, sc *StatsCache, identity string) <-chan statsOutcome {
	out := make(chan statsOutcome, 1)
	go func() {
		result, err := sc.GetStats(ctx, identity, GetOptions{ForceRefresh: true})
		out <- statsOutcome{result: result, err: err}
	}()
	return out
}

func TestGetStatsSharesInFlightRefresh(t *testing.T) {
	provider := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	store := newMemStore()
	clock := &testClock{now: baseTime}
	sc := NewStatsCache(store, provider, WithClock(clock.Now))
	waiting := waitSignals(sc)

	first := getStatsAsync(context.Background(), sc, "octocat")
	<-waiting
	second := getStatsAsync(context.Background(), sc, "octocat")
	<-waiting
	close(provider.release)

	for _, out := range []statsOutcome{<-first, <-second} {
		require.NoError(t, out.err)
		assert.False(t, out.result.FromCache)
		assert.Equal(t, 3, out.result.Followers)
	}
	assert.Equal(t, int32(1), provider.profileCalls.Load())
	assert.Equal(t, 1, store.setCount())
}

func TestGetStatsSharedRefreshOutlivesCancelledCaller(t *testing.T) {
	provider := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	store := newMemStore()
	clock := &testClock{now: baseTime}
	sc := NewStatsCache(store, provider, WithClock(clock.Now))
	waiting := waitSignals(sc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := getStatsAsync(ctx, sc, "octocat")
	<-waiting
	<-provider.started
	second := getStatsAsync(context.Background(), sc, "octocat")
	<-waiting

	cancel()
	cancelled := <-first
	require.ErrorIs(t, cancelled.err, contract.ErrNoCacheAvailable)
	assert.ErrorIs(t, cancelled.err, context.Canceled)

	close(provider.release)
	live := <-second
	require.NoError(t, live.err)
	assert.False(t, live.result.FromCache)
	assert.Equal(t, 3, live.result.Followers)
	assert.Equal(t, int32(1), provider.profileCalls.Load())
	assert.Equal(t, 1, store.setCount())
}

func TestGetStatsSharedRefreshTimeout(t *testing.T) {
	provider := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	sc := NewStatsCache(newMemStore(), provider, WithRequestTimeout(5*time.Millisecond))

	_, err := sc.GetStats(context.Background(), "octocat", GetOptions{})
	require.ErrorIs(t, err, contract.ErrNoCacheAvailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetStatsCancelledCallerFallsBack(t *testing.T) {
	provider := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	store := newMemStore()
	store.seed(t, "octocat", cachedSnapshot("octocat", baseTime))
	clock := &testClock{now: baseTime.Add(7 * time.Hour)}
	sc := NewStatsCache(store, provider, WithClock(clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-provider.started
		cancel()
	}()

	result, err := sc.GetStats(ctx, "octocat", GetOptions{})
	require.NoError(t, err)
	assert.True(t, result.FromCache)
	assert.True(t, result.Stale)
	assert.False(t, result.RateLimited)

	// The refresh keeps running for other callers and still lands in the cache.
	close(provider.release)
	require.Eventually(t, func() bool { return store.setCount() == 1 }, time.Second, 5*time.Millisecond)
}
