// Package core implements the fetch-cache-degrade pipeline behind GitHub profile stats.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// GetOptions controls a single GetStats call.
type GetOptions struct {
	// ForceRefresh skips the fresh-cache fast path.
	ForceRefresh bool
}

// StatsCache produces profile statistics annotated with their provenance.
// It serves fresh cache records without touching the network, refreshes
// expired ones, and falls back to any prior record when a refresh fails.
type StatsCache struct {
	store          contract.CacheStore
	provider       contract.StatsProvider
	history        contract.HistoryStore
	logger         *zap.Logger
	now            func() time.Time
	freshness      time.Duration
	refreshTimeout time.Duration
	inflight       singleflight.Group

	// onWait runs once a caller is attached to an in-flight refresh.
	onWait func(identity string)
}

// refreshRequests bounds a shared refresh in per-request timeouts.
const refreshRequests = 4

// Option configures a StatsCache.
type Option func(*StatsCache)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *StatsCache) { s.now = now }
}

// WithLogger sets the operational logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *StatsCache) { s.logger = logger }
}

// WithFreshness overrides the freshness window.
func WithFreshness(d time.Duration) Option {
	return func(s *StatsCache) { s.freshness = d }
}

// WithRequestTimeout bounds a shared refresh by the per-request timeout of the provider.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *StatsCache) {
		if d > 0 {
			s.refreshTimeout = refreshRequests * d
		}
	}
}

// WithHistory records every GetStats call in the given store.
func WithHistory(history contract.HistoryStore) Option {
	return func(s *StatsCache) { s.history = history }
}

// NewStatsCache creates a StatsCache. A nil store disables persistence.
func NewStatsCache(store contract.CacheStore, provider contract.StatsProvider, opts ...Option) *StatsCache {
	s := &StatsCache{
		store:          store,
		provider:       provider,
		logger:         zap.NewNop(),
		now:            time.Now,
		freshness:      contract.DefaultFreshness,
		refreshTimeout: refreshRequests * contract.DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetStats returns the statistics of identity.
//
// A fresh record is returned as is unless opts.ForceRefresh is set. Otherwise one
// aggregation is attempted; on failure a prior record of any age is returned with
// FromCache set, and only when there is none does GetStats fail with an error
// matching both contract.ErrNoCacheAvailable and the upstream cause.
// Surrounding whitespace is trimmed from identity.
func (s *StatsCache) GetStats(ctx context.Context, identity string, opts GetOptions) (schema.StatsResult, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return schema.StatsResult{}, contract.ErrInvalidIdentity
	}

	start := s.now()
	result, err := s.getStats(ctx, identity, opts)
	s.recordFetch(identity, start, result, err)
	return result, err
}

func (s *StatsCache) getStats(ctx context.Context, identity string, opts GetOptions) (schema.StatsResult, error) {
	record, found := s.readRecord(identity)
	fresh := found && s.now().Sub(record.CapturedAt()) < s.freshness

	if fresh && !opts.ForceRefresh {
		s.logger.Debug("Serving fresh cached stats", zap.String("identity", identity))
		return schema.StatsResult{ProfileSnapshot: record.Data, FromCache: true}, nil
	}

	snapshot, err := s.refresh(ctx, identity)
	if err == nil {
		return schema.StatsResult{ProfileSnapshot: snapshot}, nil
	}

	if !found {
		s.logger.Warn("Refresh failed with no cached stats",
			zap.String("identity", identity), zap.Error(err))
		return schema.StatsResult{}, fmt.Errorf("%w: %w", contract.ErrNoCacheAvailable, err)
	}

	rateLimited := errors.Is(err, contract.ErrRateLimited)
	s.logger.Warn("Refresh failed, serving cached stats",
		zap.String("identity", identity),
		zap.Bool("stale", !fresh),
		zap.Bool("rate_limited", rateLimited),
		zap.Error(err))
	return schema.StatsResult{
		ProfileSnapshot: record.Data,
		FromCache:       true,
		Stale:           !fresh,
		RateLimited:     rateLimited,
	}, nil
}

// refresh runs one aggregation and persists its snapshot.
// Overlapping refreshes of the same identity share the in-flight aggregation.
// It ignores the cancellation of whichever caller started it and is bounded by
// the refresh timeout instead; each caller stops waiting when its own ctx ends.
func (s *StatsCache) refresh(ctx context.Context, identity string) (schema.ProfileSnapshot, error) {
	ch := s.inflight.DoChan(identity, func() (any, error) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()

		snapshot, err := aggregate(actx, s.provider, identity, s.now, s.logger)
		if err != nil {
			return nil, err
		}
		s.writeRecord(identity, snapshot)
		return snapshot, nil
	})
	if s.onWait != nil {
		s.onWait(identity)
	}

	select {
	case <-ctx.Done():
		return schema.ProfileSnapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return schema.ProfileSnapshot{}, res.Err
		}
		return res.Val.(schema.ProfileSnapshot), nil
	}
}

// recordFetch stores the call in the history store, if any. Failures are logged and dropped.
func (s *StatsCache) recordFetch(identity string, start time.Time, result schema.StatsResult, err error) {
	if s.history == nil {
		return
	}

	run := schema.FetchRun{
		Identity:    identity,
		StartedAt:   start,
		DurationMs:  s.now().Sub(start).Milliseconds(),
		Outcome:     result.Outcome(),
		RateLimited: result.RateLimited,
	}
	if err != nil {
		run.Outcome = schema.FailedOutcome
		run.RateLimited = errors.Is(err, contract.ErrRateLimited)
		run.ErrorMessage = schema.StringPtr(err.Error())
	}

	if _, recErr := s.history.RecordFetch(run); recErr != nil {
		s.logger.Debug("Dropping fetch history record", zap.String("identity", identity), zap.Error(recErr))
	}
}
