package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// aggregate fetches the three upstream sources concurrently and builds a snapshot.
// Profile and repository failures fail the aggregation; a contribution feed
// failure degrades to an empty calendar.
func aggregate(ctx context.Context, provider contract.StatsProvider, identity string, now func() time.Time, logger *zap.Logger) (schema.ProfileSnapshot, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		profile schema.UpstreamProfile
		repos   []schema.UpstreamRepo
		days    []schema.ContributionDay
	)

	g.Go(func() error {
		p, err := provider.FetchProfile(gctx, identity)
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}
		profile = p
		return nil
	})

	g.Go(func() error {
		r, err := provider.FetchRepos(gctx, identity)
		if err != nil {
			return fmt.Errorf("fetch repos: %w", err)
		}
		repos = r
		return nil
	})

	g.Go(func() error {
		d, err := provider.FetchContributions(gctx, identity)
		if err != nil {
			logger.Debug("Contribution feed degraded", zap.String("identity", identity), zap.Error(err))
			return nil
		}
		days = d
		return nil
	})

	if err := g.Wait(); err != nil {
		return schema.ProfileSnapshot{}, err
	}
	return buildSnapshot(identity, profile, repos, days, now()), nil
}

// buildSnapshot derives the aggregated fields from the upstream payloads.
func buildSnapshot(identity string, profile schema.UpstreamProfile, repos []schema.UpstreamRepo, days []schema.ContributionDay, capturedAt time.Time) schema.ProfileSnapshot {
	contributions := trimContributions(days, capturedAt)
	return schema.ProfileSnapshot{
		Username:        identity,
		Followers:       profile.Followers,
		Following:       profile.Following,
		PublicRepos:     profile.PublicRepos,
		TotalStars:      totalStars(repos),
		TotalCommits:    totalCommits(contributions),
		Contributions:   contributions,
		TopRepositories: topRepositories(repos, TopRepositoryCount),
		FetchedAt:       capturedAt.UTC(),
	}
}
