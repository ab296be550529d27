package schema

import "time"

// ContributionDayFormat is the layout of ContributionDay.Date.
const ContributionDayFormat = "2006-01-02"

// ContributionDay is one cell of the contribution calendar.
type ContributionDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"` // 0-4 intensity bucket
}

// RepoHighlight is one of the highlighted repositories of a profile.
type RepoHighlight struct {
	Name        string  `json:"name"`
	Stars       int     `json:"stars"`
	URL         string  `json:"url"`
	Description *string `json:"description"`
	Language    *string `json:"language"`
}

// ProfileSnapshot is the aggregated statistics payload for one identity.
// A snapshot is never mutated after it is built; newer snapshots replace it.
type ProfileSnapshot struct {
	Username        string            `json:"username"`
	Followers       int               `json:"followers"`
	Following       int               `json:"following"`
	PublicRepos     int               `json:"publicRepos"`
	TotalStars      int               `json:"totalStars"`
	TotalCommits    int               `json:"totalCommits"` // trailing 12 months
	Contributions   []ContributionDay `json:"contributions"`
	TopRepositories []RepoHighlight   `json:"topRepositories"`
	FetchedAt       time.Time         `json:"fetchedAt"`
}

// CacheRecord is the persisted form of a snapshot.
type CacheRecord struct {
	Timestamp int64           `json:"timestamp"` // unix milliseconds of capture
	Data      ProfileSnapshot `json:"data"`
}

// CapturedAt returns the capture instant of the record.
func (r CacheRecord) CapturedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// StatsResult is a snapshot annotated with its provenance.
// FromCache=false always implies Stale=false and RateLimited=false.
type StatsResult struct {
	ProfileSnapshot
	FromCache   bool `json:"fromCache"`
	Stale       bool `json:"stale"`
	RateLimited bool `json:"rateLimited"`
}

// Outcome classifies the result for history tracking.
func (r StatsResult) Outcome() FetchOutcome {
	switch {
	case !r.FromCache:
		return LiveOutcome
	case r.Stale:
		return StaleOutcome
	default:
		return CachedOutcome
	}
}

// UpstreamProfile is the subset of the profile endpoint that gets aggregated.
type UpstreamProfile struct {
	Followers   int `json:"followers"`
	Following   int `json:"following"`
	PublicRepos int `json:"public_repos"`
}

// UpstreamRepo is one item of the repository listing endpoint.
type UpstreamRepo struct {
	Name            string  `json:"name"`
	StargazersCount int     `json:"stargazers_count"`
	Description     *string `json:"description"`
	HTMLURL         string  `json:"html_url"`
	Language        *string `json:"language"`
}
