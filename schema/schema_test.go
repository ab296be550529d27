package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContributionDate(t *testing.T) {
	got, err := ParseContributionDate("2025-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseContributionDate("03/31/2025")
	assert.Error(t, err)
}

func TestCalendarDay(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 22:00 EST on Mar 31 is already Apr 1 in UTC
	got := CalendarDay(time.Date(2025, 3, 31, 22, 0, 0, 0, est))
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	p := StringPtr("go")
	require.NotNil(t, p)
	assert.Equal(t, "go", *p)

	assert.Equal(t, "", StringValue(nil))
	assert.Equal(t, "go", StringValue(p))
}

func TestStatsResultOutcome(t *testing.T) {
	tests := []struct {
		name   string
		result StatsResult
		want   FetchOutcome
	}{
		{"live", StatsResult{}, LiveOutcome},
		{"cached", StatsResult{FromCache: true}, CachedOutcome},
		{"rate limited but fresh", StatsResult{FromCache: true, RateLimited: true}, CachedOutcome},
		{"stale", StatsResult{FromCache: true, Stale: true}, StaleOutcome},
		{"stale and rate limited", StatsResult{FromCache: true, Stale: true, RateLimited: true}, StaleOutcome},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.result.Outcome())
		})
	}
}

func TestCacheRecordCapturedAt(t *testing.T) {
	captured := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	record := CacheRecord{Timestamp: captured.UnixMilli()}
	assert.True(t, record.CapturedAt().Equal(captured))
}

func TestStatsResultJSONShape(t *testing.T) {
	result := StatsResult{
		ProfileSnapshot: ProfileSnapshot{
			Username:        "octocat",
			TopRepositories: []RepoHighlight{{Name: "hello-world", Stars: 3, URL: "https://github.com/octocat/hello-world"}},
		},
		FromCache: true,
		Stale:     true,
	}
	data, err := json.Marshal(result)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	// Snapshot fields are flattened next to the provenance flags
	assert.Equal(t, "octocat", fields["username"])
	assert.Equal(t, true, fields["fromCache"])
	assert.Equal(t, true, fields["stale"])
	assert.Equal(t, false, fields["rateLimited"])

	repos := fields["topRepositories"].([]any)
	repo := repos[0].(map[string]any)
	assert.Contains(t, repo, "description")
	assert.Nil(t, repo["description"])
	assert.Nil(t, repo["language"])
}

func TestValidSets(t *testing.T) {
	assert.Len(t, ValidOutputModes, 3)
	assert.Len(t, ValidDatabaseBackends, 4)
	assert.Equal(t, []FetchOutcome{LiveOutcome, CachedOutcome, StaleOutcome, FailedOutcome}, AllFetchOutcomes)
}
