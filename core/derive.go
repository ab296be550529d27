package core

import (
	"cmp"
	"slices"
	"time"

	"github.com/huangsam/folio/schema"
)

const (
	// TopRepositoryCount is the number of highlighted repositories per snapshot.
	TopRepositoryCount = 3

	// ContributionWindowDays is the length of the trailing contribution window.
	ContributionWindowDays = 365

	maxContributionLevel = 4
)

func totalStars(repos []schema.UpstreamRepo) int {
	var total int
	for _, r := range repos {
		total += r.StargazersCount
	}
	return total
}

// topRepositories returns the n most starred repositories.
// Ties keep fetch order.
func topRepositories(repos []schema.UpstreamRepo, n int) []schema.RepoHighlight {
	sorted := slices.Clone(repos)
	slices.SortStableFunc(sorted, func(a, b schema.UpstreamRepo) int {
		return cmp.Compare(b.StargazersCount, a.StargazersCount)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	highlights := make([]schema.RepoHighlight, 0, len(sorted))
	for _, r := range sorted {
		highlights = append(highlights, schema.RepoHighlight{
			Name:        r.Name,
			Stars:       r.StargazersCount,
			URL:         r.HTMLURL,
			Description: r.Description,
			Language:    r.Language,
		})
	}
	return highlights
}

// trimContributions keeps the days in the trailing window ending on the capture day,
// sorted ascending with one entry per date. The later of two duplicates wins and
// unparseable dates are dropped.
func trimContributions(days []schema.ContributionDay, capturedAt time.Time) []schema.ContributionDay {
	today := schema.CalendarDay(capturedAt)
	cutoff := today.AddDate(0, 0, -(ContributionWindowDays - 1))

	byDate := make(map[string]schema.ContributionDay, len(days))
	for _, day := range days {
		date, err := schema.ParseContributionDate(day.Date)
		if err != nil || date.Before(cutoff) || date.After(today) {
			continue
		}
		day.Date = date.Format(schema.ContributionDayFormat)
		day.Count = max(day.Count, 0)
		day.Level = min(max(day.Level, 0), maxContributionLevel)
		byDate[day.Date] = day
	}

	trimmed := make([]schema.ContributionDay, 0, len(byDate))
	for _, day := range byDate {
		trimmed = append(trimmed, day)
	}
	// ISO dates sort lexically
	slices.SortFunc(trimmed, func(a, b schema.ContributionDay) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return trimmed
}

func totalCommits(days []schema.ContributionDay) int {
	var total int
	for _, d := range days {
		total += d.Count
	}
	return total
}
