package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// RecentContributionDays is the span of the text heatmap.
const RecentContributionDays = 90

// levelGlyphs renders contribution levels 0-4.
var levelGlyphs = []string{"·", "░", "▒", "▓", "█"}

// writeStatsResult dispatches on the configured output format.
func (ow *OutWriter) writeStatsResult(result schema.StatsResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := ow.writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := ow.writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStatsCSV(w, result)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return ow.writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return ow.writeStatsText(w, result, cfg, duration)
		}, "Wrote table")
	}
	return nil
}

// ProvenanceNotice explains degraded results. It is empty for live and fresh cached data.
func ProvenanceNotice(result schema.StatsResult) string {
	switch {
	case result.RateLimited && result.Stale:
		return "GitHub API rate limit reached. Showing stale data."
	case result.RateLimited:
		return "GitHub API rate limit reached. Showing cached data."
	case result.Stale:
		return "GitHub is unreachable. Showing stale cached data."
	default:
		return ""
	}
}

func (ow *OutWriter) writeStatsText(w io.Writer, result schema.StatsResult, cfg *contract.Config, duration time.Duration) error {
	label := contract.GetPlainLabel(result.FromCache, result.Stale, result.RateLimited)
	if cfg.UseColors {
		label = contract.GetColorLabel(result.FromCache, result.Stale, result.RateLimited)
	}
	if _, err := fmt.Fprintf(w, "GitHub stats for %s [%s] fetched %s\n",
		result.Username, label, contract.FormatAge(result.FetchedAt, ow.now())); err != nil {
		return err
	}
	if notice := ProvenanceNotice(result); notice != "" {
		if cfg.UseColors {
			notice = contract.StaleColor.Sprint(notice)
		}
		if _, err := fmt.Fprintln(w, notice); err != nil {
			return err
		}
	}

	if err := writeSummaryTable(w, result.ProfileSnapshot); err != nil {
		return err
	}
	if err := writeRepositoriesTable(w, result.TopRepositories, GetMaxTableDescriptionWidth(cfg)); err != nil {
		return err
	}
	if err := writeHeatmap(w, result.Contributions, result.FetchedAt); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Completed in %v. Cache backend: %s\n", duration.Round(time.Millisecond), cfg.CacheBackend)
	return err
}

func writeSummaryTable(w io.Writer, snap schema.ProfileSnapshot) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignRight}
	})
	rows := [][]string{
		{"Followers", strconv.Itoa(snap.Followers)},
		{"Following", strconv.Itoa(snap.Following)},
		{"Repositories", strconv.Itoa(snap.PublicRepos)},
		{"Total stars", strconv.Itoa(snap.TotalStars)},
		{"Commits (12M)", strconv.Itoa(snap.TotalCommits)},
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func writeRepositoriesTable(w io.Writer, repos []schema.RepoHighlight, descWidth int) error {
	if len(repos) == 0 {
		_, err := fmt.Fprintln(w, "No public repositories to showcase right now.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Repository", "Stars", "Language", "Description"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignRight, tw.AlignLeft, tw.AlignRight, tw.AlignLeft, tw.AlignLeft}
	})
	var data [][]string
	for i, r := range repos {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			r.Name,
			strconv.Itoa(r.Stars),
			schema.StringValue(r.Language),
			contract.Truncate(schema.StringValue(r.Description), descWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// recentContributions returns the days within RecentContributionDays of ref,
// or the last RecentContributionDays entries when none fall inside.
func recentContributions(days []schema.ContributionDay, ref time.Time) []schema.ContributionDay {
	cutoff := schema.CalendarDay(ref).AddDate(0, 0, -RecentContributionDays)
	var recent []schema.ContributionDay
	for _, d := range days {
		date, err := schema.ParseContributionDate(d.Date)
		if err == nil && !date.Before(cutoff) {
			recent = append(recent, d)
		}
	}
	if len(recent) == 0 && len(days) > 0 {
		recent = days[max(len(days)-RecentContributionDays, 0):]
	}
	return recent
}

// writeHeatmap renders recent contributions as seven rows of weekly columns.
func writeHeatmap(w io.Writer, days []schema.ContributionDay, ref time.Time) error {
	recent := recentContributions(days, ref)
	if len(recent) == 0 {
		_, err := fmt.Fprintln(w, "Contribution data is unavailable right now.")
		return err
	}

	var weeks [][]schema.ContributionDay
	for i := 0; i < len(recent); i += 7 {
		weeks = append(weeks, recent[i:min(i+7, len(recent))])
	}

	var sb strings.Builder
	sb.WriteString("Contribution heatmap\n")
	for row := range 7 {
		if row >= len(weeks[0]) {
			break
		}
		sb.WriteString(weekdayLabel(weeks[0][row].Date))
		sb.WriteString(" ")
		for _, week := range weeks {
			if row < len(week) {
				sb.WriteString(levelGlyphs[min(max(week[row].Level, 0), len(levelGlyphs)-1)])
			} else {
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Less %s More\n", strings.Join(levelGlyphs, ""))
	fmt.Fprintf(&sb, "Activity window: %s - %s\n", shortDate(recent[0].Date), shortDate(recent[len(recent)-1].Date))

	_, err := io.WriteString(w, sb.String())
	return err
}

func weekdayLabel(date string) string {
	t, err := schema.ParseContributionDate(date)
	if err != nil {
		return "   "
	}
	return t.Weekday().String()[:3]
}

func shortDate(date string) string {
	t, err := schema.ParseContributionDate(date)
	if err != nil {
		return date
	}
	return t.Format("Jan 2")
}

// writeStatsCSV writes one row per highlighted repository with the profile totals repeated.
func writeStatsCSV(w io.Writer, result schema.StatsResult) error {
	header := []string{
		"username", "followers", "following", "public_repos", "total_stars", "total_commits",
		"source", "fetched_at", "repo_rank", "repo_name", "repo_stars", "repo_language", "repo_url",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		base := []string{
			result.Username,
			strconv.Itoa(result.Followers),
			strconv.Itoa(result.Following),
			strconv.Itoa(result.PublicRepos),
			strconv.Itoa(result.TotalStars),
			strconv.Itoa(result.TotalCommits),
			contract.GetPlainLabel(result.FromCache, result.Stale, result.RateLimited),
			result.FetchedAt.Format(contract.DateTimeFormat),
		}
		if len(result.TopRepositories) == 0 {
			return cw.Write(append(base, "", "", "", "", ""))
		}
		for i, r := range result.TopRepositories {
			rec := append(append([]string(nil), base...),
				strconv.Itoa(i+1), r.Name, strconv.Itoa(r.Stars), schema.StringValue(r.Language), r.URL)
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeStatsError prints a failed request with a retry hint.
func (ow *OutWriter) writeStatsError(identity string, err error) {
	_, _ = fmt.Fprintf(ow.errOut, "Unable to load GitHub statistics for %s: %v\n", identity, err)
	if errors.Is(err, contract.ErrNoCacheAvailable) {
		_, _ = fmt.Fprintln(ow.errOut, "Nothing is cached yet. Retry later with --refresh.")
	}
}
