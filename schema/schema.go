// Package schema has models and constants shared by all parts of folio.
package schema

import "time"

// ParseContributionDate parses a ContributionDay date as a UTC calendar day.
func ParseContributionDate(date string) (time.Time, error) {
	return time.ParseInLocation(ContributionDayFormat, date, time.UTC)
}

// CalendarDay truncates t to midnight UTC of the same calendar day.
func CalendarDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
