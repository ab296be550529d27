package schema

import "time"

// CacheStatus represents the status of the cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// HistoryStatus represents the status of the fetch history store.
type HistoryStatus struct {
	Backend       string               `json:"backend"`
	Connected     bool                 `json:"connected"`
	TotalRuns     int                  `json:"total_runs"`
	LastRunID     int64                `json:"last_run_id"`
	LastRunTime   time.Time            `json:"last_run_time"`
	OldestRunTime time.Time            `json:"oldest_run_time"`
	Outcomes      map[FetchOutcome]int `json:"outcomes"`
}

// FetchRun is one recorded stats request.
type FetchRun struct {
	RunID        int64        `json:"run_id"`
	Identity     string       `json:"identity"`
	StartedAt    time.Time    `json:"started_at"`
	DurationMs   int64        `json:"duration_ms"`
	Outcome      FetchOutcome `json:"outcome"`
	RateLimited  bool         `json:"rate_limited"`
	ErrorMessage *string      `json:"error_message,omitempty"`
}
