// Package parquet exports fetch history to Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/folio/schema"
	"github.com/parquet-go/parquet-go"
)

// FetchRun is one row of the folio_fetch_runs table.
type FetchRun struct {
	// RunID is the unique identifier of the request
	RunID int64 `parquet:"run_id,snappy"`

	// Identity is the GitHub login the stats were requested for
	Identity string `parquet:"identity,snappy,dict"`

	// StartedAt is when the request began
	StartedAt time.Time `parquet:"started_at,snappy"`

	DurationMs int64 `parquet:"duration_ms,snappy"`

	// Outcome is live, cached, stale or failed
	Outcome string `parquet:"outcome,snappy,dict"`

	RateLimited bool `parquet:"rate_limited"`

	// ErrorMessage is set when the refresh failed (nullable)
	ErrorMessage *string `parquet:"error_message,optional,snappy"`
}

// ConvertFetchRuns converts stored fetch runs to Parquet rows.
func ConvertFetchRuns(runs []schema.FetchRun) []FetchRun {
	result := make([]FetchRun, len(runs))
	for i, run := range runs {
		result[i] = FetchRun{
			RunID:        run.RunID,
			Identity:     run.Identity,
			StartedAt:    run.StartedAt,
			DurationMs:   run.DurationMs,
			Outcome:      string(run.Outcome),
			RateLimited:  run.RateLimited,
			ErrorMessage: run.ErrorMessage,
		}
	}
	return result
}

// WriteFetchRunsParquet writes rows to a new Parquet file at outputPath.
func WriteFetchRunsParquet(rows []FetchRun, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Schema is inferred from the struct tags
	writer := parquet.NewGenericWriter[FetchRun](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}
