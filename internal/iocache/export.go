package iocache

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/internal/parquet"
)

// ErrNoHistory is returned when an export finds no recorded runs.
var ErrNoHistory = errors.New("no fetch history found to export")

// ExportHistory writes every fetch run in store to a Parquet file and reports progress to out.
// The ".parquet" extension is appended when outputFile lacks it. It returns the written path.
func ExportHistory(store contract.HistoryStore, outputFile string, out io.Writer) (string, error) {
	if outputFile == "" {
		return "", errors.New("--output-file is required for export command")
	}
	if store == nil {
		return "", errors.New("history store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return "", fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return "", ErrNoHistory
	}
	_, _ = fmt.Fprintf(out, "Exporting %d fetch runs from %s backend...\n", status.TotalRuns, status.Backend)

	runs, err := store.ListFetches()
	if err != nil {
		return "", fmt.Errorf("failed to retrieve fetch runs: %w", err)
	}

	path := outputFile
	if !strings.HasSuffix(path, ".parquet") {
		path += ".parquet"
	}
	if err := parquet.WriteFetchRunsParquet(parquet.ConvertFetchRuns(runs), path); err != nil {
		return "", fmt.Errorf("failed to write fetch runs: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Exported %d fetch runs to: %s\n", len(runs), path)
	return path, nil
}
