package iocache

import (
	"database/sql"
	"fmt"

	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
)

// fetchRunsTable records every stats request.
const fetchRunsTable = "folio_fetch_runs"

// HistoryStoreImpl implements contract.HistoryStore on a SQL table.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore opens the backend and creates the fetch runs table if needed.
// The none backend yields a store that records nothing.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDatabase(backend, connStr, contract.GetHistoryDBFilePath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(getCreateFetchRunsQuery(backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", fetchRunsTable, err)
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// getCreateFetchRunsQuery returns the CREATE TABLE query for the fetch runs table.
// It matches the first embedded migration.
func getCreateFetchRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(fetchRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				identity VARCHAR(255) NOT NULL,
				started_at DATETIME(6) NOT NULL,
				duration_ms BIGINT NOT NULL,
				outcome VARCHAR(16) NOT NULL,
				rate_limited BOOLEAN NOT NULL DEFAULT FALSE,
				error_message TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				identity TEXT NOT NULL,
				started_at TIMESTAMPTZ NOT NULL,
				duration_ms BIGINT NOT NULL,
				outcome TEXT NOT NULL,
				rate_limited BOOLEAN NOT NULL DEFAULT FALSE,
				error_message TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				identity TEXT NOT NULL,
				started_at TEXT NOT NULL,
				duration_ms INTEGER NOT NULL,
				outcome TEXT NOT NULL,
				rate_limited BOOLEAN NOT NULL DEFAULT 0,
				error_message TEXT
			);
		`, quotedTableName)
	}
}

// RecordFetch stores one finished stats request and returns its run ID.
// The none backend returns 0.
func (hs *HistoryStoreImpl) RecordFetch(run schema.FetchRun) (int64, error) {
	if hs.db == nil {
		return 0, nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (identity, started_at, duration_ms, outcome, rate_limited, error_message) VALUES (%s)`,
		quoteTableName(fetchRunsTable, hs.backend), placeholders(hs.backend, 6))
	args := []any{
		run.Identity,
		formatTime(run.StartedAt, hs.backend),
		run.DurationMs,
		string(run.Outcome),
		run.RateLimited,
		run.ErrorMessage,
	}

	var runID int64
	if hs.backend == schema.PostgreSQLBackend {
		if err := hs.db.QueryRow(query+" RETURNING run_id", args...).Scan(&runID); err != nil {
			return 0, fmt.Errorf("failed to insert fetch run: %w", err)
		}
		return runID, nil
	}

	result, err := hs.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert fetch run: %w", err)
	}
	if runID, err = result.LastInsertId(); err != nil {
		return 0, fmt.Errorf("failed to read fetch run id: %w", err)
	}
	return runID, nil
}

// ListFetches returns all recorded requests ordered by run ID.
func (hs *HistoryStoreImpl) ListFetches() ([]schema.FetchRun, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, identity, started_at, duration_ms, outcome, rate_limited, error_message FROM %s ORDER BY run_id`,
		quoteTableName(fetchRunsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []schema.FetchRun
	for rows.Next() {
		var (
			run       schema.FetchRun
			outcome   string
			errMsg    sql.NullString
			startedAt = storedTime{backend: hs.backend}
		)
		if err := rows.Scan(&run.RunID, &run.Identity, startedAt.target(), &run.DurationMs, &outcome, &run.RateLimited, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan fetch run: %w", err)
		}
		if run.StartedAt, err = startedAt.value(); err != nil {
			return nil, err
		}
		run.Outcome = schema.FetchOutcome(outcome)
		if errMsg.Valid {
			run.ErrorMessage = &errMsg.String
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fetch runs: %w", err)
	}
	return runs, nil
}

// GetStatus returns run counts, the newest and oldest run, and counts per outcome.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:   string(hs.backend),
		Connected: hs.db != nil,
		Outcomes:  make(map[schema.FetchOutcome]int),
	}
	if hs.db == nil {
		return status, nil
	}

	quotedTableName := quoteTableName(fetchRunsTable, hs.backend)
	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}
	if status.TotalRuns == 0 {
		return status, nil
	}

	last := storedTime{backend: hs.backend}
	row := hs.db.QueryRow(fmt.Sprintf("SELECT run_id, started_at FROM %s ORDER BY run_id DESC LIMIT 1", quotedTableName))
	if err := row.Scan(&status.LastRunID, last.target()); err != nil {
		return status, fmt.Errorf("failed to get last run info: %w", err)
	}
	lastTime, err := last.value()
	if err != nil {
		return status, err
	}
	status.LastRunTime = lastTime

	oldest := storedTime{backend: hs.backend}
	row = hs.db.QueryRow(fmt.Sprintf("SELECT started_at FROM %s ORDER BY run_id ASC LIMIT 1", quotedTableName))
	if err := row.Scan(oldest.target()); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}
	oldestTime, err := oldest.value()
	if err != nil {
		return status, err
	}
	status.OldestRunTime = oldestTime

	rows, err := hs.db.Query(fmt.Sprintf("SELECT outcome, COUNT(*) FROM %s GROUP BY outcome", quotedTableName))
	if err != nil {
		return status, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return status, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		status.Outcomes[schema.FetchOutcome(outcome)] = count
	}
	if err := rows.Err(); err != nil {
		return status, fmt.Errorf("error iterating outcome counts: %w", err)
	}

	return status, nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}
