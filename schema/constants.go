package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string

	// FetchOutcome represents how a stats request was ultimately served.
	FetchOutcome string
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All cache backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All fetch outcomes recorded in the history store.
const (
	LiveOutcome   FetchOutcome = "live"   // freshly aggregated from upstream
	CachedOutcome FetchOutcome = "cached" // served from a fresh cache record
	StaleOutcome  FetchOutcome = "stale"  // served from an expired record after a failed refresh
	FailedOutcome FetchOutcome = "failed" // refresh failed and nothing was cached
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// AllFetchOutcomes lists every outcome in display order.
var AllFetchOutcomes = []FetchOutcome{LiveOutcome, CachedOutcome, StaleOutcome, FailedOutcome}
