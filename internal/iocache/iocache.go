// Package iocache persists stats snapshots and fetch history in SQL databases.
package iocache

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
)

// CacheStoreManager holds the stats cache and the fetch history store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	stats        contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetStatsStore returns the stats CacheStore, or nil when caching is off.
func (mgr *CacheStoreManager) GetStatsStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.stats
}

// GetHistoryStore returns the HistoryStore, or nil when history is off.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName rejects names that cannot be interpolated into SQL safely.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name: %s (must match pattern %s)", name, tableNamePattern)
	}
	return nil
}

// quoteTableName returns the quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

// placeholders returns n bind parameters for the backend, starting at 1.
func placeholders(backend schema.DatabaseBackend, n int) string {
	params := make([]string, n)
	for i := range params {
		if backend == schema.PostgreSQLBackend {
			params[i] = fmt.Sprintf("$%d", i+1)
		} else {
			params[i] = "?"
		}
	}
	return strings.Join(params, ", ")
}

// driverFor maps a backend to its database/sql driver name.
func driverFor(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}
}

// formatTime renders t for storage. SQLite keeps timestamps as RFC 3339 text.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

// storedTime is a scan target for timestamps written by formatTime.
type storedTime struct {
	backend schema.DatabaseBackend
	text    string
	native  time.Time
}

func (st *storedTime) target() any {
	if st.backend == schema.SQLiteBackend {
		return &st.text
	}
	return &st.native
}

func (st *storedTime) value() (time.Time, error) {
	if st.backend != schema.SQLiteBackend {
		return st.native.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, st.text)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", st.text, err)
	}
	return t, nil
}
