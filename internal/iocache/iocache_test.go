package iocache

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/folio/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetManager restores the process-wide manager between tests.
func resetManager(t *testing.T) {
	t.Helper()
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &CacheStoreManager{}
	t.Cleanup(func() {
		CloseCaching()
		initOnce = sync.Once{}
		closeOnce = sync.Once{}
		Manager = &CacheStoreManager{}
	})
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		wantErr bool
	}{
		{"simple", "folio_stats_cache", false},
		{"leading underscore", "_cache", false},
		{"digits", "cache2", false},
		{"empty", "", true},
		{"leading digit", "2cache", true},
		{"injection", "cache; DROP TABLE users", true},
		{"dash", "stats-cache", true},
		{"quote", `stats"cache`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.table)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, `"stats"`, quoteTableName("stats", schema.SQLiteBackend))
	assert.Equal(t, "`stats`", quoteTableName("stats", schema.MySQLBackend))
	assert.Equal(t, `"stats"`, quoteTableName("stats", schema.PostgreSQLBackend))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(schema.SQLiteBackend, 1))
	assert.Equal(t, "?, ?, ?", placeholders(schema.MySQLBackend, 3))
	assert.Equal(t, "$1, $2, $3, $4", placeholders(schema.PostgreSQLBackend, 4))
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		want    string
		wantErr bool
	}{
		{schema.SQLiteBackend, "sqlite", false},
		{schema.MySQLBackend, "mysql", false},
		{schema.PostgreSQLBackend, "pgx", false},
		{schema.NoneBackend, "", true},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			got, err := driverFor(tt.backend)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStoredTime(t *testing.T) {
	ts := time.Date(2025, 2, 3, 4, 5, 6, 789, time.UTC)

	sqliteValue := formatTime(ts, schema.SQLiteBackend)
	text, ok := sqliteValue.(string)
	require.True(t, ok)
	st := storedTime{backend: schema.SQLiteBackend, text: text}
	got, err := st.value()
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	native := formatTime(ts.In(time.FixedZone("X", 3600)), schema.PostgreSQLBackend)
	assert.Equal(t, time.UTC, native.(time.Time).Location())

	bad := storedTime{backend: schema.SQLiteBackend, text: "yesterday"}
	_, err = bad.value()
	assert.Error(t, err)
}

func TestInitCaching(t *testing.T) {
	t.Run("sqlite stores", func(t *testing.T) {
		resetManager(t)
		dir := t.TempDir()

		err := InitCaching(schema.SQLiteBackend, filepath.Join(dir, "cache.db"), schema.SQLiteBackend, filepath.Join(dir, "history.db"))
		require.NoError(t, err)
		assert.NotNil(t, Manager.GetStatsStore())
		assert.NotNil(t, Manager.GetHistoryStore())
		assert.FileExists(t, filepath.Join(dir, "cache.db"))
		assert.FileExists(t, filepath.Join(dir, "history.db"))
	})

	t.Run("idempotent", func(t *testing.T) {
		resetManager(t)
		path := filepath.Join(t.TempDir(), "cache.db")

		require.NoError(t, InitCaching(schema.SQLiteBackend, path, "", ""))
		first := Manager.GetStatsStore()
		require.NoError(t, InitCaching(schema.NoneBackend, "", schema.NoneBackend, ""))
		assert.Same(t, first, Manager.GetStatsStore())
		assert.Nil(t, Manager.GetHistoryStore())

		CloseCaching()
		CloseCaching()
	})

	t.Run("none backends", func(t *testing.T) {
		resetManager(t)
		require.NoError(t, InitCaching(schema.NoneBackend, "", schema.NoneBackend, ""))

		status, err := Manager.GetStatsStore().GetStatus()
		require.NoError(t, err)
		assert.False(t, status.Connected)
		assert.Equal(t, "none", status.Backend)
	})

	t.Run("unsupported backend", func(t *testing.T) {
		resetManager(t)
		err := InitCaching("oracle", "", "", "")
		assert.Error(t, err)
		assert.Nil(t, Manager.GetStatsStore())
	})

	t.Run("history failure closes cache", func(t *testing.T) {
		resetManager(t)
		err := InitCaching(schema.SQLiteBackend, ":memory:", "oracle", "")
		assert.ErrorContains(t, err, "history store")
		assert.Nil(t, Manager.GetStatsStore())
	})
}

func TestCacheStoreManagerConcurrency(t *testing.T) {
	resetManager(t)
	require.NoError(t, InitCaching(schema.SQLiteBackend, ":memory:", schema.SQLiteBackend, ":memory:"))

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			assert.NotNil(t, Manager.GetStatsStore())
			assert.NotNil(t, Manager.GetHistoryStore())
		})
	}
	wg.Wait()
}
