package contract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/huangsam/folio/schema"
)

// Default values for configuration.
const (
	DefaultIdentity          = "Jairedddy"
	DefaultFreshness         = 6 * time.Hour
	DefaultRequestTimeout    = 10 * time.Second
	DefaultGitHubAPIURL      = "https://api.github.com"
	DefaultContributionsURL  = "https://github-contributions-api.jogruber.de/v4"
	DefaultServeAddr         = ":8080"
	DefaultGestureWindow     = 1500 * time.Millisecond
	MaxRequestTimeout        = 2 * time.Minute
	CacheKeyPrefix           = "github-stats::"
	CacheRecordSchemaVersion = 1
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for folio.
// This struct remains the "final, validated" config.
type Config struct {
	Identity   string
	Refresh    bool
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	GitHubToken      string // Please use env var as this is plaintext
	GitHubAPIURL     string
	ContributionsURL string
	RequestTimeout   time.Duration
	Freshness        time.Duration

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	ServeAddr     string
	GestureWindow time.Duration
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	IdentityArg string

	// --- Fields from rootCmd.PersistentFlags() ---
	Identity         string `mapstructure:"identity"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	GitHubToken      string `mapstructure:"github-token"`
	GitHubAPIURL     string `mapstructure:"github-api-url"`
	ContributionsURL string `mapstructure:"contributions-url"`
	Timeout          string `mapstructure:"timeout"`
	Freshness        string `mapstructure:"freshness"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Fields from statsCmd.Flags() ---
	Refresh bool `mapstructure:"refresh"`

	// --- Fields from serveCmd.Flags() ---
	Addr string `mapstructure:"addr"`

	// --- Fields from eggsCmd.PersistentFlags() ---
	GestureWindow string `mapstructure:"gesture-window"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// CacheKey returns the persistent store key for an identity.
func CacheKey(identity string) string {
	return CacheKeyPrefix + identity
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processDurations(cfg, input); err != nil {
		return err
	}
	if err := processEndpoints(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes identity, output and color settings.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Refresh = input.Refresh
	cfg.GitHubToken = strings.TrimSpace(input.GitHubToken)

	// Positional argument wins over the configured identity
	cfg.Identity = strings.TrimSpace(input.IdentityArg)
	if cfg.Identity == "" {
		cfg.Identity = strings.TrimSpace(input.Identity)
	}
	if cfg.Identity == "" {
		cfg.Identity = DefaultIdentity
	}
	if strings.ContainsAny(cfg.Identity, "/ \t?#") {
		return fmt.Errorf("invalid identity %q. must be a plain GitHub username", cfg.Identity)
	}

	if cfg.Width < 0 {
		return fmt.Errorf("width cannot be negative (received %d)", cfg.Width)
	}

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}
	return nil
}

// processDurations parses timeout, freshness and gesture window settings.
func processDurations(cfg *Config, input *ConfigRawInput) error {
	cfg.RequestTimeout = DefaultRequestTimeout
	if input.Timeout != "" {
		d, err := ParseDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		if d > MaxRequestTimeout {
			return fmt.Errorf("timeout cannot exceed %s (received %s)", MaxRequestTimeout, d)
		}
		cfg.RequestTimeout = d
	}

	cfg.Freshness = DefaultFreshness
	if input.Freshness != "" {
		d, err := ParseDuration(input.Freshness)
		if err != nil {
			return fmt.Errorf("invalid freshness: %w", err)
		}
		cfg.Freshness = d
	}

	cfg.GestureWindow = DefaultGestureWindow
	if input.GestureWindow != "" {
		d, err := ParseDuration(input.GestureWindow)
		if err != nil {
			return fmt.Errorf("invalid gesture window: %w", err)
		}
		cfg.GestureWindow = d
	}
	return nil
}

// processEndpoints validates upstream URLs and the serve address.
func processEndpoints(cfg *Config, input *ConfigRawInput) error {
	apiURL, err := normalizeBaseURL(input.GitHubAPIURL, DefaultGitHubAPIURL)
	if err != nil {
		return fmt.Errorf("invalid github-api-url: %w", err)
	}
	cfg.GitHubAPIURL = apiURL

	contribURL, err := normalizeBaseURL(input.ContributionsURL, DefaultContributionsURL)
	if err != nil {
		return fmt.Errorf("invalid contributions-url: %w", err)
	}
	cfg.ContributionsURL = contribURL

	cfg.ServeAddr = strings.TrimSpace(input.Addr)
	if cfg.ServeAddr == "" {
		cfg.ServeAddr = DefaultServeAddr
	}
	return nil
}

// normalizeBaseURL returns raw without a trailing slash, or fallback when raw is empty.
func normalizeBaseURL(raw, fallback string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("scheme must be http or https (received %q)", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache-db-connect: %w", err)
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("history-db-connect: %w", err)
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if cachePath == historyPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}
