// Package cmd defines the command-line interface for folio.
package cmd

import (
	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(eggsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Add the eggs subcommands to the parent eggs command
	eggsCmd.AddCommand(eggsPlayCmd)
	eggsCmd.AddCommand(eggsSimulateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("identity", contract.DefaultIdentity, "GitHub username whose stats are shown")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("github-token", "", "GitHub API token (prefer FOLIO_GITHUB_TOKEN)")
	rootCmd.PersistentFlags().String("github-api-url", contract.DefaultGitHubAPIURL, "GitHub REST API root")
	rootCmd.PersistentFlags().String("contributions-url", contract.DefaultContributionsURL, "Contribution calendar feed root")
	rootCmd.PersistentFlags().String("timeout", contract.DefaultRequestTimeout.String(), "Per-request timeout for upstream calls")
	rootCmd.PersistentFlags().String("freshness", contract.DefaultFreshness.String(), "How long cached stats are served without refreshing")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Fetch history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for fetch history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of statsCmd to Viper
	statsCmd.Flags().Bool("refresh", false, "Bypass a fresh cache entry and query GitHub")
	if err := viper.BindPFlags(statsCmd.Flags()); err != nil {
		contract.LogFatal("Error binding stats flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("addr", contract.DefaultServeAddr, "Address the HTTP API listens on")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all persistent flags of eggsCmd to Viper
	eggsCmd.PersistentFlags().String("gesture-window", contract.DefaultGestureWindow.String(), "Longest gap between counted gesture activations")
	if err := viper.BindPFlags(eggsCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding eggs flags", err)
	}

	// The simulate script is not part of the shared config
	eggsSimulateCmd.Flags().String("input", "", "Input script: letters are keystrokes, '@' taps the logo, '~' resets the buffer")

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
