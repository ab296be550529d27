package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/folio/core"
	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/internal/github"
	"github.com/huangsam/folio/internal/iocache"
	"github.com/huangsam/folio/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// logger is the operational logger. It stays a no-op until setupLogger runs.
var logger = zap.NewNop()

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "folio",
	Short:              "Portfolio backend: cached GitHub stats and a hidden easter-egg saga.",
	Long:               `Folio serves GitHub profile statistics that survive rate limits and outages, plus a five-chapter easter-egg chain.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return setupLogger(viper.GetBool("verbose"))
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// setupLogger builds the production zap logger, at debug level when verbose.
func setupLogger(verbose bool) error {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = built
	return nil
}

// initConfig reads in .env, config file and ENV variables if set.
func initConfig() {
	// A missing .env file is fine
	_ = godotenv.Load()

	// Set environment variable prefix
	viper.SetEnvPrefix("FOLIO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("identity", contract.DefaultIdentity)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("timeout", contract.DefaultRequestTimeout.String())
	viper.SetDefault("freshness", contract.DefaultFreshness.String())
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("history-backend", "")
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("color", "yes")
	viper.SetDefault("addr", contract.DefaultServeAddr)
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".folio") // Name of config file (without extension)
		viper.SetConfigType("yaml")   // We'll use YAML format
		viper.AddConfigPath(".")      // Look in the current directory
		viper.AddConfigPath("$HOME")  // Look in the home directory
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// configSetup unmarshals config and runs validation without opening any store.
func configSetup(_ *cobra.Command, args []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.IdentityArg = ""
	if len(args) == 1 {
		input.IdentityArg = args[0]
	}

	// 4. Run all validation and complex parsing.
	return contract.ProcessAndValidate(cfg, input)
}

// sharedSetup runs configSetup and opens the stats cache and history stores.
func sharedSetup(cmd *cobra.Command, args []string) error {
	if err := configSetup(cmd, args); err != nil {
		return err
	}

	// 5. Initialize persistence layer with validated config
	if err := iocache.InitCaching(cfg.CacheBackend, cfg.CacheDBConnect, cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// newStatsCache wires the GitHub provider and the opened stores into a StatsCache.
func newStatsCache(conf *contract.Config, mgr contract.CacheManager) *core.StatsCache {
	provider := github.New(
		github.WithBaseURL(conf.GitHubAPIURL),
		github.WithContributionsURL(conf.ContributionsURL),
		github.WithToken(conf.GitHubToken),
		github.WithTimeout(conf.RequestTimeout),
	)

	opts := []core.Option{
		core.WithLogger(logger),
		core.WithFreshness(conf.Freshness),
		core.WithRequestTimeout(conf.RequestTimeout),
	}
	if history := mgr.GetHistoryStore(); history != nil {
		opts = append(opts, core.WithHistory(history))
	}
	return core.NewStatsCache(mgr.GetStatsStore(), provider, opts...)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
