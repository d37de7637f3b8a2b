package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/core"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/cache"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/polygon"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/query"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
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

// deps holds the shared tool dependencies built during setup.
var deps *core.Deps

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "polycache",
	Short:              "Cache paginated market data as queryable parquet partitions.",
	Long:               `Polycache fetches paginated Polygon.io data, persists it as partitioned parquet files, and serves SQL over the cache to AI agents and the command line.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Set config file name and paths
		viper.SetConfigName(".polycache") // Name of config file (without extension)
		viper.SetConfigType("yaml")       // We'll use YAML format
		viper.AddConfigPath(".")          // Look in the current directory
		viper.AddConfigPath("$HOME")      // Look in the home directory
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("POLYCACHE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("cache-root", contract.DefaultCacheRoot)
	viper.SetDefault("base-url", contract.DefaultBaseURL)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("page-limit", contract.DefaultPageLimit)
	viper.SetDefault("rate-limit", contract.DefaultRatePerSecond)
	viper.SetDefault("fresh-for", contract.DefaultFreshFor.String())
	viper.SetDefault("metadata-backend", schema.FileBackend)
	viper.SetDefault("metadata-db-connect", "")
}

// sharedSetup unmarshals config, runs validation, and builds the shared
// dependencies used by every command.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and populate the global 'cfg' from 'input'.
	if err := contract.ProcessConfig(cfg, input); err != nil {
		return err
	}

	// 4. Initialize the metadata store and shared dependencies.
	store, err := cache.NewMetadataStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize metadata store: %w", err)
	}

	client := polygon.NewClient(cfg)
	deps = &core.Deps{
		Cfg:     cfg,
		Manager: cache.NewManager(cfg, store),
		Gateway: query.NewGateway(cfg.CacheRoot),
		Pages:   client.PageFunc,
	}
	return nil
}

// configOnlySetup validates configuration without opening the metadata
// store. Used by commands that manage the store itself.
func configOnlySetup() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return contract.ProcessConfig(cfg, input)
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
