// Package cmd defines the command-line interface for polycache.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("cache-root", contract.DefaultCacheRoot, "Directory holding parquet partitions and the metadata index")
	rootCmd.PersistentFlags().String("api-key", "", "Polygon.io API key (prefer POLYCACHE_API_KEY)")
	rootCmd.PersistentFlags().String("base-url", contract.DefaultBaseURL, "Remote API base URL")
	rootCmd.PersistentFlags().IntP("workers", "w", contract.DefaultWorkers, "Concurrent batch writers per fetch")
	rootCmd.PersistentFlags().Int("page-limit", contract.DefaultPageLimit, "Page size requested from the remote API")
	rootCmd.PersistentFlags().Float64("rate-limit", contract.DefaultRatePerSecond, "Maximum API requests per second")
	rootCmd.PersistentFlags().String("fresh-for", contract.DefaultFreshFor.String(), "Window during which a cached partition answers without refetching")
	rootCmd.PersistentFlags().String("metadata-backend", string(schema.FileBackend), "Metadata store backend: file, sqlite, mysql, or postgresql")
	rootCmd.PersistentFlags().String("metadata-db-connect", "", "Connection string for mysql/postgresql metadata backends (prefer env var)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is ./.polycache.yaml or $HOME/.polycache.yaml)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}
}
