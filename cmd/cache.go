package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/cache"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/response"
)

// cacheCmd groups cache maintenance subcommands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the parquet cache",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// cacheListCmd prints every cached partition.
var cacheListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List cached partitions with row counts and sizes",
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		defer func() { _ = deps.Manager.Store().Close() }()

		entries, err := deps.Manager.Entries()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stdout, "Cache is empty.")
			return nil
		}
		return response.WriteEntriesTable(os.Stdout, entries)
	},
}

// cacheStatusCmd prints aggregate cache statistics.
var cacheStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show aggregate cache statistics",
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		defer func() { _ = deps.Manager.Store().Close() }()

		status, err := deps.Manager.Status()
		if err != nil {
			return err
		}
		return response.WriteStatus(os.Stdout, status)
	},
}

// cacheInfoCmd prints the partitions and glob pattern for one tool.
var cacheInfoCmd = &cobra.Command{
	Use:     "info <tool-name>",
	Short:   "Show cached partitions and the glob pattern for a tool",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		defer func() { _ = deps.Manager.Store().Close() }()

		info, err := deps.Manager.PartitionInfo(args[0])
		if err != nil {
			return err
		}
		jsonData, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(jsonData))
		return nil
	},
}

// cacheClearCmd removes cached partitions.
var cacheClearCmd = &cobra.Command{
	Use:   "clear [tool-name]",
	Short: "Remove cached partitions for a tool, or the entire cache",
	Long: `Delete cached parquet files and their metadata entries. With a tool name,
only that tool's partitions are removed; without one the whole cache is cleared.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		defer func() { _ = deps.Manager.Store().Close() }()

		tool := ""
		if len(args) == 1 {
			tool = args[0]
		}
		n, err := deps.Manager.Clear(tool)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Removed %d partitions\n", n)
		return nil
	},
}

// cachePruneCmd removes partitions older than a cutoff.
var cachePruneCmd = &cobra.Command{
	Use:   "prune <max-age>",
	Short: "Remove partitions not updated within the given duration",
	Long: `Remove partitions whose last update is older than the given duration,
for example '720h' for thirty days. The cache never evicts on its own;
this command is the only way data ages out.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		defer func() { _ = deps.Manager.Store().Close() }()

		maxAge, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("invalid max-age %q: %w", args[0], err)
		}
		n, err := deps.Manager.Prune(maxAge)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Pruned %d partitions\n", n)
		return nil
	},
}

// cacheMigrateCmd runs metadata schema migrations for database backends.
var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run metadata schema migrations (database backends only)",
	Long: `Migrate the metadata database schema. Without arguments, migrates to the
latest version. With a version number, migrates up or down to that version;
version 0 rolls back all migrations.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Migration needs validated config but must not open the store,
		// which would race the migration itself.
		return configOnlySetup()
	},
	RunE: func(_ *cobra.Command, args []string) error {
		targetVersion := -1
		if len(args) == 1 {
			if _, err := fmt.Sscanf(args[0], "%d", &targetVersion); err != nil {
				return fmt.Errorf("invalid migration version %q: %w", args[0], err)
			}
		}
		return cache.Migrate(cfg.MetadataBackend, cfg.MetadataDBConnect, cfg.CacheRoot, targetVersion)
	},
}
