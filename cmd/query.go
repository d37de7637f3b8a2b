package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/response"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// queryCmd runs SQL over the cache from the command line.
var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Run read-only SQL over cached parquet data",
	Long: `Execute a SELECT statement over cached partitions. Reference data with
read_parquet('<glob>'); globs are printed by 'polycache cache info <tool>'.

By default results render as a table. Use --output csv or --output json for
machine-readable output.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer func() { _ = deps.Manager.Store().Close() }()

		sqlText := strings.TrimSpace(args[0])
		output := viper.GetString("output")

		switch output {
		case "csv", "json":
			out, err := deps.Gateway.Query(sqlText, schema.OutputFormat(output))
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, out)
			return nil
		default:
			result, err := deps.Gateway.Run(sqlText)
			if err != nil {
				return err
			}
			return response.WriteQueryTable(os.Stdout, result)
		}
	},
}

func init() {
	queryCmd.Flags().StringP("output", "o", "table", "Output format: table, csv, or json")
	if err := viper.BindPFlag("output", queryCmd.Flags().Lookup("output")); err != nil {
		contract.LogFatal("Error binding query flags", err)
	}
}
