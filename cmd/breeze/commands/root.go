package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "breeze",
	Short: "Weekly index options backtesting engine",
	Long: `Breeze CLI

Backtests eight weekly NIFTY option-selling signals over stored hourly
index bars and option quotes.

Usage:
  go run ./cmd/breeze [command]

Examples:
  go run ./cmd/breeze backtest run --from 2025-01-01 --to 2025-06-30
  go run ./cmd/breeze collect --from 2025-01-01 --to 2025-06-30
  go run ./cmd/breeze api
  go run ./cmd/breeze scheduler start`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
