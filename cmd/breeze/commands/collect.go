package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect market data from the vendor",
	Long: `Fetches hourly index bars and option quotes into the local store.

Fetches are idempotent upserts, so repeating a range is safe.

Example:
  go run ./cmd/breeze collect --from 2025-01-01 --to 2025-06-30
  go run ./cmd/breeze collect --from 2025-01-01 --to 2025-06-30 --index-only`,
	RunE: runCollect,
}

var (
	collectFrom      string
	collectTo        string
	collectIndexOnly bool
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectFrom, "from", "", "start date (YYYY-MM-DD, required)")
	collectCmd.Flags().StringVar(&collectTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	collectCmd.Flags().BoolVar(&collectIndexOnly, "index-only", false, "skip option quotes")
	collectCmd.MarkFlagRequired("from")
}

func runCollect(cmd *cobra.Command, args []string) error {
	from, err := time.Parse("2006-01-02", collectFrom)
	if err != nil {
		return fmt.Errorf("invalid --from date: %w", err)
	}

	to := time.Now()
	if collectTo != "" {
		to, err = time.Parse("2006-01-02", collectTo)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.vendor.ValidateSession(cmd.Context()); err != nil {
		return fmt.Errorf("vendor session invalid: %w", err)
	}

	fmt.Printf("Collecting %s to %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))

	if collectIndexOnly {
		if err := application.collector.EnsureIndexData(cmd.Context(), from, to); err != nil {
			return err
		}
	} else {
		if err := application.collector.EnsureBacktestData(cmd.Context(), from, to); err != nil {
			return err
		}
	}

	fmt.Println("Collection complete")
	return nil
}
