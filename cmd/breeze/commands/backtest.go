package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/naveenvino/breezepython/internal/contracts"
)

// backtestCmd groups the backtest subcommands
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run and inspect backtests",
	Long: `Runs the weekly options strategy over stored market data.

Example:
  go run ./cmd/breeze backtest run --from 2025-01-01 --to 2025-06-30
  go run ./cmd/breeze backtest run --from 2025-01-01 --to 2025-06-30 --signals S1,S7 --no-hedge
  go run ./cmd/breeze backtest list`,
}

var backtestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest",
	RunE:  runBacktest,
}

var backtestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent backtest runs",
	RunE:  listBacktests,
}

var backtestShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a stored backtest run",
	Args:  cobra.ExactArgs(1),
	RunE:  showBacktest,
}

var (
	backtestFrom        string
	backtestTo          string
	backtestCapital     float64
	backtestLotSize     int
	backtestLots        int
	backtestSignals     string
	backtestNoHedge     bool
	backtestHedgeOffset int
	backtestCommission  float64
	backtestSlippage    float64
	backtestListLimit   int
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestListCmd)
	backtestCmd.AddCommand(backtestShowCmd)

	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD, required)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	backtestRunCmd.Flags().Float64Var(&backtestCapital, "capital", 500000, "initial capital")
	backtestRunCmd.Flags().IntVar(&backtestLotSize, "lot-size", 75, "contracts per lot")
	backtestRunCmd.Flags().IntVar(&backtestLots, "lots", 1, "lots per trade")
	backtestRunCmd.Flags().StringVar(&backtestSignals, "signals", "", "comma separated signals to test (default: all)")
	backtestRunCmd.Flags().BoolVar(&backtestNoHedge, "no-hedge", false, "sell naked, without the hedge leg")
	backtestRunCmd.Flags().IntVar(&backtestHedgeOffset, "hedge-offset", 200, "hedge strike distance in points")
	backtestRunCmd.Flags().Float64Var(&backtestCommission, "commission", 40, "commission per lot per side")
	backtestRunCmd.Flags().Float64Var(&backtestSlippage, "slippage", 0.001, "slippage fraction")
	backtestRunCmd.MarkFlagRequired("from")

	backtestListCmd.Flags().IntVar(&backtestListLimit, "limit", 20, "runs to list")
}

func buildParameters() (contracts.BacktestParameters, error) {
	from, err := time.Parse("2006-01-02", backtestFrom)
	if err != nil {
		return contracts.BacktestParameters{}, fmt.Errorf("invalid --from date: %w", err)
	}

	to := time.Now()
	if backtestTo != "" {
		to, err = time.Parse("2006-01-02", backtestTo)
		if err != nil {
			return contracts.BacktestParameters{}, fmt.Errorf("invalid --to date: %w", err)
		}
	}

	params := contracts.DefaultParameters(from, to)
	params.InitialCapital = decimal.NewFromFloat(backtestCapital)
	params.LotSize = backtestLotSize
	params.LotsToTrade = backtestLots
	params.UseHedging = !backtestNoHedge
	params.HedgeOffset = backtestHedgeOffset
	params.CommissionPerLot = decimal.NewFromFloat(backtestCommission)
	params.SlippagePercent = backtestSlippage

	if backtestSignals != "" {
		signals, err := contracts.ParseSignalTypes(strings.Split(backtestSignals, ","))
		if err != nil {
			return contracts.BacktestParameters{}, err
		}
		params.SignalsToTest = signals
	}

	return params, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	params, err := buildParameters()
	if err != nil {
		return err
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	fmt.Println("=== Breeze Backtest ===")
	fmt.Printf("Period:  %s to %s\n",
		params.FromDate.Format("2006-01-02"), params.ToDate.Format("2006-01-02"))
	fmt.Printf("Capital: %s\n", params.InitialCapital.StringFixed(2))
	fmt.Printf("Signals: %s\n\n", joinSignalNames(params.SignalsToTest))

	id, err := application.service.Execute(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	result, err := application.runs.GetRun(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}

	trades, err := application.runs.GetTrades(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}

	printReport(result, trades)
	return nil
}

func listBacktests(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	runs, err := application.runs.ListRuns(cmd.Context(), backtestListLimit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No backtest runs stored")
		return nil
	}

	fmt.Printf("%-38s %-10s %-12s %-12s %s\n", "ID", "STATUS", "FROM", "TO", "CREATED")
	for _, run := range runs {
		fmt.Printf("%-38s %-10s %-12s %-12s %s\n",
			run.ID, run.Status,
			run.FromDate.Format("2006-01-02"), run.ToDate.Format("2006-01-02"),
			run.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func showBacktest(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	id := args[0]

	result, err := application.runs.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}

	trades, err := application.runs.GetTrades(cmd.Context(), id)
	if err != nil {
		return err
	}

	printReport(result, trades)
	return nil
}

func joinSignalNames(types []contracts.SignalType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ",")
}
