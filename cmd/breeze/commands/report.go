package commands

import (
	"fmt"

	"github.com/naveenvino/breezepython/internal/contracts"
)

// printReport renders a run's metrics and trade log to stdout
func printReport(result *contracts.BacktestResult, trades []*contracts.Trade) {
	fmt.Println("=== Results ===")
	fmt.Printf("Run ID:          %s\n", result.RunID)
	fmt.Printf("Status:          %s\n", result.Status)
	if result.ErrorMessage != "" {
		fmt.Printf("Error:           %s\n", result.ErrorMessage)
	}
	fmt.Printf("Initial capital: %s\n", result.InitialCapital.StringFixed(2))
	fmt.Printf("Final capital:   %s\n", result.FinalCapital.StringFixed(2))
	fmt.Printf("Total P&L:       %s (%.2f%%)\n", result.TotalPnL.StringFixed(2), result.TotalReturnPercent)
	fmt.Printf("Max drawdown:    %s (%.2f%%)\n", result.MaxDrawdown.StringFixed(2), result.MaxDrawdownPercent)
	fmt.Printf("Trades:          %d (%d won, %d lost, %.1f%% win rate)\n",
		result.TotalTrades, result.WinningTrades, result.LosingTrades, result.WinRate)

	if len(trades) == 0 {
		return
	}

	fmt.Println("\n=== Trades ===")
	fmt.Printf("%-4s %-12s %-17s %-17s %-8s %-15s %12s\n",
		"SIG", "WEEK", "ENTRY", "EXIT", "OUTCOME", "REASON", "P&L")

	for _, trade := range trades {
		fmt.Printf("%-4s %-12s %-17s %-17s %-8s %-15s %12s\n",
			trade.SignalType,
			trade.WeekStartDate.Format("2006-01-02"),
			trade.EntryTime.Format("2006-01-02 15:04"),
			trade.ExitTime.Format("2006-01-02 15:04"),
			trade.Outcome,
			trade.ExitReason,
			trade.TotalPnL.StringFixed(2))

		for _, pos := range trade.Positions {
			fmt.Printf("     %-6s %-3s %6d @ %-10s exit %-10s qty %6d net %12s\n",
				pos.PositionType, pos.OptionType, pos.StrikePrice,
				pos.EntryPrice.StringFixed(2), pos.ExitPrice.StringFixed(2),
				pos.Quantity, pos.NetPnL.StringFixed(2))
		}
	}
}
