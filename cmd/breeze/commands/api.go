package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/naveenvino/breezepython/internal/api"
	"github.com/naveenvino/breezepython/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Starts the HTTP API.

Endpoints:
  GET  /health                        - Health check
  POST /api/backtest/run              - Start a backtest run
  GET  /api/backtest/runs             - List recent runs
  GET  /api/backtest/runs/{id}        - Run metrics
  GET  /api/backtest/runs/{id}/trades - Trade log
  GET  /api/backtest/runs/{id}/daily  - Daily capital snapshots
  POST /api/data/collect              - Trigger data collection
  GET  /api/options/chain             - Option chain snapshot

Example:
  go run ./cmd/breeze api
  go run ./cmd/breeze api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "listen port (default: PORT env)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if apiPort != "" {
		application.cfg.Port = apiPort
	}

	log := application.logger

	backtestHandler := handlers.NewBacktestHandler(application.service, application.runs, log)
	dataHandler := handlers.NewDataHandler(application.collector, log)
	optionsHandler := handlers.NewOptionsHandler(application.pricer, application.bars, log)

	router := api.NewRouter(backtestHandler, dataHandler, optionsHandler, log)
	server := api.New(application.cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", application.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
