package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/naveenvino/breezepython/internal/api/handlers"
	"github.com/naveenvino/breezepython/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(backtestHandler *handlers.BacktestHandler, dataHandler *handlers.DataHandler, optionsHandler *handlers.OptionsHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Backtest endpoints
	api.HandleFunc("/backtest/run", backtestHandler.RunBacktest).Methods("POST")
	api.HandleFunc("/backtest/runs", backtestHandler.ListRuns).Methods("GET")
	api.HandleFunc("/backtest/runs/{id}", backtestHandler.GetRun).Methods("GET")
	api.HandleFunc("/backtest/runs/{id}/trades", backtestHandler.GetTrades).Methods("GET")
	api.HandleFunc("/backtest/runs/{id}/daily", backtestHandler.GetDailyResults).Methods("GET")

	// Data endpoints
	api.HandleFunc("/data/collect", dataHandler.Collect).Methods("POST")

	// Option data endpoints
	api.HandleFunc("/options/chain", optionsHandler.GetChain).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "breezepython-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
