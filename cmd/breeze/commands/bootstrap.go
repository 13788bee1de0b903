package commands

import (
	"fmt"

	"github.com/naveenvino/breezepython/internal/backtest"
	"github.com/naveenvino/breezepython/internal/data"
	"github.com/naveenvino/breezepython/internal/external/breeze"
	"github.com/naveenvino/breezepython/internal/options"
	"github.com/naveenvino/breezepython/pkg/config"
	"github.com/naveenvino/breezepython/pkg/database"
	"github.com/naveenvino/breezepython/pkg/httputil"
	"github.com/naveenvino/breezepython/pkg/logger"
	"github.com/naveenvino/breezepython/pkg/redis"
)

// app bundles the shared wiring every command needs
type app struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *database.DB
	redis  *redis.Client

	bars      *data.BarRepository
	quotes    *data.QuoteRepository
	runs      *data.RunRepository
	vendor    *breeze.Client
	collector *data.Collector
	pricer    *options.PricingService
	service   *backtest.Service
}

// newApp loads config and wires the full service graph
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	httpClient := httputil.New(log)
	vendor := breeze.NewClient(cfg.Breeze, httpClient, log)

	bars := data.NewBarRepository(db.Pool)
	quotes := data.NewQuoteRepository(db.Pool)
	runs := data.NewRunRepository(db.Pool)

	collector := data.NewCollector(vendor, bars, quotes, log)

	priceCache := redis.NewCache(redisClient, "breeze")
	pricer := options.NewPricingService(quotes, bars, priceCache, log)

	engine := backtest.NewEngine(bars, pricer, log)
	service := backtest.NewService(engine, runs, collector, log)

	return &app{
		cfg:       cfg,
		logger:    log,
		db:        db,
		redis:     redisClient,
		bars:      bars,
		quotes:    quotes,
		runs:      runs,
		vendor:    vendor,
		collector: collector,
		pricer:    pricer,
		service:   service,
	}, nil
}

// Close releases connections
func (a *app) Close() {
	a.redis.Close()
	a.db.Close()
}
