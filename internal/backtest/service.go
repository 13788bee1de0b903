package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/naveenvino/breezepython/internal/contracts"
	"github.com/naveenvino/breezepython/pkg/logger"
)

// RunStore persists run lifecycle and results
type RunStore interface {
	CreateRun(ctx context.Context, params contracts.BacktestParameters) (string, error)
	UpdateStatus(ctx context.Context, id string, status contracts.RunStatus, errorMessage string) error
	SaveResult(ctx context.Context, id string, result *contracts.BacktestResult) error
}

// DataEnsurer tops up locally stored market data before a run
type DataEnsurer interface {
	EnsureBacktestData(ctx context.Context, from, to time.Time) error
}

// Service drives a persisted backtest run: record lifecycle, data
// availability, simulation, result storage.
type Service struct {
	engine  *Engine
	store   RunStore
	ensurer DataEnsurer
	logger  *logger.Logger
}

// NewService creates a backtest service. ensurer may be nil when the
// store is known to be pre-populated.
func NewService(engine *Engine, store RunStore, ensurer DataEnsurer, log *logger.Logger) *Service {
	return &Service{
		engine:  engine,
		store:   store,
		ensurer: ensurer,
		logger:  log,
	}
}

// Execute runs a backtest end to end and returns the run id. The run
// record reflects progress: PENDING on creation, RUNNING during the
// simulation, COMPLETED or FAILED afterwards.
func (s *Service) Execute(ctx context.Context, params contracts.BacktestParameters) (string, error) {
	if err := params.Validate(); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}

	id, err := s.store.CreateRun(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	if err := s.run(ctx, id, params); err != nil {
		s.markFailed(ctx, id, err)
		return id, err
	}

	return id, nil
}

// Start creates the run record and executes the simulation in the
// background. The caller polls the run record for progress.
func (s *Service) Start(ctx context.Context, params contracts.BacktestParameters) (string, error) {
	if err := params.Validate(); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}

	id, err := s.store.CreateRun(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	go func() {
		runCtx := context.Background()
		if err := s.run(runCtx, id, params); err != nil {
			s.logger.WithError(err).WithField("run_id", id).Error("Backtest run failed")
			s.markFailed(runCtx, id, err)
		}
	}()

	return id, nil
}

func (s *Service) markFailed(ctx context.Context, id string, cause error) {
	if err := s.store.UpdateStatus(ctx, id, contracts.RunFailed, cause.Error()); err != nil {
		s.logger.WithError(err).Error("Failed to mark run as failed")
	}
}

func (s *Service) run(ctx context.Context, id string, params contracts.BacktestParameters) error {
	if err := s.store.UpdateStatus(ctx, id, contracts.RunRunning, ""); err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}

	if s.ensurer != nil {
		if err := s.ensurer.EnsureBacktestData(ctx, params.FromDate, params.ToDate); err != nil {
			return fmt.Errorf("ensure data: %w", err)
		}
	}

	result, err := s.engine.Run(ctx, params)
	if err != nil {
		return err
	}
	result.RunID = id

	if err := s.store.SaveResult(ctx, id, result); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	if err := s.store.UpdateStatus(ctx, id, contracts.RunCompleted, ""); err != nil {
		return fmt.Errorf("mark run completed: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id": id,
		"trades": result.TotalTrades,
		"pnl":    result.TotalPnL,
	}).Info("Backtest run persisted")

	return nil
}
