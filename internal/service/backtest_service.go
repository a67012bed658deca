// Package service coordinates backtest execution: feed loading, engine runs,
// sweep orchestration, persistence, and archiving.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"makersim/internal/backtest"
	"makersim/internal/domain"
	"makersim/internal/feed"
)

// BacktestService runs backtests end to end. The stores, board, and archiver
// are optional; a nil dependency simply skips that step, so the service works
// identically in a bare CLI run and in a fully wired server deployment.
type BacktestService struct {
	loader   *feed.Loader
	engine   *backtest.Engine
	sweeper  *backtest.Sweeper
	runs     domain.RunStore
	trades   domain.TradeStore
	archiver domain.Archiver
	logger   *slog.Logger

	permuteSeed int64
}

// NewBacktestService creates a BacktestService. Pass nil for runs, trades, or
// archiver to disable persistence and archiving.
func NewBacktestService(
	loader *feed.Loader,
	engine *backtest.Engine,
	sweeper *backtest.Sweeper,
	runs domain.RunStore,
	trades domain.TradeStore,
	archiver domain.Archiver,
	permuteSeed int64,
	logger *slog.Logger,
) *BacktestService {
	return &BacktestService{
		loader:      loader,
		engine:      engine,
		sweeper:     sweeper,
		runs:        runs,
		trades:      trades,
		archiver:    archiver,
		permuteSeed: permuteSeed,
		logger:      logger.With(slog.String("component", "backtest_service")),
	}
}

// ExecuteRun loads the feed named by params.DataSource, replays it through
// the engine, and persists plus archives the result where those dependencies
// are wired. Persistence failures after a successful run are returned, but
// the result is returned alongside so callers still see the outcome.
func (s *BacktestService) ExecuteRun(ctx context.Context, params domain.RunParams) (*domain.Result, error) {
	ticks := s.loader.LoadCSV(params.DataSource)
	if params.PermutePrices {
		ticks = feed.PermutePrices(ticks, s.permuteSeed)
	}

	result, err := s.engine.Run(ctx, params, ticks)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// ExecuteSweep loads the feed once and sweeps the fixed-spread strategy over
// the configured range. Individual sweep runs are not persisted; the
// aggregate result carries everything needed to rerun the best point.
func (s *BacktestService) ExecuteSweep(ctx context.Context, params backtest.SweepParams) (*domain.SweepResult, error) {
	ticks := s.loader.LoadCSV(params.DataSource)
	return s.sweeper.Run(ctx, params, ticks)
}

// persist writes the run header and trade log to the stores and ships the
// full bundle to blob storage. All three steps are independent; the first
// failure is returned after the remaining steps are skipped.
func (s *BacktestService) persist(ctx context.Context, result *domain.Result) error {
	if s.runs != nil {
		header := domain.RunSummary{
			RunID:      result.RunID,
			Params:     result.Params,
			Summary:    result.Summary,
			StartedAt:  result.StartedAt,
			FinishedAt: result.FinishedAt,
		}
		if err := s.runs.Insert(ctx, header); err != nil {
			return fmt.Errorf("service: persist run: %w", err)
		}
	}

	if s.trades != nil {
		if err := s.trades.InsertBatch(ctx, result.RunID, result.Trades); err != nil {
			return fmt.Errorf("service: persist trades: %w", err)
		}
	}

	if s.archiver != nil {
		path, err := s.archiver.ArchiveResult(ctx, *result)
		if err != nil {
			return fmt.Errorf("service: archive result: %w", err)
		}
		s.logger.Info("result bundle archived",
			slog.String("run_id", result.RunID),
			slog.String("path", path),
		)
	}

	return nil
}

// GetRun returns a persisted run header with its trade log.
func (s *BacktestService) GetRun(ctx context.Context, runID string, opts domain.ListOpts) (domain.RunSummary, []domain.TradeRecord, error) {
	if s.runs == nil {
		return domain.RunSummary{}, nil, errors.New("service: run store not configured")
	}

	header, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return domain.RunSummary{}, nil, err
	}

	var trades []domain.TradeRecord
	if s.trades != nil {
		trades, err = s.trades.ListByRun(ctx, runID, opts)
		if err != nil {
			return domain.RunSummary{}, nil, err
		}
	}
	return header, trades, nil
}

// GetRunHeader returns a persisted run header without its trade log.
func (s *BacktestService) GetRunHeader(ctx context.Context, runID string) (domain.RunSummary, error) {
	if s.runs == nil {
		return domain.RunSummary{}, errors.New("service: run store not configured")
	}
	return s.runs.GetByID(ctx, runID)
}

// ListRuns returns persisted run headers, newest first.
func (s *BacktestService) ListRuns(ctx context.Context, opts domain.ListOpts) ([]domain.RunSummary, int64, error) {
	if s.runs == nil {
		return nil, 0, errors.New("service: run store not configured")
	}

	runs, err := s.runs.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.runs.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
