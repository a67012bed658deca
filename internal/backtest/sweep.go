package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"makersim/internal/domain"
)

// defaultSweepConcurrency bounds parallel sweep runs when the caller does not.
const defaultSweepConcurrency = 4

// SweepParams configures a fixed-spread parameter sweep: one backtest run per
// spread value in [MinSpreadBps, MaxSpreadBps] stepping by StepBps.
type SweepParams struct {
	DataSource string
	Symbol     string
	OrderSize  float64
	FeeBps     float64

	MinSpreadBps float64
	MaxSpreadBps float64
	StepBps      float64

	// Concurrency bounds how many runs execute in parallel. Zero or negative
	// selects a small default.
	Concurrency int
}

// Validate reports the first problem with the sweep configuration.
func (p SweepParams) Validate() error {
	if p.StepBps <= 0 {
		return fmt.Errorf("sweep: step must be positive, got %g", p.StepBps)
	}
	if p.MinSpreadBps > p.MaxSpreadBps {
		return fmt.Errorf("sweep: min spread %g exceeds max spread %g", p.MinSpreadBps, p.MaxSpreadBps)
	}
	if p.OrderSize <= 0 {
		return fmt.Errorf("sweep: order size must be positive, got %g", p.OrderSize)
	}
	return nil
}

// spreads expands the range into the concrete spread values to sweep.
func (p SweepParams) spreads() []float64 {
	n := int(math.Floor((p.MaxSpreadBps-p.MinSpreadBps)/p.StepBps+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = p.MinSpreadBps + float64(i)*p.StepBps
	}
	return out
}

// Sweeper runs a fixed-spread sweep, one independent engine run per spread
// value. Runs share nothing mutable, so they execute in parallel under an
// errgroup with a concurrency limit.
type Sweeper struct {
	engine *Engine
	logger *slog.Logger
	board  domain.SweepBoard
}

// SweepOption customises a Sweeper.
type SweepOption func(*Sweeper)

// WithSweepBoard wires a leaderboard that each finished point is recorded on.
func WithSweepBoard(b domain.SweepBoard) SweepOption {
	return func(s *Sweeper) { s.board = b }
}

// NewSweeper creates a sweeper that dispatches runs to the given engine.
func NewSweeper(engine *Engine, logger *slog.Logger, opts ...SweepOption) *Sweeper {
	s := &Sweeper{
		engine: engine,
		logger: logger.With(slog.String("component", "sweeper")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the sweep over the given tick feed. The feed is shared
// read-only across all points. The first failing run cancels the rest. Best
// is the point with the highest final PnL; ties keep the lowest spread.
func (s *Sweeper) Run(ctx context.Context, p SweepParams, ticks []domain.Tick) (*domain.SweepResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	spreads := p.spreads()
	result := &domain.SweepResult{
		SweepID:    uuid.NewString(),
		DataSource: p.DataSource,
		Points:     make([]domain.SweepPoint, len(spreads)),
		StartedAt:  time.Now().UTC(),
	}
	s.logger.Info("sweep started",
		slog.String("sweep_id", result.SweepID),
		slog.Int("points", len(spreads)),
		slog.Float64("min_bps", p.MinSpreadBps),
		slog.Float64("max_bps", p.MaxSpreadBps),
	)

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, spread := range spreads {
		g.Go(func() error {
			res, err := s.engine.Run(gctx, domain.RunParams{
				Strategy:   "fixed_spread",
				DataSource: p.DataSource,
				Symbol:     p.Symbol,
				OrderSize:  p.OrderSize,
				SpreadBps:  spread,
				FeeBps:     p.FeeBps,
			}, ticks)
			if err != nil {
				return fmt.Errorf("sweep: spread %g bps: %w", spread, err)
			}

			point := domain.SweepPoint{
				SpreadBps: spread,
				RunID:     res.RunID,
				Summary:   res.Summary,
			}
			result.Points[i] = point

			if s.board != nil {
				if err := s.board.Record(gctx, result.SweepID, point); err != nil {
					s.logger.Warn("sweep board record failed",
						slog.Float64("spread_bps", spread),
						slog.String("error", err.Error()),
					)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range result.Points {
		if result.Best == nil || result.Points[i].Summary.FinalPnL > result.Best.Summary.FinalPnL {
			result.Best = &result.Points[i]
		}
	}
	result.FinishedAt = time.Now().UTC()

	if result.Best != nil {
		s.logger.Info("sweep finished",
			slog.String("sweep_id", result.SweepID),
			slog.Float64("best_spread_bps", result.Best.SpreadBps),
			slog.Float64("best_pnl", result.Best.Summary.FinalPnL),
		)
	}
	return result, nil
}
