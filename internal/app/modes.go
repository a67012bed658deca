package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"makersim/internal/backtest"
	"makersim/internal/domain"
	"makersim/internal/feed"
	"makersim/internal/server"
	"makersim/internal/server/handler"
	"makersim/internal/server/ws"
	"makersim/internal/service"
	"makersim/internal/strategy"
)

// buildService constructs the feed loader, engine, sweeper, and backtest
// service shared by all operating modes.
func (a *App) buildService(deps *Dependencies) *service.BacktestService {
	loader := feed.NewLoader(a.logger)
	reg := strategy.DefaultRegistry()

	var engineOpts []backtest.Option
	if deps.StatusCache != nil {
		engineOpts = append(engineOpts, backtest.WithStatusCache(deps.StatusCache))
	}
	if deps.ProgressBus != nil {
		engineOpts = append(engineOpts, backtest.WithProgressBus(deps.ProgressBus))
	}
	engine := backtest.NewEngine(reg, a.logger, engineOpts...)

	var sweepOpts []backtest.SweepOption
	if deps.SweepBoard != nil {
		sweepOpts = append(sweepOpts, backtest.WithSweepBoard(deps.SweepBoard))
	}
	sweeper := backtest.NewSweeper(engine, a.logger, sweepOpts...)

	return service.NewBacktestService(
		loader,
		engine,
		sweeper,
		deps.RunStore,
		deps.TradeStore,
		deps.Archiver,
		a.cfg.Feed.PermuteSeed,
		a.logger,
	)
}

// runParamsFromConfig maps the strategy configuration onto engine run
// parameters. Every strategy's parameters are carried; the registry builder
// for the selected strategy picks out the ones it needs.
func (a *App) runParamsFromConfig() domain.RunParams {
	sc := a.cfg.Strategy
	return domain.RunParams{
		Strategy:          sc.Name,
		DataSource:        a.cfg.Feed.Path,
		Symbol:            sc.Symbol,
		OrderSize:         sc.OrderSize,
		SpreadBps:         sc.FixedSpread.SpreadBps,
		FeeBps:            sc.FeeBps,
		GridLevels:        sc.Grid.Levels,
		GridSpacing:       sc.Grid.Spacing,
		GridTickSize:      sc.Grid.TickSize,
		GridPriceDecimals: sc.Grid.PriceDecimals,
		InitialCapital:    sc.InitialCapital,
		PriceLevels:       sc.LevelMaker.PriceLevels,
		Increment:         sc.LevelMaker.Increment,
		LongOnly:          !sc.FixedSpread.AllowShort,
		PermutePrices:     a.cfg.Feed.PermutePrices,
	}
}

// RunMode executes a single backtest over the configured feed, logs the
// summary, and optionally dumps the full result bundle as local JSON.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting run mode",
		slog.String("strategy", a.cfg.Strategy.Name),
		slog.String("feed", a.cfg.Feed.Path),
	)

	svc := a.buildService(deps)
	params := a.runParamsFromConfig()

	result, err := svc.ExecuteRun(ctx, params)
	if err != nil {
		if result == nil {
			return fmt.Errorf("run mode: %w", err)
		}
		// The run itself completed; only persistence failed.
		a.logger.WarnContext(ctx, "run completed but persistence failed",
			slog.String("run_id", result.RunID),
			slog.String("error", err.Error()),
		)
	}

	a.logger.InfoContext(ctx, "run summary",
		slog.String("run_id", result.RunID),
		slog.String("strategy", params.Strategy),
		slog.Float64("final_pnl", result.Summary.FinalPnL),
		slog.Int("total_trades", result.Summary.TotalTrades),
		slog.Float64("final_inventory", result.Summary.FinalInventory),
	)

	if a.cfg.OutPath != "" {
		if err := writeResultJSON(a.cfg.OutPath, result); err != nil {
			return fmt.Errorf("run mode: %w", err)
		}
		a.logger.InfoContext(ctx, "wrote result bundle",
			slog.String("path", a.cfg.OutPath),
		)
	}

	return nil
}

// SweepMode sweeps the fixed-spread strategy over the configured spread range
// and logs the best point.
func (a *App) SweepMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sweep mode",
		slog.Float64("min_spread_bps", a.cfg.Sweep.MinSpreadBps),
		slog.Float64("max_spread_bps", a.cfg.Sweep.MaxSpreadBps),
		slog.Float64("step_bps", a.cfg.Sweep.StepBps),
	)

	svc := a.buildService(deps)
	params := backtest.SweepParams{
		DataSource:   a.cfg.Feed.Path,
		Symbol:       a.cfg.Strategy.Symbol,
		OrderSize:    a.cfg.Strategy.OrderSize,
		FeeBps:       a.cfg.Strategy.FeeBps,
		MinSpreadBps: a.cfg.Sweep.MinSpreadBps,
		MaxSpreadBps: a.cfg.Sweep.MaxSpreadBps,
		StepBps:      a.cfg.Sweep.StepBps,
		Concurrency:  a.cfg.Sweep.Concurrency,
	}

	result, err := svc.ExecuteSweep(ctx, params)
	if err != nil {
		return fmt.Errorf("sweep mode: %w", err)
	}

	if result.Best != nil {
		a.logger.InfoContext(ctx, "sweep summary",
			slog.String("sweep_id", result.SweepID),
			slog.Int("points", len(result.Points)),
			slog.Float64("best_spread_bps", result.Best.SpreadBps),
			slog.Float64("best_pnl", result.Best.Summary.FinalPnL),
			slog.Int("best_trades", result.Best.Summary.TotalTrades),
		)
	} else {
		a.logger.InfoContext(ctx, "sweep summary: no points produced",
			slog.String("sweep_id", result.SweepID),
		)
	}

	if a.cfg.OutPath != "" {
		if err := writeResultJSON(a.cfg.OutPath, result); err != nil {
			return fmt.Errorf("sweep mode: %w", err)
		}
		a.logger.InfoContext(ctx, "wrote sweep bundle",
			slog.String("path", a.cfg.OutPath),
		)
	}

	return nil
}

// ServerMode starts the HTTP + WebSocket API and, when archiving is wired,
// the trade retention worker. It blocks until the context is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode",
		slog.Int("port", a.cfg.Server.Port),
	)

	svc := a.buildService(deps)

	g, ctx := errgroup.WithContext(ctx)

	var hub *ws.Hub
	if deps.ProgressBus != nil {
		hub = ws.NewHub(deps.ProgressBus, a.logger)
		g.Go(func() error {
			err := hub.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Runs:   handler.NewRunHandler(svc, deps.StatusCache, deps.BlobReader, a.logger),
		Sweeps: handler.NewSweepHandler(svc, deps.SweepBoard, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:         a.cfg.Server.Port,
		CORSOrigins:  a.cfg.Server.CORSOrigins,
		APIKey:       a.cfg.Server.APIKey,
		ReadTimeout:  a.cfg.Server.ReadTimeout.Duration,
		WriteTimeout: a.cfg.Server.WriteTimeout.Duration,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		timeout := a.cfg.Server.ShutdownTimeout.Duration
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if deps.Archiver != nil && deps.TradeStore != nil && a.cfg.S3.RetentionDays > 0 {
		worker := service.NewRetentionWorker(
			deps.Archiver,
			deps.TradeStore,
			a.cfg.S3.RetentionDays,
			0,
			a.logger,
		)
		g.Go(func() error {
			err := worker.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// writeResultJSON writes v as indented JSON to path.
func writeResultJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
