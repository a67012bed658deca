// Package backtest contains the tick-replay matching engine, the simulated
// exchange gateway, and the parameter-sweep orchestration.
package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"makersim/internal/domain"
	"makersim/internal/strategy"
)

// ProgressChannel is the bus channel run progress events are published on.
const ProgressChannel = "backtest:progress"

// progressEvery is the tick interval between progress publications.
const progressEvery = 1000

// Engine replays a tick feed against a strategy and produces a result
// bundle. Each Run call builds a fresh gateway and strategy instance, so an
// engine can be reused across runs and sweep points.
type Engine struct {
	registry *strategy.Registry
	logger   *slog.Logger

	status domain.RunStatusCache
	bus    domain.ProgressBus
}

// Option customises an Engine.
type Option func(*Engine)

// WithStatusCache wires a cache that receives live run progress.
func WithStatusCache(c domain.RunStatusCache) Option {
	return func(e *Engine) { e.status = c }
}

// WithProgressBus wires a bus that progress events are published on.
func WithProgressBus(b domain.ProgressBus) Option {
	return func(e *Engine) { e.bus = b }
}

// NewEngine creates an engine backed by the given strategy registry.
func NewEngine(reg *strategy.Registry, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		logger:   logger.With(slog.String("component", "engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run replays the tick feed once, in order, against a freshly built strategy.
// An empty feed is a valid zero-trade run. Strategy invariant violations are
// handled locally by the strategies; any other strategy error aborts the run.
func (e *Engine) Run(ctx context.Context, params domain.RunParams, ticks []domain.Tick) (*domain.Result, error) {
	gw := NewSimGateway(params.Symbol, params.InitialCapital, e.logger)
	strat, err := e.registry.Build(params.Strategy, params, gw, e.logger)
	if err != nil {
		return nil, fmt.Errorf("backtest: build strategy: %w", err)
	}

	res := &domain.Result{
		RunID:     uuid.NewString(),
		Params:    params,
		Trades:    []domain.TradeRecord{},
		TickData:  []domain.TickSnapshot{},
		StartedAt: time.Now().UTC(),
	}

	e.logger.Info("run started",
		slog.String("run_id", res.RunID),
		slog.String("strategy", strat.Name()),
		slog.Int("ticks", len(ticks)),
	)
	e.publishProgress(ctx, res, domain.RunStateRunning, 0, strat)

	switch s := strat.(type) {
	case strategy.Quoter:
		err = e.runQuoter(ctx, s, ticks, res)
	case strategy.Ladder:
		err = e.runLadder(ctx, s, ticks, res)
	case strategy.OrderPlacer:
		err = e.runOrderPlacer(ctx, s, gw, ticks, res)
	default:
		err = fmt.Errorf("backtest: strategy %q implements no known family", strat.Name())
	}
	if err != nil {
		return nil, err
	}

	res.Summary = domain.SummaryStats{
		FinalPnL:       strat.PnL(),
		TotalTrades:    len(res.Trades),
		FinalInventory: strat.Inventory(),
	}
	res.FinishedAt = time.Now().UTC()
	e.publishProgress(ctx, res, domain.RunStateFinished, len(ticks), strat)

	e.logger.Info("run finished",
		slog.String("run_id", res.RunID),
		slog.Float64("final_pnl", res.Summary.FinalPnL),
		slog.Int("total_trades", res.Summary.TotalTrades),
		slog.Float64("final_inventory", res.Summary.FinalInventory),
	)
	return res, nil
}

// runQuoter drives a two-sided quoting strategy. Each tick refreshes the
// quote, then at most one side fills: a buying taker can lift the ask when
// the tick price reaches it, a selling taker can hit the bid. The ask check
// runs first.
func (e *Engine) runQuoter(ctx context.Context, s strategy.Quoter, ticks []domain.Tick, res *domain.Result) error {
	feeBps := res.Params.FeeBps

	for i, t := range ticks {
		s.UpdatePrice(t.Price)

		bid, ask, err := s.Quotes()
		if err != nil {
			if errors.Is(err, domain.ErrNoQuote) {
				res.TickData = append(res.TickData, e.snapshot(t, s, nil, nil, 0, 0))
				continue
			}
			return fmt.Errorf("backtest: quotes at tick %d: %w", i, err)
		}

		size := s.QuoteSize()
		if t.TakerIsBuyer && t.Price >= ask {
			fillFee := fee(ask, size, feeBps)
			if err := s.Fill(ask, size, fillFee, domain.SideSell); err == nil {
				res.Trades = append(res.Trades, e.trade(t, domain.SideSell, ask, size, fillFee, s, ""))
			} else if !errors.Is(err, domain.ErrInsufficientInventory) {
				return fmt.Errorf("backtest: sell fill at tick %d: %w", i, err)
			}
		} else if !t.TakerIsBuyer && t.Price <= bid {
			fillFee := fee(bid, size, feeBps)
			if err := s.Fill(bid, size, fillFee, domain.SideBuy); err != nil {
				return fmt.Errorf("backtest: buy fill at tick %d: %w", i, err)
			}
			res.Trades = append(res.Trades, e.trade(t, domain.SideBuy, bid, size, fillFee, s, ""))
		}

		res.TickData = append(res.TickData, e.snapshot(t, s, &bid, &ask, 0, 0))
		e.maybeProgress(ctx, res, i+1, s)
	}
	return nil
}

// runLadder drives a ladder strategy. Each tick refreshes the ladder, then
// the taker side of the tick sweeps the opposing price list: a buying taker
// lifts crossed sells, a selling taker hits crossed buys. The tick's own size
// bounds how much liquidity it can consume.
func (e *Engine) runLadder(ctx context.Context, s strategy.Ladder, ticks []domain.Tick, res *domain.Result) error {
	for i, t := range ticks {
		s.UpdatePrice(t.Price)
		buyPrices, sellPrices := s.GenerateQuotes()

		size := s.QuoteSize()
		remaining := t.Size

		if t.TakerIsBuyer {
			for _, sp := range sellPrices {
				if remaining <= 0 {
					break
				}
				if t.Price < sp {
					continue
				}
				fee, err := s.Fill(sp, size, domain.SideSell)
				if err != nil {
					continue
				}
				res.Trades = append(res.Trades, e.trade(t, domain.SideSell, sp, size, fee, s, ""))
				remaining -= size
			}
		} else {
			for _, bp := range buyPrices {
				if remaining <= 0 {
					break
				}
				if t.Price > bp {
					continue
				}
				fee, err := s.Fill(bp, size, domain.SideBuy)
				if err != nil {
					continue
				}
				res.Trades = append(res.Trades, e.trade(t, domain.SideBuy, bp, size, fee, s, ""))
				remaining -= size
			}
		}

		buys, sells := s.OpenOrders()
		res.TickData = append(res.TickData, e.snapshot(t, s, nil, nil, buys, sells))
		e.maybeProgress(ctx, res, i+1, s)
	}
	return nil
}

// runOrderPlacer drives a standing-order strategy against the gateway's
// order book. Fill candidates are snapshotted at the start of each tick, so
// orders a fill handler places mid-tick cannot fill on the same tick. The
// tick's size bounds how much order volume it can consume; buys are scanned
// before sells, both in insertion order.
func (e *Engine) runOrderPlacer(ctx context.Context, s strategy.OrderPlacer, gw *SimGateway, ticks []domain.Tick, res *domain.Result) error {
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("backtest: start strategy: %w", err)
	}
	feeBps := res.Params.FeeBps

	for i, t := range ticks {
		s.UpdatePrice(t.Price)

		remaining := t.Size
		buys := gw.LiveOrders(domain.SideBuy)
		sells := gw.LiveOrders(domain.SideSell)

		for _, o := range buys {
			if remaining <= 0 {
				break
			}
			if o.Price < t.Price || !gw.IsLive(o.ID) {
				continue
			}
			rec, err := e.fillStandingOrder(ctx, s, gw, t, o, feeBps)
			if err != nil {
				return fmt.Errorf("backtest: buy fill at tick %d: %w", i, err)
			}
			if rec != nil {
				res.Trades = append(res.Trades, *rec)
				remaining -= o.Size
			}
		}
		for _, o := range sells {
			if remaining <= 0 {
				break
			}
			if o.Price > t.Price || !gw.IsLive(o.ID) {
				continue
			}
			rec, err := e.fillStandingOrder(ctx, s, gw, t, o, feeBps)
			if err != nil {
				return fmt.Errorf("backtest: sell fill at tick %d: %w", i, err)
			}
			if rec != nil {
				res.Trades = append(res.Trades, *rec)
				remaining -= o.Size
			}
		}

		activeBuys, activeSells := s.OpenOrders()
		res.TickData = append(res.TickData, e.snapshot(t, s, nil, nil, activeBuys, activeSells))
		e.maybeProgress(ctx, res, i+1, s)
	}
	return nil
}

// fillStandingOrder executes one standing order against a tick and notifies
// the strategy. A fill the strategy does not recognise is logged as an
// accounting discrepancy and produces no trade record.
func (e *Engine) fillStandingOrder(ctx context.Context, s strategy.OrderPlacer, gw *SimGateway, t domain.Tick, o domain.Order, feeBps float64) (*domain.TradeRecord, error) {
	if err := gw.MarkExecuted(o.ID); err != nil {
		return nil, err
	}

	fillFee := fee(o.Price, o.Size, feeBps)
	kind, err := s.HandleFill(ctx, o.ID, o.Price, o.Size, fillFee)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownOrder) {
			e.logger.Warn("fill not recognised by strategy, possible accounting discrepancy",
				slog.String("order_id", o.ID),
			)
			return nil, nil
		}
		return nil, err
	}

	side := domain.SideBuy
	if kind == strategy.FillSell {
		side = domain.SideSell
	}
	rec := e.trade(t, side, o.Price, o.Size, fillFee, s, o.ID)
	return &rec, nil
}

func (e *Engine) trade(t domain.Tick, side domain.Side, price, size, fillFee float64, s strategy.Strategy, orderID string) domain.TradeRecord {
	return domain.TradeRecord{
		Time:        t.Time,
		Side:        side,
		Price:       price,
		Size:        size,
		Fee:         fillFee,
		PnL:         s.PnL(),
		Inventory:   s.Inventory(),
		MarketPrice: t.Price,
		OrderID:     orderID,
	}
}

func (e *Engine) snapshot(t domain.Tick, s strategy.Strategy, bid, ask *float64, buys, sells int) domain.TickSnapshot {
	return domain.TickSnapshot{
		Time:        t.Time,
		MarketPrice: t.Price,
		Bid:         bid,
		Ask:         ask,
		PnL:         s.PnL(),
		Inventory:   s.Inventory(),
		ActiveBuys:  buys,
		ActiveSells: sells,
	}
}

func (e *Engine) maybeProgress(ctx context.Context, res *domain.Result, done int, s strategy.Strategy) {
	if done%progressEvery != 0 {
		return
	}
	e.publishProgress(ctx, res, domain.RunStateRunning, done, s)
}

// publishProgress pushes a progress snapshot to the status cache and the
// progress bus when they are wired. Publish failures are logged, never
// fatal: observability must not abort a run.
func (e *Engine) publishProgress(ctx context.Context, res *domain.Result, state domain.RunState, done int, s strategy.Strategy) {
	if e.status == nil && e.bus == nil {
		return
	}
	st := domain.RunStatus{
		RunID:     res.RunID,
		State:     state,
		Ticks:     done,
		Trades:    len(res.Trades),
		PnL:       s.PnL(),
		Inventory: s.Inventory(),
		UpdatedAt: time.Now().UTC(),
	}
	if e.status != nil {
		if err := e.status.Set(ctx, st); err != nil {
			e.logger.Warn("status cache update failed", slog.String("error", err.Error()))
		}
	}
	if e.bus != nil {
		payload, err := json.Marshal(st)
		if err == nil {
			err = e.bus.Publish(ctx, ProgressChannel, payload)
		}
		if err != nil {
			e.logger.Warn("progress publish failed", slog.String("error", err.Error()))
		}
	}
}

// fee is the absolute fee for a fill at the given price and size.
func fee(price, size, feeBps float64) float64 {
	return price * size * feeBps / 10000
}
