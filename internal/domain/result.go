package domain

import "time"

// RunState tracks the engine lifecycle for one backtest run.
type RunState string

const (
	RunStateRunning  RunState = "running"
	RunStateFinished RunState = "finished"
)

// RunParams captures the full configuration of a single backtest run so the
// result bundle is self-describing. Fields that do not apply to the chosen
// strategy are zero and omitted from JSON.
type RunParams struct {
	Strategy   string `json:"strategy"`
	DataSource string `json:"data_source"`
	Symbol     string `json:"symbol,omitempty"`

	OrderSize float64 `json:"order_size,omitempty"`
	SpreadBps float64 `json:"spread_bps,omitempty"`
	FeeBps    float64 `json:"fee_bps,omitempty"`

	GridLevels  int     `json:"grid_levels,omitempty"`
	GridSpacing float64 `json:"grid_spacing,omitempty"`

	// GridTickSize snaps grid prices to a tick grid; GridPriceDecimals
	// rounds them to a decimal precision. Tick size wins when both are set;
	// zero for both leaves prices untouched.
	GridTickSize      float64 `json:"grid_tick_size,omitempty"`
	GridPriceDecimals int     `json:"grid_price_decimals,omitempty"`

	InitialCapital float64   `json:"initial_capital,omitempty"`
	PriceLevels    []float64 `json:"price_levels,omitempty"`
	Increment      float64   `json:"increment,omitempty"`

	// LongOnly rejects fixed-spread sells that would push inventory
	// negative. The default keeps the unconstrained behaviour.
	LongOnly bool `json:"long_only,omitempty"`

	PermutePrices bool `json:"permute_prices,omitempty"`
}

// Result is the bundle produced by one engine run: the run configuration, the
// ordered trade log, the per-tick state log, and the aggregate summary. All
// timestamps are UTC and serialize as RFC 3339, which round-trips through
// encoding/json without loss.
type Result struct {
	RunID      string         `json:"run_id"`
	Params     RunParams      `json:"parameters"`
	Trades     []TradeRecord  `json:"trades"`
	TickData   []TickSnapshot `json:"tick_data"`
	Summary    SummaryStats   `json:"summary_stats"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// SweepPoint is the outcome of one parameter-sweep iteration.
type SweepPoint struct {
	SpreadBps float64      `json:"spread_bps"`
	RunID     string       `json:"run_id"`
	Summary   SummaryStats `json:"summary_stats"`
}

// SweepResult aggregates a fixed-spread parameter sweep. Best is the point
// with the highest final PnL; ties keep the lowest spread, which is the first
// one encountered in ascending sweep order.
type SweepResult struct {
	SweepID    string       `json:"sweep_id"`
	DataSource string       `json:"data_source"`
	Points     []SweepPoint `json:"points"`
	Best       *SweepPoint  `json:"best,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}
