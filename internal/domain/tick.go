// Package domain defines the core types shared across the backtester: ticks,
// orders, trade records, result bundles, and the store/cache/gateway
// interfaces implemented by the infrastructure packages.
package domain

import "time"

// Tick is a single historical trade observed in the market. Ticks are
// immutable and strictly time-ordered; the engine consumes them exactly once,
// in order.
type Tick struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
	Size  float64   `json:"size"`

	// TakerIsBuyer is true when the aggressing side of the historical trade
	// was a buyer, meaning a resting ask could have been lifted. When false
	// the taker sold, and a resting bid could have been hit. Source CSVs
	// encode the inverse flag (buyer_maker); the feed loader flips it.
	TakerIsBuyer bool `json:"taker_is_buyer"`
}

// TickSnapshot captures the engine's per-tick state for diagnostics and
// plotting. Exactly one snapshot is appended per input tick.
type TickSnapshot struct {
	Time        time.Time `json:"time"`
	MarketPrice float64   `json:"market_price"`

	// Bid and Ask are nil before the strategy has observed a price, and for
	// strategy families that quote standing orders instead of a two-sided
	// quote.
	Bid *float64 `json:"bid,omitempty"`
	Ask *float64 `json:"ask,omitempty"`

	PnL         float64 `json:"pnl"`
	Inventory   float64 `json:"inventory"`
	ActiveBuys  int     `json:"active_buys"`
	ActiveSells int     `json:"active_sells"`
}
