package domain

import "time"

// TradeRecord is one simulated fill of a resting strategy order. Records are
// appended strictly in tick-processing order; downstream PnL reconstruction
// depends on that ordering.
type TradeRecord struct {
	Time time.Time `json:"time"`
	Side Side      `json:"type"`

	// Price and Size describe the fill itself; Fee is the absolute fee paid.
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
	Fee   float64 `json:"fee"`

	// PnL and Inventory are the strategy's state immediately after the fill.
	PnL       float64 `json:"pnl"`
	Inventory float64 `json:"inventory"`

	// MarketPrice is the tick price that triggered the fill, which can differ
	// from the fill price (fills happen at the resting order's price).
	MarketPrice float64 `json:"market_price_at_trade"`

	// OrderID is set for standing-order strategies, empty for quote-based
	// ones.
	OrderID string `json:"order_id,omitempty"`
}

// SummaryStats aggregates a finished run.
type SummaryStats struct {
	FinalPnL       float64 `json:"final_pnl"`
	TotalTrades    int     `json:"total_trades"`
	FinalInventory float64 `json:"final_inventory"`
}
