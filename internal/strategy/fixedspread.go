package strategy

import (
	"log/slog"

	"makersim/internal/domain"
)

// FixedSpreadConfig configures a FixedSpread strategy.
type FixedSpreadConfig struct {
	QuoteSize float64
	SpreadBps float64

	// AllowShort keeps the original unconstrained behaviour: sells are
	// applied even when they push inventory negative. Set to false to reject
	// sells beyond held inventory instead.
	AllowShort bool
}

// FixedSpread quotes a symmetric bid/ask pair around the latest observed
// price. It carries no order state; every tick produces a fresh quote.
type FixedSpread struct {
	cfg       FixedSpreadConfig
	price     float64
	havePrice bool
	pnl       float64
	inventory float64
	lastBid   *float64
	lastAsk   *float64
	logger    *slog.Logger
}

// NewFixedSpread creates a FixedSpread strategy.
func NewFixedSpread(cfg FixedSpreadConfig, logger *slog.Logger) *FixedSpread {
	return &FixedSpread{
		cfg:    cfg,
		logger: logger.With(slog.String("strategy", "fixed_spread")),
	}
}

// Name returns the strategy identifier.
func (s *FixedSpread) Name() string { return "fixed_spread" }

// UpdatePrice records the latest market price.
func (s *FixedSpread) UpdatePrice(price float64) {
	s.price = price
	s.havePrice = true
}

// Quotes computes the symmetric bid/ask around the current price. There is no
// inventory skew: half the spread on each side, always.
func (s *FixedSpread) Quotes() (float64, float64, error) {
	if !s.havePrice {
		s.lastBid = nil
		s.lastAsk = nil
		return 0, 0, domain.ErrNoQuote
	}

	half := s.cfg.SpreadBps / 10000 / 2
	bid := s.price * (1 - half)
	ask := s.price * (1 + half)
	s.lastBid = &bid
	s.lastAsk = &ask
	return bid, ask, nil
}

// QuoteSize returns the per-fill size.
func (s *FixedSpread) QuoteSize() float64 { return s.cfg.QuoteSize }

// Fill applies one executed trade. Buys debit pnl by cost plus fee and credit
// inventory; sells do the reverse. When AllowShort is false, a sell larger
// than held inventory is rejected and state is untouched.
func (s *FixedSpread) Fill(price, size, fee float64, side domain.Side) error {
	if side == domain.SideSell && !s.cfg.AllowShort && s.inventory < size {
		s.logger.Warn("sell rejected, insufficient inventory",
			slog.Float64("size", size),
			slog.Float64("inventory", s.inventory),
		)
		return domain.ErrInsufficientInventory
	}

	if side == domain.SideBuy {
		s.pnl -= price*size + fee
		s.inventory += size
	} else {
		s.pnl += price*size - fee
		s.inventory -= size
	}
	return nil
}

// PnL returns the cumulative realised profit and loss.
func (s *FixedSpread) PnL() float64 { return s.pnl }

// Inventory returns the currently held base-asset amount.
func (s *FixedSpread) Inventory() float64 { return s.inventory }

// LastQuotes returns the most recently generated quotes; both are nil before
// the first price observation.
func (s *FixedSpread) LastQuotes() (bid, ask *float64) {
	return s.lastBid, s.lastAsk
}

var _ Quoter = (*FixedSpread)(nil)
