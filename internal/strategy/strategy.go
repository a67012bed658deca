// Package strategy implements the market-making strategy families the
// backtest engine can drive: a symmetric fixed-spread quoter, a grid/ladder
// maker, and a capital-constrained level maker that rests standing orders at
// a simulated exchange.
package strategy

import (
	"context"

	"makersim/internal/domain"
)

// Strategy is the capability set shared by every strategy family.
type Strategy interface {
	Name() string

	// UpdatePrice feeds the latest observed market price into the strategy.
	UpdatePrice(price float64)

	PnL() float64
	Inventory() float64
}

// Quoter is implemented by strategies that emit an ephemeral two-sided quote
// every tick. The engine matches the quote against the tick and reports fills
// through Fill.
type Quoter interface {
	Strategy

	// Quotes returns the current bid/ask pair. It returns domain.ErrNoQuote
	// until the first price observation.
	Quotes() (bid, ask float64, err error)

	QuoteSize() float64

	// Fill applies one executed trade at the given price, size, and absolute
	// fee. A sell that would breach the strategy's inventory policy returns
	// domain.ErrInsufficientInventory and leaves state untouched.
	Fill(price, size, fee float64, side domain.Side) error
}

// Ladder is implemented by strategies that maintain explicit lists of resting
// buy and sell prices which the engine matches against each tick.
type Ladder interface {
	Strategy

	// GenerateQuotes refreshes the order ladder (regenerating it when the
	// strategy's conditions allow) and returns the currently quotable buy and
	// sell prices.
	GenerateQuotes() (buyPrices, sellPrices []float64)

	QuoteSize() float64

	// Fill applies one executed trade against the resting order at the given
	// price. It returns the fee charged. Sells beyond held inventory are
	// rejected with domain.ErrInsufficientInventory and change nothing.
	Fill(price, size float64, side domain.Side) (fee float64, err error)

	// OpenOrders reports the live buy and sell order counts.
	OpenOrders() (buys, sells int)
}

// FillKind classifies the outcome of a fill notification delivered to an
// OrderPlacer strategy.
type FillKind int

const (
	FillUnknown FillKind = iota
	FillBuy
	FillSell
)

func (k FillKind) String() string {
	switch k {
	case FillBuy:
		return "buy_fill"
	case FillSell:
		return "sell_fill"
	default:
		return "unknown_fill"
	}
}

// OrderPlacer is implemented by strategies that rest standing limit orders at
// an injected order gateway. The engine decides when a standing order is
// crossed and notifies the strategy through HandleFill.
type OrderPlacer interface {
	Strategy

	// Start queries the gateway balance, derives the entry budget, and places
	// the initial ladder of buy orders. It is called once per run.
	Start(ctx context.Context) error

	// HandleFill notifies the strategy that the order with the given ID was
	// filled in full at price for size, charging fee. Unknown IDs return
	// (FillUnknown, domain.ErrUnknownOrder) and change nothing.
	HandleFill(ctx context.Context, orderID string, price, size, fee float64) (FillKind, error)

	// OpenOrders reports the live buy and sell order counts.
	OpenOrders() (buys, sells int)
}
