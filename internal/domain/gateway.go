package domain

import "context"

// OrderGateway is the order-placement collaborator handed to standing-order
// strategies. In a backtest it is implemented by the simulated exchange; the
// strategy never talks to the engine directly, so strategy and engine
// lifecycles stay decoupled.
type OrderGateway interface {
	// PlaceLimitBuy rests a buy order and returns its ID. It returns
	// ErrInsufficientBalance when remaining capital cannot cover the order
	// and ErrPriceCollision when the level is already occupied.
	PlaceLimitBuy(ctx context.Context, symbol string, size, price float64) (string, error)

	// PlaceLimitSell rests a sell order and returns its ID. It returns
	// ErrPriceCollision when the level is already occupied.
	PlaceLimitSell(ctx context.Context, symbol string, size, price float64) (string, error)

	// Cancel removes a resting order. The boolean reports whether the order
	// was found and cancelled.
	Cancel(ctx context.Context, orderID string) (bool, error)

	// Balance returns the quote-currency balance available for new orders.
	Balance(ctx context.Context) (float64, error)
}
