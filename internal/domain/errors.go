package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrInsufficientInventory rejects a sell that exceeds held inventory.
	// The rejected trade is a no-op on strategy state.
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrInsufficientBalance signals that the simulated exchange refused an
	// order because the remaining capital cannot cover it.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPriceCollision rejects an order placement at a price level already
	// occupied by another live order.
	ErrPriceCollision = errors.New("price level already occupied")

	// ErrUnknownOrder flags a fill notification for an order ID that is not
	// tracked in either active map; callers should surface it as a potential
	// accounting discrepancy rather than crash.
	ErrUnknownOrder = errors.New("unknown order")

	// ErrNoQuote indicates a strategy could not produce quotes yet, typically
	// before the first price observation.
	ErrNoQuote = errors.New("no quote available")
)
