package backtest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"makersim/internal/domain"
)

// SimGateway is the simulated exchange handed to standing-order strategies.
// It accepts limit orders into an order registry that the engine matches
// against the tick stream. Buy orders are capital-checked: the notional of
// all resting buys may not exceed the configured capital.
type SimGateway struct {
	symbol  string
	capital float64
	logger  *slog.Logger

	mu       sync.Mutex
	registry *domain.OrderRegistry
}

// NewSimGateway creates a gateway with the given capital limit.
func NewSimGateway(symbol string, capital float64, logger *slog.Logger) *SimGateway {
	return &SimGateway{
		symbol:   symbol,
		capital:  capital,
		logger:   logger.With(slog.String("component", "sim_gateway")),
		registry: domain.NewOrderRegistry(),
	}
}

// PlaceLimitBuy rests a buy order at the given price. It returns
// ErrInsufficientBalance when the resting buy notional plus the new order
// would exceed the gateway's capital, and ErrPriceCollision when a live
// order on either side already rests at that price.
func (g *SimGateway) PlaceLimitBuy(ctx context.Context, symbol string, size, price float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	resting := 0.0
	for _, o := range g.registry.Live(domain.SideBuy) {
		resting += o.Price * o.Size
	}
	if resting+price*size > g.capital {
		return "", domain.ErrInsufficientBalance
	}
	return g.place(domain.SideBuy, price, size)
}

// PlaceLimitSell rests a sell order at the given price. It returns
// ErrPriceCollision when a live order on either side already rests there.
func (g *SimGateway) PlaceLimitSell(ctx context.Context, symbol string, size, price float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.place(domain.SideSell, price, size)
}

func (g *SimGateway) place(side domain.Side, price, size float64) (string, error) {
	if g.registry.PriceOccupied(price) {
		return "", domain.ErrPriceCollision
	}
	o := domain.Order{
		ID:     uuid.NewString(),
		Side:   side,
		Price:  price,
		Size:   size,
		Status: domain.OrderStatusActive,
	}
	if err := g.registry.Add(o); err != nil {
		return "", err
	}
	g.logger.Debug("order placed",
		slog.String("order_id", o.ID),
		slog.String("side", string(side)),
		slog.Float64("price", price),
		slog.Float64("size", size),
	)
	return o.ID, nil
}

// Cancel removes a live order. It reports false when the order exists but is
// no longer live, and ErrNotFound when the ID is unknown.
func (g *SimGateway) Cancel(ctx context.Context, orderID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	o, err := g.registry.Get(orderID)
	if err != nil {
		return false, err
	}
	if !o.Live() {
		return false, nil
	}
	if err := g.registry.SetStatus(orderID, domain.OrderStatusCancelled); err != nil {
		return false, err
	}
	return true, nil
}

// Balance reports the configured capital. Fills do not debit it: the capital
// constraint bounds resting buy notional, not realised cash flow.
func (g *SimGateway) Balance(ctx context.Context) (float64, error) {
	return g.capital, nil
}

// LiveOrders returns the live orders on the given side in insertion order.
// The engine snapshots these at the start of each tick.
func (g *SimGateway) LiveOrders(side domain.Side) []domain.Order {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.registry.Live(side)
}

// MarkExecuted flips a filled order to executed.
func (g *SimGateway) MarkExecuted(orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.registry.SetStatus(orderID, domain.OrderStatusExecuted)
}

// IsLive reports whether the order with the given ID is still live.
func (g *SimGateway) IsLive(orderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, err := g.registry.Get(orderID)
	return err == nil && o.Live()
}

var _ domain.OrderGateway = (*SimGateway)(nil)
