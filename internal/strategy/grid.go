package strategy

import (
	"log/slog"

	"github.com/google/uuid"

	"makersim/internal/domain"
)

// GridConfig configures a Grid strategy.
type GridConfig struct {
	QuoteSize      float64
	GridLevels     int
	GridSpacing    float64
	Rounding       Rounding
	FeeBps         float64
	InitialBalance float64
}

// Grid places a ladder of buy orders below the market. Each buy fill spawns
// exactly one paired sell one spacing above the fill price; once inventory is
// flat and the book is empty, a fresh ladder is generated.
type Grid struct {
	cfg       GridConfig
	price     float64
	havePrice bool
	pnl       float64
	inventory float64
	balance   float64
	orders    *domain.OrderRegistry
	logger    *slog.Logger
}

// NewGrid creates a Grid strategy. A nil Rounding defaults to the identity.
func NewGrid(cfg GridConfig, logger *slog.Logger) *Grid {
	if cfg.Rounding == nil {
		cfg.Rounding = RoundIdentity()
	}
	return &Grid{
		cfg:     cfg,
		balance: cfg.InitialBalance,
		orders:  domain.NewOrderRegistry(),
		logger:  logger.With(slog.String("strategy", "grid")),
	}
}

// Name returns the strategy identifier.
func (g *Grid) Name() string { return "grid" }

// UpdatePrice records the latest market price.
func (g *Grid) UpdatePrice(price float64) {
	g.price = price
	g.havePrice = true
}

// GenerateQuotes regenerates the buy ladder when inventory is flat and no
// live order remains, promotes pending paired sells to active, and returns
// the quotable buy and sell prices. Calling it repeatedly without fills in
// between is idempotent.
func (g *Grid) GenerateQuotes() ([]float64, []float64) {
	if !g.havePrice {
		return nil, nil
	}

	noBuys := g.orders.LiveCount(domain.SideBuy) == 0
	noSells := g.orders.LiveCount(domain.SideSell) == 0

	if g.inventory == 0 && noBuys && noSells {
		for i := 1; i <= g.cfg.GridLevels; i++ {
			price := g.cfg.Rounding(g.price - float64(i)*g.cfg.GridSpacing)
			if price <= 0 {
				continue
			}
			order := domain.Order{
				ID:     uuid.NewString(),
				Side:   domain.SideBuy,
				Price:  price,
				Size:   g.cfg.QuoteSize,
				Status: domain.OrderStatusActive,
			}
			if err := g.orders.Add(order); err != nil {
				g.logger.Warn("grid level not placed",
					slog.Float64("price", price),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	// Paired sells created on the previous buy fill become quotable now.
	g.orders.Promote(domain.SideSell)

	var buys, sells []float64
	for _, o := range g.orders.Live(domain.SideBuy) {
		buys = append(buys, o.Price)
	}
	for _, o := range g.orders.Live(domain.SideSell) {
		if o.Status == domain.OrderStatusActive {
			sells = append(sells, o.Price)
		}
	}
	return buys, sells
}

// QuoteSize returns the per-level order size.
func (g *Grid) QuoteSize() float64 { return g.cfg.QuoteSize }

// Fill applies one executed trade against the resting order at the given
// price. A buy fill marks the matched order executed and schedules a paired
// sell one spacing above, unless that price is already occupied. A sell
// beyond held inventory is rejected and changes nothing.
func (g *Grid) Fill(price, size float64, side domain.Side) (float64, error) {
	if side == domain.SideBuy {
		return g.fillBuy(price, size), nil
	}
	return g.fillSell(price, size)
}

func (g *Grid) fillBuy(price, size float64) float64 {
	matched, ok := g.orders.FindLiveByPrice(domain.SideBuy, price)
	if ok {
		_ = g.orders.SetStatus(matched.ID, domain.OrderStatusExecuted)
		g.scheduleSell(matched, price)
	} else {
		g.logger.Warn("buy fill did not match an active buy order",
			slog.Float64("price", price),
		)
	}

	fee := price * size * g.cfg.FeeBps / 10000
	g.pnl -= price*size + fee
	g.inventory += size
	g.balance = g.cfg.InitialBalance + g.pnl
	return fee
}

func (g *Grid) fillSell(price, size float64) (float64, error) {
	if g.inventory < size {
		g.logger.Warn("sell rejected, insufficient inventory",
			slog.Float64("price", price),
			slog.Float64("size", size),
			slog.Float64("inventory", g.inventory),
		)
		return 0, domain.ErrInsufficientInventory
	}

	matched, ok := g.orders.FindLiveByPrice(domain.SideSell, price)
	if ok && matched.Status == domain.OrderStatusActive {
		_ = g.orders.SetStatus(matched.ID, domain.OrderStatusExecuted)
	} else {
		g.logger.Warn("sell fill did not match an active sell order",
			slog.Float64("price", price),
		)
	}

	fee := price * size * g.cfg.FeeBps / 10000
	g.pnl += price*size - fee
	g.inventory -= size
	g.balance = g.cfg.InitialBalance + g.pnl
	return fee, nil
}

// scheduleSell creates the paired sell for an executed buy. The sell starts
// pending and is promoted on the next GenerateQuotes call. Collisions with an
// existing live order are diagnosed and skipped; the buy fill itself stands.
func (g *Grid) scheduleSell(buy domain.Order, fillPrice float64) {
	sellPrice := g.cfg.Rounding(fillPrice + g.cfg.GridSpacing)
	if sellPrice <= 0 {
		g.logger.Warn("paired sell price invalid, sell not scheduled",
			slog.Float64("sell_price", sellPrice),
		)
		return
	}
	if g.orders.PriceOccupied(sellPrice) {
		g.logger.Warn("paired sell collides with a live order, sell not scheduled",
			slog.Float64("sell_price", sellPrice),
		)
		return
	}

	sell := domain.Order{
		ID:     uuid.NewString(),
		Side:   domain.SideSell,
		Price:  sellPrice,
		Size:   buy.Size,
		Status: domain.OrderStatusPending,
	}
	if err := g.orders.Add(sell); err != nil {
		g.logger.Warn("paired sell not scheduled", slog.String("error", err.Error()))
	}
}

// OpenOrders reports the live buy and sell order counts.
func (g *Grid) OpenOrders() (int, int) {
	return g.orders.LiveCount(domain.SideBuy), g.orders.LiveCount(domain.SideSell)
}

// PnL returns the cumulative realised profit and loss.
func (g *Grid) PnL() float64 { return g.pnl }

// Inventory returns the currently held base-asset amount.
func (g *Grid) Inventory() float64 { return g.inventory }

// Balance returns the quote-currency balance implied by the initial balance
// plus realised pnl.
func (g *Grid) Balance() float64 { return g.balance }

var _ Ladder = (*Grid)(nil)
