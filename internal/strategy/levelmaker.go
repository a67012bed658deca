package strategy

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"

	"makersim/internal/domain"
)

// LevelMakerConfig configures a LevelMaker strategy.
type LevelMakerConfig struct {
	Symbol    string
	OrderSize float64

	// PriceLevels are the absolute prices at which buy orders rest. They are
	// sorted ascending at construction; the lowest level anchors the entry
	// budget calculation.
	PriceLevels []float64

	// Increment is the fixed absolute offset above a buy fill at which the
	// paired sell is placed.
	Increment float64
}

// filledBuy records an executed buy for later inspection.
type filledBuy struct {
	Price float64
	Size  float64
	Fee   float64
}

// LevelMaker rests buy orders at fixed absolute price levels through an
// injected order gateway, bounded by a capital-derived entry budget. Each buy
// fill places one sell at a fixed increment above the fill price and
// replenishes the buy ladder from the lowest unoccupied level.
type LevelMaker struct {
	cfg     LevelMakerConfig
	gateway domain.OrderGateway
	logger  *slog.Logger

	pnl        float64
	inventory  float64
	balance    float64
	maxEntries int

	activeBuys  map[string]domain.Order
	activeSells map[string]domain.Order
	filledBuys  map[string]filledBuy
}

// NewLevelMaker creates a LevelMaker bound to the given order gateway.
func NewLevelMaker(cfg LevelMakerConfig, gateway domain.OrderGateway, logger *slog.Logger) *LevelMaker {
	levels := append([]float64(nil), cfg.PriceLevels...)
	sort.Float64s(levels)
	cfg.PriceLevels = levels

	return &LevelMaker{
		cfg:         cfg,
		gateway:     gateway,
		logger:      logger.With(slog.String("strategy", "level_maker")),
		activeBuys:  make(map[string]domain.Order),
		activeSells: make(map[string]domain.Order),
		filledBuys:  make(map[string]filledBuy),
	}
}

// Name returns the strategy identifier.
func (m *LevelMaker) Name() string { return "level_maker" }

// UpdatePrice is a no-op: the level maker quotes fixed absolute levels and
// does not follow the market price.
func (m *LevelMaker) UpdatePrice(float64) {}

// UpdateBalance recomputes the entry budget from the given balance. The
// budget is the number of lowest-level orders the balance can cover; any
// degenerate input yields zero.
func (m *LevelMaker) UpdateBalance(balance float64) {
	m.balance = balance
	if m.cfg.OrderSize <= 0 || balance <= 0 || len(m.cfg.PriceLevels) == 0 || m.cfg.PriceLevels[0] <= 0 {
		m.maxEntries = 0
		return
	}
	m.maxEntries = int(math.Floor(balance / (m.cfg.PriceLevels[0] * m.cfg.OrderSize)))
}

// Start queries the gateway balance, derives the entry budget, and places the
// initial ladder of buy orders. It is called once per run.
func (m *LevelMaker) Start(ctx context.Context) error {
	balance, err := m.gateway.Balance(ctx)
	if err != nil {
		return err
	}
	m.UpdateBalance(balance)
	m.placeInitialBuyOrders(ctx)

	m.logger.Info("level maker started",
		slog.Float64("balance", balance),
		slog.Int("max_entries", m.maxEntries),
		slog.Int("active_buys", len(m.activeBuys)),
	)
	return nil
}

// placeInitialBuyOrders walks the price levels in ascending order, resting
// one buy per level until the entry budget is reached. Levels already
// occupied are skipped; a placement failure is treated as capital exhaustion
// and stops the walk.
func (m *LevelMaker) placeInitialBuyOrders(ctx context.Context) {
	for _, level := range m.cfg.PriceLevels {
		if len(m.activeBuys) >= m.maxEntries {
			return
		}
		if m.hasBuyAt(level) {
			continue
		}
		if !m.placeBuy(ctx, level) {
			return
		}
	}
}

// placeBuy rests one buy at the given level. It returns false when the
// gateway refused the order.
func (m *LevelMaker) placeBuy(ctx context.Context, level float64) bool {
	id, err := m.gateway.PlaceLimitBuy(ctx, m.cfg.Symbol, m.cfg.OrderSize, level)
	if err != nil {
		m.logger.Warn("buy placement refused",
			slog.Float64("price", level),
			slog.String("error", err.Error()),
		)
		return false
	}
	m.activeBuys[id] = domain.Order{
		ID:     id,
		Side:   domain.SideBuy,
		Price:  level,
		Size:   m.cfg.OrderSize,
		Status: domain.OrderStatusActive,
	}
	return true
}

// HandleFill processes a full fill of the order with the given ID. Buy fills
// debit pnl, credit inventory, place the paired sell, and replenish the buy
// ladder; sell fills do the reverse bookkeeping and replenish. Unknown IDs
// are diagnosed and change nothing.
func (m *LevelMaker) HandleFill(ctx context.Context, orderID string, price, size, fee float64) (FillKind, error) {
	if _, ok := m.activeBuys[orderID]; ok {
		m.pnl -= price*size + fee
		m.inventory += size
		delete(m.activeBuys, orderID)
		m.filledBuys[orderID] = filledBuy{Price: price, Size: size, Fee: fee}

		if m.inventory > 0 {
			m.placePairedSell(ctx, price, size)
		}
		m.replenish(ctx)
		return FillBuy, nil
	}

	if _, ok := m.activeSells[orderID]; ok {
		m.pnl += price*size - fee
		m.inventory -= size
		delete(m.activeSells, orderID)
		m.replenish(ctx)
		return FillSell, nil
	}

	m.logger.Warn("fill notification for untracked order",
		slog.String("order_id", orderID),
		slog.Float64("price", price),
	)
	return FillUnknown, domain.ErrUnknownOrder
}

// placePairedSell rests the sell paired to a buy fill at price+increment. A
// collision with a live order on either side is diagnosed and skipped; the
// buy fill itself stands.
func (m *LevelMaker) placePairedSell(ctx context.Context, fillPrice, size float64) {
	sellPrice := fillPrice + m.cfg.Increment
	if m.hasBuyAt(sellPrice) || m.hasSellAt(sellPrice) {
		m.logger.Warn("paired sell collides with a live order, sell not placed",
			slog.Float64("sell_price", sellPrice),
		)
		return
	}

	id, err := m.gateway.PlaceLimitSell(ctx, m.cfg.Symbol, size, sellPrice)
	if err != nil {
		m.logger.Warn("sell placement refused",
			slog.Float64("price", sellPrice),
			slog.String("error", err.Error()),
		)
		return
	}
	m.activeSells[id] = domain.Order{
		ID:     id,
		Side:   domain.SideSell,
		Price:  sellPrice,
		Size:   size,
		Status: domain.OrderStatusActive,
	}
}

// replenish tops the buy ladder back up to the entry budget, walking the
// levels in ascending order and resting a buy at the first unoccupied one.
// The first placement failure stops the walk: the gateway is signalling
// capital exhaustion.
func (m *LevelMaker) replenish(ctx context.Context) {
	for len(m.activeBuys) < m.maxEntries {
		level, ok := m.firstFreeLevel()
		if !ok {
			return
		}
		if !m.placeBuy(ctx, level) {
			return
		}
	}
}

// firstFreeLevel returns the lowest price level with no active buy.
func (m *LevelMaker) firstFreeLevel() (float64, bool) {
	for _, level := range m.cfg.PriceLevels {
		if !m.hasBuyAt(level) {
			return level, true
		}
	}
	return 0, false
}

// CancelOrder cancels a tracked order through the gateway. Cancelling a buy
// frees an entry slot and triggers replenishment.
func (m *LevelMaker) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	_, isBuy := m.activeBuys[orderID]
	if !isBuy {
		if _, isSell := m.activeSells[orderID]; !isSell {
			return false, domain.ErrUnknownOrder
		}
	}

	ok, err := m.gateway.Cancel(ctx, orderID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if isBuy {
		delete(m.activeBuys, orderID)
		m.replenish(ctx)
	} else {
		delete(m.activeSells, orderID)
	}
	return true, nil
}

func (m *LevelMaker) hasBuyAt(price float64) bool {
	for _, o := range m.activeBuys {
		if o.Price == price {
			return true
		}
	}
	return false
}

func (m *LevelMaker) hasSellAt(price float64) bool {
	for _, o := range m.activeSells {
		if o.Price == price {
			return true
		}
	}
	return false
}

// OpenOrders reports the live buy and sell order counts.
func (m *LevelMaker) OpenOrders() (int, int) {
	return len(m.activeBuys), len(m.activeSells)
}

// MaxEntryPoints returns the current entry budget.
func (m *LevelMaker) MaxEntryPoints() int { return m.maxEntries }

// PnL returns the cumulative realised profit and loss.
func (m *LevelMaker) PnL() float64 { return m.pnl }

// Inventory returns the currently held base-asset amount.
func (m *LevelMaker) Inventory() float64 { return m.inventory }

var _ OrderPlacer = (*LevelMaker)(nil)
