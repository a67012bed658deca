package strategy

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"makersim/internal/domain"
)

// Builder constructs a fresh strategy instance from run parameters. Backtests
// are stateful, so every run (and every sweep point) gets its own instance.
type Builder func(params domain.RunParams, gateway domain.OrderGateway, logger *slog.Logger) (Strategy, error)

// Registry manages a named collection of strategy builders that can be looked
// up at runtime. It is safe for concurrent use.
type Registry struct {
	builders map[string]Builder
	mu       sync.RWMutex
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
	}
}

// Register adds a builder to the registry under the given name.
// If a builder with the same name already exists it will be replaced.
func (r *Registry) Register(name string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = b
}

// Build constructs a fresh instance of the named strategy. It returns an
// error when the name is not registered or the builder rejects the params.
func (r *Registry) Build(name string, params domain.RunParams, gateway domain.OrderGateway, logger *slog.Logger) (Strategy, error) {
	r.mu.RLock()
	b, ok := r.builders[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy %q: not registered", name)
	}
	return b(params, gateway, logger)
}

// List returns the names of all registered builders in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for n := range r.builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("fixed_spread", func(params domain.RunParams, _ domain.OrderGateway, logger *slog.Logger) (Strategy, error) {
		if params.OrderSize <= 0 {
			return nil, fmt.Errorf("strategy fixed_spread: order size must be positive")
		}
		return NewFixedSpread(FixedSpreadConfig{
			QuoteSize:  params.OrderSize,
			SpreadBps:  params.SpreadBps,
			AllowShort: !params.LongOnly,
		}, logger), nil
	})

	r.Register("grid", func(params domain.RunParams, _ domain.OrderGateway, logger *slog.Logger) (Strategy, error) {
		if params.OrderSize <= 0 {
			return nil, fmt.Errorf("strategy grid: order size must be positive")
		}
		if params.GridLevels <= 0 || params.GridSpacing <= 0 {
			return nil, fmt.Errorf("strategy grid: levels and spacing must be positive")
		}
		return NewGrid(GridConfig{
			QuoteSize:      params.OrderSize,
			GridLevels:     params.GridLevels,
			GridSpacing:    params.GridSpacing,
			FeeBps:         params.FeeBps,
			InitialBalance: params.InitialCapital,
			Rounding:       gridRounding(params),
		}, logger), nil
	})

	r.Register("level_maker", func(params domain.RunParams, gateway domain.OrderGateway, logger *slog.Logger) (Strategy, error) {
		if gateway == nil {
			return nil, fmt.Errorf("strategy level_maker: order gateway required")
		}
		if params.OrderSize <= 0 {
			return nil, fmt.Errorf("strategy level_maker: order size must be positive")
		}
		if len(params.PriceLevels) == 0 {
			return nil, fmt.Errorf("strategy level_maker: at least one price level required")
		}
		return NewLevelMaker(LevelMakerConfig{
			Symbol:      params.Symbol,
			OrderSize:   params.OrderSize,
			PriceLevels: params.PriceLevels,
			Increment:   params.Increment,
		}, gateway, logger), nil
	})

	return r
}

// gridRounding picks the price rounding rule for the grid strategy. A tick
// size takes precedence over a decimal precision; with neither set, prices
// pass through unrounded.
func gridRounding(params domain.RunParams) Rounding {
	switch {
	case params.GridTickSize > 0:
		return RoundTick(params.GridTickSize)
	case params.GridPriceDecimals > 0:
		return RoundDecimals(params.GridPriceDecimals)
	default:
		return RoundIdentity()
	}
}
