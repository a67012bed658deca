package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makersim/internal/domain"
)

func newTestGrid(levels int, spacing, feeBps float64) *Grid {
	return NewGrid(GridConfig{
		QuoteSize:      0.1,
		GridLevels:     levels,
		GridSpacing:    spacing,
		FeeBps:         feeBps,
		InitialBalance: 1000,
	}, testLogger())
}

func TestGridNoQuotesBeforePrice(t *testing.T) {
	g := newTestGrid(3, 1, 0)

	buys, sells := g.GenerateQuotes()
	assert.Nil(t, buys)
	assert.Nil(t, sells)
}

func TestGridLadderBelowPrice(t *testing.T) {
	g := newTestGrid(3, 1, 0)
	g.UpdatePrice(100)

	buys, sells := g.GenerateQuotes()
	assert.Equal(t, []float64{99, 98, 97}, buys)
	assert.Empty(t, sells)
}

func TestGridGenerateQuotesIdempotent(t *testing.T) {
	g := newTestGrid(3, 1, 0)
	g.UpdatePrice(100)

	first, _ := g.GenerateQuotes()
	second, _ := g.GenerateQuotes()
	assert.Equal(t, first, second)

	buys, sells := g.OpenOrders()
	assert.Equal(t, 3, buys)
	assert.Equal(t, 0, sells)
}

func TestGridBuyFillSchedulesPairedSell(t *testing.T) {
	g := newTestGrid(1, 1, 50)
	g.UpdatePrice(100)
	g.GenerateQuotes()

	fee, err := g.Fill(99, 0.1, domain.SideBuy)
	require.NoError(t, err)
	assert.InDelta(t, 99*0.1*50/10000, fee, 1e-12)
	assert.InDelta(t, -(9.9 + fee), g.PnL(), 1e-9)
	assert.InDelta(t, 0.1, g.Inventory(), 1e-9)

	// The paired sell is pending until the next quote generation pass.
	_, sells := g.GenerateQuotes()
	assert.Equal(t, []float64{100}, sells)
}

func TestGridRoundTrip(t *testing.T) {
	g := newTestGrid(1, 1, 50)
	g.UpdatePrice(100)
	g.GenerateQuotes()

	buyFee, err := g.Fill(99, 0.1, domain.SideBuy)
	require.NoError(t, err)
	g.GenerateQuotes()
	sellFee, err := g.Fill(100, 0.1, domain.SideSell)
	require.NoError(t, err)

	want := -(9.9 + buyFee) + (10.0 - sellFee)
	assert.InDelta(t, want, g.PnL(), 1e-9)
	assert.InDelta(t, 0, g.Inventory(), 1e-9)
	assert.InDelta(t, 1000+want, g.Balance(), 1e-9)

	// Flat and empty: the next pass regenerates a fresh ladder.
	g.UpdatePrice(100)
	buys, sells := g.GenerateQuotes()
	assert.Equal(t, []float64{99}, buys)
	assert.Empty(t, sells)
}

func TestGridNoRegenerationWhileHoldingInventory(t *testing.T) {
	g := newTestGrid(2, 1, 0)
	g.UpdatePrice(100)
	g.GenerateQuotes()

	_, err := g.Fill(99, 0.1, domain.SideBuy)
	require.NoError(t, err)

	g.UpdatePrice(95)
	buys, sells := g.GenerateQuotes()
	assert.Equal(t, []float64{98}, buys, "remaining level only, no fresh ladder at the new price")
	assert.Equal(t, []float64{100}, sells)
}

func TestGridSellBeyondInventoryRejected(t *testing.T) {
	g := newTestGrid(1, 1, 0)
	g.UpdatePrice(100)
	g.GenerateQuotes()

	_, err := g.Fill(100, 0.1, domain.SideSell)
	require.ErrorIs(t, err, domain.ErrInsufficientInventory)
	assert.Zero(t, g.PnL())
	assert.Zero(t, g.Inventory())
}

func TestGridPairedSellCollisionSkipped(t *testing.T) {
	g := newTestGrid(2, 1, 0)
	g.UpdatePrice(100)
	g.GenerateQuotes() // buys at 99, 98

	// Fill 98 first: paired sell at 99 collides with the live buy at 99.
	_, err := g.Fill(98, 0.1, domain.SideBuy)
	require.NoError(t, err)

	_, sells := g.GenerateQuotes()
	assert.Empty(t, sells)
	assert.InDelta(t, 0.1, g.Inventory(), 1e-9, "the buy fill itself stands")
}

func TestGridRoundingAppliedToLadder(t *testing.T) {
	g := NewGrid(GridConfig{
		QuoteSize:   0.1,
		GridLevels:  2,
		GridSpacing: 0.333,
		Rounding:    RoundDecimals(1),
	}, testLogger())
	g.UpdatePrice(100)

	buys, _ := g.GenerateQuotes()
	assert.Equal(t, []float64{99.7, 99.3}, buys)
}
