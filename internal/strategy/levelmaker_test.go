package strategy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makersim/internal/domain"
)

// fakeGateway is a minimal in-memory order gateway for exercising LevelMaker
// without the full simulated exchange.
type fakeGateway struct {
	balance    float64
	nextID     int
	placed     []domain.Order
	cancelled  []string
	refuseBuys bool
}

func (f *fakeGateway) place(side domain.Side, size, price float64) (string, error) {
	f.nextID++
	id := fmt.Sprintf("o%d", f.nextID)
	f.placed = append(f.placed, domain.Order{ID: id, Side: side, Price: price, Size: size})
	return id, nil
}

func (f *fakeGateway) PlaceLimitBuy(_ context.Context, _ string, size, price float64) (string, error) {
	if f.refuseBuys {
		return "", domain.ErrInsufficientBalance
	}
	return f.place(domain.SideBuy, size, price)
}

func (f *fakeGateway) PlaceLimitSell(_ context.Context, _ string, size, price float64) (string, error) {
	return f.place(domain.SideSell, size, price)
}

func (f *fakeGateway) Cancel(_ context.Context, id string) (bool, error) {
	f.cancelled = append(f.cancelled, id)
	return true, nil
}

func (f *fakeGateway) Balance(context.Context) (float64, error) {
	return f.balance, nil
}

func newTestLevelMaker(gw domain.OrderGateway, levels []float64, increment float64) *LevelMaker {
	return NewLevelMaker(LevelMakerConfig{
		Symbol:      "BTCUSDT",
		OrderSize:   1,
		PriceLevels: levels,
		Increment:   increment,
	}, gw, testLogger())
}

func TestLevelMakerEntryBudget(t *testing.T) {
	m := newTestLevelMaker(&fakeGateway{}, []float64{98, 90, 95}, 5)

	m.UpdateBalance(100)
	assert.Equal(t, 1, m.MaxEntryPoints(), "100 covers one order at the lowest level 90")

	m.UpdateBalance(280)
	assert.Equal(t, 3, m.MaxEntryPoints())

	m.UpdateBalance(0)
	assert.Equal(t, 0, m.MaxEntryPoints())
}

func TestLevelMakerStartPlacesLowestLevelsFirst(t *testing.T) {
	gw := &fakeGateway{balance: 190}
	m := newTestLevelMaker(gw, []float64{98, 90, 95}, 5)

	require.NoError(t, m.Start(context.Background()))

	require.Len(t, gw.placed, 2)
	assert.Equal(t, 90.0, gw.placed[0].Price)
	assert.Equal(t, 95.0, gw.placed[1].Price)

	buys, sells := m.OpenOrders()
	assert.Equal(t, 2, buys)
	assert.Equal(t, 0, sells)
}

func TestLevelMakerBuyFillPairsSellAndReplenishes(t *testing.T) {
	gw := &fakeGateway{balance: 100}
	m := newTestLevelMaker(gw, []float64{90, 95, 98}, 5)
	require.NoError(t, m.Start(context.Background()))
	require.Len(t, gw.placed, 1)
	buyID := gw.placed[0].ID

	kind, err := m.HandleFill(context.Background(), buyID, 90, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, FillBuy, kind)
	assert.InDelta(t, -90, m.PnL(), 1e-9)
	assert.InDelta(t, 1, m.Inventory(), 1e-9)

	// One paired sell at fill+increment, one replenished buy at the freed level.
	require.Len(t, gw.placed, 3)
	assert.Equal(t, domain.SideSell, gw.placed[1].Side)
	assert.Equal(t, 95.0, gw.placed[1].Price)
	assert.Equal(t, domain.SideBuy, gw.placed[2].Side)
	assert.Equal(t, 90.0, gw.placed[2].Price)

	buys, sells := m.OpenOrders()
	assert.Equal(t, 1, buys)
	assert.Equal(t, 1, sells)
}

func TestLevelMakerSellFillRoundTrip(t *testing.T) {
	gw := &fakeGateway{balance: 100}
	m := newTestLevelMaker(gw, []float64{90, 95, 98}, 5)
	require.NoError(t, m.Start(context.Background()))

	_, err := m.HandleFill(context.Background(), gw.placed[0].ID, 90, 1, 0)
	require.NoError(t, err)
	sellID := gw.placed[1].ID

	kind, err := m.HandleFill(context.Background(), sellID, 95, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, FillSell, kind)
	assert.InDelta(t, 5, m.PnL(), 1e-9)
	assert.InDelta(t, 0, m.Inventory(), 1e-9)

	buys, sells := m.OpenOrders()
	assert.Equal(t, 1, buys, "the replenished buy still rests")
	assert.Equal(t, 0, sells)
}

func TestLevelMakerUnknownFill(t *testing.T) {
	gw := &fakeGateway{balance: 100}
	m := newTestLevelMaker(gw, []float64{90}, 5)
	require.NoError(t, m.Start(context.Background()))

	kind, err := m.HandleFill(context.Background(), "bogus", 90, 1, 0)
	require.ErrorIs(t, err, domain.ErrUnknownOrder)
	assert.Equal(t, FillUnknown, kind)
	assert.Zero(t, m.PnL())
	assert.Zero(t, m.Inventory())
}

func TestLevelMakerPlacementRefusalStopsLadder(t *testing.T) {
	gw := &fakeGateway{balance: 1000, refuseBuys: true}
	m := newTestLevelMaker(gw, []float64{90, 95, 98}, 5)

	require.NoError(t, m.Start(context.Background()))
	buys, _ := m.OpenOrders()
	assert.Equal(t, 0, buys)
}

func TestLevelMakerCancelBuyReplenishes(t *testing.T) {
	gw := &fakeGateway{balance: 100}
	m := newTestLevelMaker(gw, []float64{90, 95, 98}, 5)
	require.NoError(t, m.Start(context.Background()))
	buyID := gw.placed[0].ID

	ok, err := m.CancelOrder(context.Background(), buyID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{buyID}, gw.cancelled)

	// The freed slot is refilled from the lowest unoccupied level.
	buys, _ := m.OpenOrders()
	assert.Equal(t, 1, buys)

	_, err = m.CancelOrder(context.Background(), "bogus")
	require.ErrorIs(t, err, domain.ErrUnknownOrder)
}
