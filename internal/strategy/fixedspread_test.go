package strategy

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makersim/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFixedSpreadQuotesBeforePrice(t *testing.T) {
	s := NewFixedSpread(FixedSpreadConfig{QuoteSize: 0.1, SpreadBps: 10}, testLogger())

	_, _, err := s.Quotes()
	require.ErrorIs(t, err, domain.ErrNoQuote)

	bid, ask := s.LastQuotes()
	assert.Nil(t, bid)
	assert.Nil(t, ask)
}

func TestFixedSpreadSymmetricQuotes(t *testing.T) {
	s := NewFixedSpread(FixedSpreadConfig{QuoteSize: 0.1, SpreadBps: 100}, testLogger())
	s.UpdatePrice(100)

	bid, ask, err := s.Quotes()
	require.NoError(t, err)
	assert.InDelta(t, 99.5, bid, 1e-9)
	assert.InDelta(t, 100.5, ask, 1e-9)
}

func TestFixedSpreadZeroSpreadQuotesAtPrice(t *testing.T) {
	s := NewFixedSpread(FixedSpreadConfig{QuoteSize: 0.1}, testLogger())
	s.UpdatePrice(101)

	bid, ask, err := s.Quotes()
	require.NoError(t, err)
	assert.Equal(t, 101.0, bid)
	assert.Equal(t, 101.0, ask)
}

func TestFixedSpreadFillAccounting(t *testing.T) {
	s := NewFixedSpread(FixedSpreadConfig{QuoteSize: 0.1, AllowShort: true}, testLogger())

	require.NoError(t, s.Fill(99, 0.1, 0, domain.SideBuy))
	assert.InDelta(t, -9.9, s.PnL(), 1e-9)
	assert.InDelta(t, 0.1, s.Inventory(), 1e-9)

	require.NoError(t, s.Fill(101, 0.1, 0.05, domain.SideSell))
	assert.InDelta(t, -9.9+10.1-0.05, s.PnL(), 1e-9)
	assert.InDelta(t, 0, s.Inventory(), 1e-9)
}

func TestFixedSpreadShortSellAllowed(t *testing.T) {
	s := NewFixedSpread(FixedSpreadConfig{QuoteSize: 0.1, AllowShort: true}, testLogger())

	require.NoError(t, s.Fill(101, 0.1, 0, domain.SideSell))
	assert.InDelta(t, 10.1, s.PnL(), 1e-9)
	assert.InDelta(t, -0.1, s.Inventory(), 1e-9)
}

func TestFixedSpreadLongOnlyRejectsShortSell(t *testing.T) {
	s := NewFixedSpread(FixedSpreadConfig{QuoteSize: 0.1, AllowShort: false}, testLogger())

	err := s.Fill(101, 0.1, 0, domain.SideSell)
	require.ErrorIs(t, err, domain.ErrInsufficientInventory)
	assert.Zero(t, s.PnL())
	assert.Zero(t, s.Inventory())

	// A sell covered by held inventory still goes through.
	require.NoError(t, s.Fill(99, 0.1, 0, domain.SideBuy))
	require.NoError(t, s.Fill(101, 0.1, 0, domain.SideSell))
	assert.InDelta(t, 0.2, s.PnL(), 1e-9)
	assert.InDelta(t, 0, s.Inventory(), 1e-9)
}
