package backtest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makersim/internal/domain"
)

func TestSweepParamsValidate(t *testing.T) {
	valid := SweepParams{OrderSize: 0.1, MinSpreadBps: 0, MaxSpreadBps: 50, StepBps: 5}
	require.NoError(t, valid.Validate())

	cases := map[string]SweepParams{
		"zero step":       {OrderSize: 0.1, MaxSpreadBps: 50},
		"negative step":   {OrderSize: 0.1, MaxSpreadBps: 50, StepBps: -5},
		"min above max":   {OrderSize: 0.1, MinSpreadBps: 60, MaxSpreadBps: 50, StepBps: 5},
		"zero order size": {MinSpreadBps: 0, MaxSpreadBps: 50, StepBps: 5},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, p.Validate())
		})
	}
}

func TestSweepSpreadExpansion(t *testing.T) {
	p := SweepParams{MinSpreadBps: 0, MaxSpreadBps: 10, StepBps: 5}
	assert.Equal(t, []float64{0, 5, 10}, p.spreads())

	single := SweepParams{MinSpreadBps: 20, MaxSpreadBps: 20, StepBps: 5}
	assert.Equal(t, []float64{20}, single.spreads())

	// A max that is not on the grid is not overshot.
	ragged := SweepParams{MinSpreadBps: 0, MaxSpreadBps: 12, StepBps: 5}
	assert.Equal(t, []float64{0, 5, 10}, ragged.spreads())
}

func TestSweepRunOrdersPointsBySpread(t *testing.T) {
	sw := NewSweeper(newTestEngine(), testLogger())

	// The tightest quote is the only one the feed ever crosses.
	ticks := []domain.Tick{
		tick(100, 1, true),
		tick(101, 1, true),
	}
	res, err := sw.Run(context.Background(), SweepParams{
		OrderSize:    0.1,
		MinSpreadBps: 0,
		MaxSpreadBps: 100,
		StepBps:      50,
		Concurrency:  2,
	}, ticks)
	require.NoError(t, err)

	require.Len(t, res.Points, 3)
	assert.Equal(t, 0.0, res.Points[0].SpreadBps)
	assert.Equal(t, 50.0, res.Points[1].SpreadBps)
	assert.Equal(t, 100.0, res.Points[2].SpreadBps)

	assert.InDelta(t, 20.1, res.Points[0].Summary.FinalPnL, 1e-9)
	assert.Zero(t, res.Points[1].Summary.FinalPnL)
	assert.Zero(t, res.Points[2].Summary.FinalPnL)

	seen := map[string]bool{}
	for _, pt := range res.Points {
		assert.NotEmpty(t, pt.RunID)
		assert.False(t, seen[pt.RunID], "run ids must be distinct")
		seen[pt.RunID] = true
	}

	require.NotNil(t, res.Best)
	assert.Equal(t, 0.0, res.Best.SpreadBps)
}

func TestSweepBestTieKeepsLowestSpread(t *testing.T) {
	sw := NewSweeper(newTestEngine(), testLogger())

	// An empty feed makes every point score zero.
	res, err := sw.Run(context.Background(), SweepParams{
		OrderSize:    0.1,
		MinSpreadBps: 10,
		MaxSpreadBps: 30,
		StepBps:      10,
	}, nil)
	require.NoError(t, err)

	require.NotNil(t, res.Best)
	assert.Equal(t, 10.0, res.Best.SpreadBps)
}

func TestSweepInvalidParams(t *testing.T) {
	sw := NewSweeper(newTestEngine(), testLogger())

	_, err := sw.Run(context.Background(), SweepParams{OrderSize: 0.1}, nil)
	require.Error(t, err)
}

type memSweepBoard struct {
	mu     sync.Mutex
	points []domain.SweepPoint
}

func (b *memSweepBoard) Record(_ context.Context, _ string, p domain.SweepPoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.points = append(b.points, p)
	return nil
}

func (b *memSweepBoard) Top(context.Context, string, int) ([]domain.SweepPoint, error) {
	return nil, nil
}

func TestSweepRecordsPointsOnBoard(t *testing.T) {
	board := &memSweepBoard{}
	sw := NewSweeper(newTestEngine(), testLogger(), WithSweepBoard(board))

	_, err := sw.Run(context.Background(), SweepParams{
		OrderSize:    0.1,
		MinSpreadBps: 0,
		MaxSpreadBps: 10,
		StepBps:      5,
	}, nil)
	require.NoError(t, err)

	assert.Len(t, board.points, 3)
}
