package domain

import (
	"context"
	"time"
)

// RunStatus is the live progress snapshot of a run, cached for dashboards.
type RunStatus struct {
	RunID     string    `json:"run_id"`
	State     RunState  `json:"state"`
	Ticks     int       `json:"ticks"`
	Trades    int       `json:"trades"`
	PnL       float64   `json:"pnl"`
	Inventory float64   `json:"inventory"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunStatusCache caches live run progress.
type RunStatusCache interface {
	Set(ctx context.Context, status RunStatus) error
	Get(ctx context.Context, runID string) (RunStatus, error)
}

// SweepBoard ranks sweep points by final PnL.
type SweepBoard interface {
	Record(ctx context.Context, sweepID string, point SweepPoint) error
	Top(ctx context.Context, sweepID string, n int) ([]SweepPoint, error)
}

// ProgressBus is a publish/subscribe fan-out for run progress events. The
// engine publishes; the WebSocket hub and any other listeners subscribe.
type ProgressBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
