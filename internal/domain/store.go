package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// RunSummary is the persisted header of a run: parameters plus summary stats,
// without the tick-level detail (that lives in blob storage).
type RunSummary struct {
	RunID      string
	Params     RunParams
	Summary    SummaryStats
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunStore persists run headers.
type RunStore interface {
	Insert(ctx context.Context, run RunSummary) error
	GetByID(ctx context.Context, runID string) (RunSummary, error)
	List(ctx context.Context, opts ListOpts) ([]RunSummary, error)
	Count(ctx context.Context) (int64, error)
}

// TradeStore persists per-run trade logs.
type TradeStore interface {
	InsertBatch(ctx context.Context, runID string, trades []TradeRecord) error
	ListByRun(ctx context.Context, runID string, opts ListOpts) ([]TradeRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradeRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
