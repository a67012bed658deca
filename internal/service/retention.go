package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"makersim/internal/domain"
)

// RetentionWorker moves old run trades from the database to S3 cold storage.
// Each cycle archives rows older than the retention window and deletes them
// only after the archive upload succeeded.
type RetentionWorker struct {
	archiver      domain.Archiver
	trades        domain.TradeStore
	retentionDays int
	interval      time.Duration
	logger        *slog.Logger
}

// NewRetentionWorker creates a RetentionWorker. A non-positive interval
// defaults to one cycle per day.
func NewRetentionWorker(
	archiver domain.Archiver,
	trades domain.TradeStore,
	retentionDays int,
	interval time.Duration,
	logger *slog.Logger,
) *RetentionWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionWorker{
		archiver:      archiver,
		trades:        trades,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger.With(slog.String("component", "retention")),
	}
}

// Run executes archive cycles until the context is cancelled. The first cycle
// runs immediately. Cycle failures are logged and retried on the next tick.
func (w *RetentionWorker) Run(ctx context.Context) error {
	if err := w.runOnce(ctx); err != nil {
		w.logger.ErrorContext(ctx, "archive cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "archive cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runOnce archives and then deletes trades older than the retention cutoff.
func (w *RetentionWorker) runOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(w.retentionDays) * 24 * time.Hour)

	archived, err := w.archiver.ArchiveTrades(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("service: archive trades before %v: %w", cutoff, err)
	}
	if archived == 0 {
		return nil
	}

	deleted, err := w.trades.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("service: delete archived trades: %w", err)
	}

	w.logger.InfoContext(ctx, "archive cycle complete",
		slog.Time("cutoff", cutoff),
		slog.Int64("archived", archived),
		slog.Int64("deleted", deleted),
	)
	return nil
}
