package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makersim/internal/domain"
)

type countingArchiver struct {
	memArchiver
	archiveCount int64
	archiveErr   error
	cutoffs      []time.Time
}

func (a *countingArchiver) ArchiveTrades(_ context.Context, before time.Time) (int64, error) {
	a.cutoffs = append(a.cutoffs, before)
	return a.archiveCount, a.archiveErr
}

type deletingTradeStore struct {
	memTradeStore
	deleted   int64
	deleteErr error
	calls     int
}

func (s *deletingTradeStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	s.calls++
	return s.deleted, s.deleteErr
}

func TestRetentionArchivesThenDeletes(t *testing.T) {
	archiver := &countingArchiver{archiveCount: 12}
	trades := &deletingTradeStore{deleted: 12}
	w := NewRetentionWorker(archiver, trades, 90, time.Hour, testLogger())

	require.NoError(t, w.runOnce(context.Background()))
	assert.Equal(t, 1, trades.calls)

	require.Len(t, archiver.cutoffs, 1)
	wantCutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)
	assert.WithinDuration(t, wantCutoff, archiver.cutoffs[0], time.Minute)
}

func TestRetentionSkipsDeleteWhenNothingArchived(t *testing.T) {
	archiver := &countingArchiver{archiveCount: 0}
	trades := &deletingTradeStore{}
	w := NewRetentionWorker(archiver, trades, 90, time.Hour, testLogger())

	require.NoError(t, w.runOnce(context.Background()))
	assert.Zero(t, trades.calls)
}

func TestRetentionSkipsDeleteOnArchiveFailure(t *testing.T) {
	archiver := &countingArchiver{archiveErr: errors.New("bucket unreachable")}
	trades := &deletingTradeStore{}
	w := NewRetentionWorker(archiver, trades, 90, time.Hour, testLogger())

	require.Error(t, w.runOnce(context.Background()))
	assert.Zero(t, trades.calls, "rows must survive a failed archive upload")
}

func TestRetentionRunStopsOnCancel(t *testing.T) {
	archiver := &countingArchiver{}
	trades := &deletingTradeStore{}
	w := NewRetentionWorker(archiver, trades, 90, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The immediate first cycle ran before the ticker wait.
	assert.Len(t, archiver.cutoffs, 1)
}

var _ domain.Archiver = (*countingArchiver)(nil)
var _ domain.TradeStore = (*deletingTradeStore)(nil)
