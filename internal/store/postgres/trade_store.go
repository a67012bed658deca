package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"makersim/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `traded_at, side, price, size, fee, pnl, inventory,
	market_price, COALESCE(order_id, '')`

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(
			&t.Time, &t.Side, &t.Price, &t.Size, &t.Fee,
			&t.PnL, &t.Inventory, &t.MarketPrice, &t.OrderID,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// InsertBatch inserts a run's trade log efficiently using pgx Batch. The
// sequence number preserves the original fill order, which trade timestamps
// alone cannot guarantee when several fills share one tick.
func (s *TradeStore) InsertBatch(ctx context.Context, runID string, trades []domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO run_trades (
			run_id, seq, traded_at, side, price, size, fee,
			pnl, inventory, market_price, order_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, NULLIF($11, '')
		) ON CONFLICT (run_id, seq) DO NOTHING`

	for seq, t := range trades {
		batch.Queue(query,
			runID, seq, t.Time, t.Side, t.Price, t.Size, t.Fee,
			t.PnL, t.Inventory, t.MarketPrice, t.OrderID,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListByRun returns a run's trades in fill order with pagination and optional
// time filtering.
func (s *TradeStore) ListByRun(ctx context.Context, runID string, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM run_trades WHERE run_id = $1`
	args := []any{runID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND traded_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND traded_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY seq ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by run: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by run: %w", err)
	}
	return trades, nil
}

// ListBefore returns all trades executed strictly before the given time, oldest
// first (for archiving).
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM run_trades WHERE traded_at < $1 ORDER BY traded_at ASC, seq ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes all trades executed before the given time. Returns the
// number deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM run_trades WHERE traded_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
