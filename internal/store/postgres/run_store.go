package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"makersim/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

const runSelectCols = `run_id, strategy, params, final_pnl, total_trades,
	final_inventory, started_at, finished_at`

func scanRunRows(rows pgx.Rows) ([]domain.RunSummary, error) {
	var runs []domain.RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (domain.RunSummary, error) {
	var (
		r      domain.RunSummary
		params []byte
	)
	if err := row.Scan(
		&r.RunID, &r.Params.Strategy, &params,
		&r.Summary.FinalPnL, &r.Summary.TotalTrades, &r.Summary.FinalInventory,
		&r.StartedAt, &r.FinishedAt,
	); err != nil {
		return domain.RunSummary{}, err
	}
	if err := json.Unmarshal(params, &r.Params); err != nil {
		return domain.RunSummary{}, fmt.Errorf("decode params: %w", err)
	}
	return r, nil
}

// Insert persists a run header. The full parameter set is stored as JSONB so
// strategy-specific fields survive without schema churn.
func (s *RunStore) Insert(ctx context.Context, run domain.RunSummary) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("postgres: encode run params: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO runs (
			run_id, strategy, params, final_pnl, total_trades,
			final_inventory, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.RunID, run.Params.Strategy, params,
		run.Summary.FinalPnL, run.Summary.TotalTrades, run.Summary.FinalInventory,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}
	return nil
}

// GetByID returns the run with the given ID, or domain.ErrNotFound.
func (s *RunStore) GetByID(ctx context.Context, runID string) (domain.RunSummary, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runSelectCols+` FROM runs WHERE run_id = $1`, runID)

	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RunSummary{}, domain.ErrNotFound
		}
		return domain.RunSummary{}, fmt.Errorf("postgres: get run: %w", err)
	}
	return r, nil
}

// List returns run headers, newest first, with pagination and optional time
// filtering on started_at.
func (s *RunStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.RunSummary, error) {
	query := `SELECT ` + runSelectCols + ` FROM runs`
	var args []any
	argIdx := 1

	var conds []string
	if opts.Since != nil {
		conds = append(conds, fmt.Sprintf("started_at >= $%d", argIdx))
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		conds = append(conds, fmt.Sprintf("started_at <= $%d", argIdx))
		args = append(args, *opts.Until)
		argIdx++
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	query += " ORDER BY started_at DESC"

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
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	runs, err := scanRunRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan runs: %w", err)
	}
	return runs, nil
}

// Count returns the total number of persisted runs.
func (s *RunStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count runs: %w", err)
	}
	return n, nil
}

var _ domain.RunStore = (*RunStore)(nil)
