package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"makersim/internal/domain"
)

// boardTTL bounds how long a sweep leaderboard survives. The aggregated sweep
// result is the durable record; the board only serves live ranking views.
const boardTTL = 24 * time.Hour

// SweepBoard implements domain.SweepBoard using a Redis sorted set per sweep.
// Members are JSON-encoded sweep points scored by final PnL, so ZREVRANGE
// yields the leaderboard directly.
type SweepBoard struct {
	rdb *redis.Client
}

// NewSweepBoard creates a SweepBoard backed by the given Client.
func NewSweepBoard(c *Client) *SweepBoard {
	return &SweepBoard{rdb: c.Underlying()}
}

func boardKey(sweepID string) string {
	return "sweep_board:" + sweepID
}

// Record adds a finished sweep point to the board.
func (sb *SweepBoard) Record(ctx context.Context, sweepID string, point domain.SweepPoint) error {
	member, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("redis: encode sweep point: %w", err)
	}

	key := boardKey(sweepID)
	pipe := sb.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  point.Summary.FinalPnL,
		Member: string(member),
	})
	pipe.Expire(ctx, key, boardTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: record sweep point %s: %w", sweepID, err)
	}
	return nil
}

// Top returns the n best points of a sweep, highest final PnL first. A sweep
// with no recorded points yields an empty slice.
func (sb *SweepBoard) Top(ctx context.Context, sweepID string, n int) ([]domain.SweepPoint, error) {
	members, err := sb.rdb.ZRevRange(ctx, boardKey(sweepID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: top sweep points %s: %w", sweepID, err)
	}

	points := make([]domain.SweepPoint, 0, len(members))
	for _, m := range members {
		var p domain.SweepPoint
		if err := json.Unmarshal([]byte(m), &p); err != nil {
			return nil, fmt.Errorf("redis: decode sweep point %s: %w", sweepID, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// Compile-time interface check.
var _ domain.SweepBoard = (*SweepBoard)(nil)
