package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"makersim/internal/domain"
)

// statusTTL bounds how long a run's progress snapshot survives after the last
// update. Finished runs live in Postgres; the cache only serves live views.
const statusTTL = 24 * time.Hour

// RunStatusCache implements domain.RunStatusCache using Redis string keys.
// Each run's progress is stored as JSON at key "run_status:{runID}".
type RunStatusCache struct {
	rdb *redis.Client
}

// NewRunStatusCache creates a RunStatusCache backed by the given Client.
func NewRunStatusCache(c *Client) *RunStatusCache {
	return &RunStatusCache{rdb: c.Underlying()}
}

func statusKey(runID string) string {
	return "run_status:" + runID
}

// Set stores the latest progress snapshot for a run.
func (rc *RunStatusCache) Set(ctx context.Context, status domain.RunStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("redis: encode run status: %w", err)
	}
	if err := rc.rdb.Set(ctx, statusKey(status.RunID), payload, statusTTL).Err(); err != nil {
		return fmt.Errorf("redis: set run status %s: %w", status.RunID, err)
	}
	return nil
}

// Get retrieves the latest progress snapshot for a run. It returns
// domain.ErrNotFound when the key does not exist.
func (rc *RunStatusCache) Get(ctx context.Context, runID string) (domain.RunStatus, error) {
	payload, err := rc.rdb.Get(ctx, statusKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RunStatus{}, domain.ErrNotFound
		}
		return domain.RunStatus{}, fmt.Errorf("redis: get run status %s: %w", runID, err)
	}

	var status domain.RunStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return domain.RunStatus{}, fmt.Errorf("redis: decode run status %s: %w", runID, err)
	}
	return status, nil
}

// Compile-time interface check.
var _ domain.RunStatusCache = (*RunStatusCache)(nil)
