package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "makersim/internal/blob/s3"
	"makersim/internal/cache/redis"
	"makersim/internal/config"
	"makersim/internal/domain"
	"makersim/internal/store/postgres"
)

// Dependencies bundles every infrastructure dependency that the application
// modes need. Each group is optional: a disabled backend leaves its fields
// nil, and the service layer skips the corresponding steps.
type Dependencies struct {
	// Stores
	RunStore   domain.RunStore
	TradeStore domain.TradeStore

	// Caches
	StatusCache domain.RunStatusCache
	SweepBoard  domain.SweepBoard
	ProgressBus domain.ProgressBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver
}

// Wire constructs the concrete dependency implementations enabled in the
// given configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (run persistence) ---
	var pgTrades *postgres.TradeStore
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.RunStore = postgres.NewRunStore(pool)
		pgTrades = postgres.NewTradeStore(pool)
		deps.TradeStore = pgTrades
	}

	// --- Redis (status cache, sweep leaderboard, progress bus) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.StatusCache = redis.NewRunStatusCache(redisClient)
		deps.SweepBoard = redis.NewSweepBoard(redisClient)
		deps.ProgressBus = redis.NewProgressBus(redisClient)
	}

	// --- S3 blob storage (result archives) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		// Trade archiving reads old rows from Postgres, so the archiver is
		// only wired when both backends are enabled.
		if pgTrades != nil {
			deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, pgTrades, slog.Default())
		}
	}

	return deps, cleanup, nil
}
