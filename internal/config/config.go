// Package config defines the top-level configuration for the backtester and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MAKERSIM_* environment variables.
type Config struct {
	Feed     FeedConfig     `toml:"feed"`
	Strategy StrategyConfig `toml:"strategy"`
	Sweep    SweepConfig    `toml:"sweep"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`

	// OutPath, when set, makes run mode write the full result bundle as JSON
	// to this local file in addition to any configured stores.
	OutPath string `toml:"out_path"`
}

// FeedConfig holds tick data source parameters.
type FeedConfig struct {
	Path string `toml:"path"`

	// PermutePrices shuffles the price column before the run, keeping times
	// and sizes in place. Used to test path-dependence of a strategy.
	PermutePrices bool  `toml:"permute_prices"`
	PermuteSeed   int64 `toml:"permute_seed"`
}

// StrategyConfig selects and parameterises the strategy under test.
type StrategyConfig struct {
	// Name selects the strategy: "fixed_spread", "grid", "level_maker".
	Name   string `toml:"name"`
	Symbol string `toml:"symbol"`

	OrderSize      float64 `toml:"order_size"`
	FeeBps         float64 `toml:"fee_bps"`
	InitialCapital float64 `toml:"initial_capital"`

	FixedSpread FixedSpreadConfig `toml:"fixed_spread"`
	Grid        GridConfig        `toml:"grid"`
	LevelMaker  LevelMakerConfig  `toml:"level_maker"`
}

// FixedSpreadConfig holds fixed-spread strategy parameters.
type FixedSpreadConfig struct {
	SpreadBps  float64 `toml:"spread_bps"`
	AllowShort bool    `toml:"allow_short"`
}

// GridConfig holds grid strategy parameters. TickSize and PriceDecimals pick
// the price rounding rule for ladder levels; tick size wins when both are
// set, and zero for both leaves prices unrounded.
type GridConfig struct {
	Levels        int     `toml:"levels"`
	Spacing       float64 `toml:"spacing"`
	TickSize      float64 `toml:"tick_size"`
	PriceDecimals int     `toml:"price_decimals"`
}

// LevelMakerConfig holds capital-constrained level maker parameters.
type LevelMakerConfig struct {
	PriceLevels []float64 `toml:"price_levels"`
	Increment   float64   `toml:"increment"`
}

// SweepConfig holds fixed-spread parameter sweep parameters.
type SweepConfig struct {
	MinSpreadBps float64 `toml:"min_spread_bps"`
	MaxSpreadBps float64 `toml:"max_spread_bps"`
	StepBps      float64 `toml:"step_bps"`
	Concurrency  int     `toml:"concurrency"`
}

// PostgresConfig holds PostgreSQL connection parameters for run persistence.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the status cache, sweep
// leaderboard, and progress bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for result archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	RetentionDays  int    `toml:"retention_days"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	ReadTimeout     duration `toml:"read_timeout"`
	WriteTimeout    duration `toml:"write_timeout"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			PermuteSeed: 1,
		},
		Strategy: StrategyConfig{
			Name:           "fixed_spread",
			Symbol:         "BTCUSDT",
			OrderSize:      0.1,
			FeeBps:         0,
			InitialCapital: 1000,
			FixedSpread: FixedSpreadConfig{
				SpreadBps:  10,
				AllowShort: true,
			},
			Grid: GridConfig{
				Levels:  5,
				Spacing: 1.0,
			},
			LevelMaker: LevelMakerConfig{
				Increment: 5.0,
			},
		},
		Sweep: SweepConfig{
			MinSpreadBps: 0,
			MaxSpreadBps: 50,
			StepBps:      5,
			Concurrency:  4,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "makersim",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "makersim-results",
			UseSSL:         false,
			ForcePathStyle: true,
			RetentionDays:  90,
		},
		Server: ServerConfig{
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			ReadTimeout:     duration{15 * time.Second},
			WriteTimeout:    duration{30 * time.Second},
			ShutdownTimeout: duration{10 * time.Second},
		},
		Mode:     "run",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"run":    true,
	"sweep":  true,
	"server": true,
}

// validStrategies enumerates the accepted values for StrategyConfig.Name.
var validStrategies = map[string]bool{
	"fixed_spread": true,
	"grid":         true,
	"level_maker":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, sweep, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Feed. Run and sweep modes read a tick file; server mode takes the
	// path per request.
	if (c.Mode == "run" || c.Mode == "sweep") && c.Feed.Path == "" {
		errs = append(errs, "feed: path must not be empty for mode "+c.Mode)
	}

	// Strategy
	if !validStrategies[c.Strategy.Name] {
		errs = append(errs, fmt.Sprintf("strategy: unknown name %q (valid: fixed_spread, grid, level_maker)", c.Strategy.Name))
	}
	if c.Strategy.OrderSize <= 0 {
		errs = append(errs, "strategy: order_size must be > 0")
	}
	if c.Strategy.FeeBps < 0 {
		errs = append(errs, "strategy: fee_bps must be >= 0")
	}
	switch c.Strategy.Name {
	case "fixed_spread":
		if c.Strategy.FixedSpread.SpreadBps < 0 {
			errs = append(errs, "strategy: fixed_spread.spread_bps must be >= 0")
		}
	case "grid":
		if c.Strategy.Grid.Levels < 1 {
			errs = append(errs, "strategy: grid.levels must be >= 1")
		}
		if c.Strategy.Grid.Spacing <= 0 {
			errs = append(errs, "strategy: grid.spacing must be > 0")
		}
		if c.Strategy.Grid.TickSize < 0 {
			errs = append(errs, "strategy: grid.tick_size must be >= 0")
		}
		if c.Strategy.Grid.PriceDecimals < 0 {
			errs = append(errs, "strategy: grid.price_decimals must be >= 0")
		}
		if c.Strategy.InitialCapital <= 0 {
			errs = append(errs, "strategy: initial_capital must be > 0 for grid")
		}
	case "level_maker":
		if len(c.Strategy.LevelMaker.PriceLevels) == 0 {
			errs = append(errs, "strategy: level_maker.price_levels must not be empty")
		}
		for _, p := range c.Strategy.LevelMaker.PriceLevels {
			if p <= 0 {
				errs = append(errs, fmt.Sprintf("strategy: level_maker.price_levels must be positive, got %g", p))
				break
			}
		}
		if c.Strategy.LevelMaker.Increment <= 0 {
			errs = append(errs, "strategy: level_maker.increment must be > 0")
		}
		if c.Strategy.InitialCapital <= 0 {
			errs = append(errs, "strategy: initial_capital must be > 0 for level_maker")
		}
	}

	// Sweep
	if c.Mode == "sweep" {
		if c.Sweep.StepBps <= 0 {
			errs = append(errs, "sweep: step_bps must be > 0")
		}
		if c.Sweep.MinSpreadBps > c.Sweep.MaxSpreadBps {
			errs = append(errs, fmt.Sprintf("sweep: min_spread_bps %g exceeds max_spread_bps %g", c.Sweep.MinSpreadBps, c.Sweep.MaxSpreadBps))
		}
		if c.Sweep.Concurrency < 0 {
			errs = append(errs, "sweep: concurrency must be >= 0")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.RetentionDays < 0 {
			errs = append(errs, "s3: retention_days must be >= 0")
		}
	}

	// Server
	if c.Mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
