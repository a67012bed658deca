package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MAKERSIM_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// FromEnv returns the built-in defaults with MAKERSIM_* environment overrides
// applied, for running without a configuration file.
func FromEnv() *Config {
	cfg := Defaults()
	_ = godotenv.Load()
	applyEnvOverrides(&cfg)
	return &cfg
}

// applyEnvOverrides reads well-known MAKERSIM_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets and per-run parameters at deploy
// time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setStr(&cfg.Feed.Path, "MAKERSIM_FEED_PATH")
	setBool(&cfg.Feed.PermutePrices, "MAKERSIM_FEED_PERMUTE_PRICES")
	setInt64(&cfg.Feed.PermuteSeed, "MAKERSIM_FEED_PERMUTE_SEED")

	// ── Strategy ──
	setStr(&cfg.Strategy.Name, "MAKERSIM_STRATEGY_NAME")
	setStr(&cfg.Strategy.Symbol, "MAKERSIM_STRATEGY_SYMBOL")
	setFloat64(&cfg.Strategy.OrderSize, "MAKERSIM_STRATEGY_ORDER_SIZE")
	setFloat64(&cfg.Strategy.FeeBps, "MAKERSIM_STRATEGY_FEE_BPS")
	setFloat64(&cfg.Strategy.InitialCapital, "MAKERSIM_STRATEGY_INITIAL_CAPITAL")
	setFloat64(&cfg.Strategy.FixedSpread.SpreadBps, "MAKERSIM_STRATEGY_SPREAD_BPS")
	setBool(&cfg.Strategy.FixedSpread.AllowShort, "MAKERSIM_STRATEGY_ALLOW_SHORT")
	setInt(&cfg.Strategy.Grid.Levels, "MAKERSIM_STRATEGY_GRID_LEVELS")
	setFloat64(&cfg.Strategy.Grid.Spacing, "MAKERSIM_STRATEGY_GRID_SPACING")
	setFloat64(&cfg.Strategy.Grid.TickSize, "MAKERSIM_STRATEGY_GRID_TICK_SIZE")
	setInt(&cfg.Strategy.Grid.PriceDecimals, "MAKERSIM_STRATEGY_GRID_PRICE_DECIMALS")
	setFloatSlice(&cfg.Strategy.LevelMaker.PriceLevels, "MAKERSIM_STRATEGY_PRICE_LEVELS")
	setFloat64(&cfg.Strategy.LevelMaker.Increment, "MAKERSIM_STRATEGY_INCREMENT")

	// ── Sweep ──
	setFloat64(&cfg.Sweep.MinSpreadBps, "MAKERSIM_SWEEP_MIN_SPREAD_BPS")
	setFloat64(&cfg.Sweep.MaxSpreadBps, "MAKERSIM_SWEEP_MAX_SPREAD_BPS")
	setFloat64(&cfg.Sweep.StepBps, "MAKERSIM_SWEEP_STEP_BPS")
	setInt(&cfg.Sweep.Concurrency, "MAKERSIM_SWEEP_CONCURRENCY")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "MAKERSIM_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MAKERSIM_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MAKERSIM_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MAKERSIM_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MAKERSIM_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MAKERSIM_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MAKERSIM_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MAKERSIM_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MAKERSIM_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MAKERSIM_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MAKERSIM_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MAKERSIM_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MAKERSIM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MAKERSIM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MAKERSIM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MAKERSIM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MAKERSIM_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MAKERSIM_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MAKERSIM_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MAKERSIM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MAKERSIM_S3_REGION")
	setStr(&cfg.S3.Bucket, "MAKERSIM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MAKERSIM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MAKERSIM_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MAKERSIM_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MAKERSIM_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "MAKERSIM_S3_RETENTION_DAYS")

	// ── Server ──
	setInt(&cfg.Server.Port, "MAKERSIM_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MAKERSIM_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MAKERSIM_SERVER_API_KEY")
	setDuration(&cfg.Server.ReadTimeout, "MAKERSIM_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "MAKERSIM_SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "MAKERSIM_SERVER_SHUTDOWN_TIMEOUT")

	// ── Top-level ──
	setStr(&cfg.Mode, "MAKERSIM_MODE")
	setStr(&cfg.LogLevel, "MAKERSIM_LOG_LEVEL")
	setStr(&cfg.OutPath, "MAKERSIM_OUT_PATH")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

func setFloatSlice(dst *[]float64, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]float64, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return
			}
			cleaned = append(cleaned, f)
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
