// Command makersim is the entry point for the market-making backtester. It
// loads configuration, applies command-line overrides, validates the result,
// sets up signal handling, and starts the application in the configured mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"makersim/internal/app"
	"makersim/internal/config"
)

const defaultConfigPath = "config.toml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	mode := flag.String("mode", "", "operating mode: run, sweep, server")
	dataPath := flag.String("data", "", "path to tick data CSV")
	strategyName := flag.String("strategy", "", "strategy: fixed_spread, grid, level_maker")
	orderSize := flag.Float64("order-size", 0, "order size per quote")
	spreadBps := flag.Float64("spread", 0, "fixed-spread half spread in bps")
	sweepMin := flag.Float64("sweep-min", -1, "sweep minimum spread in bps")
	sweepMax := flag.Float64("sweep-max", -1, "sweep maximum spread in bps")
	sweepStep := flag.Float64("sweep-step", 0, "sweep step in bps")
	permute := flag.Bool("permute", false, "shuffle feed prices before the run")
	outPath := flag.String("out", "", "write the result bundle as JSON to this file")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration. A missing file at the default path is fine; flags
	// and MAKERSIM_* environment variables can carry a run on their own.
	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
			cfg = config.FromEnv()
		} else {
			logger.Error("failed to load config",
				slog.String("path", *configPath),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// Apply command-line overrides.
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *dataPath != "" {
		cfg.Feed.Path = *dataPath
	}
	if *strategyName != "" {
		cfg.Strategy.Name = *strategyName
	}
	if *orderSize > 0 {
		cfg.Strategy.OrderSize = *orderSize
	}
	if *spreadBps > 0 {
		cfg.Strategy.FixedSpread.SpreadBps = *spreadBps
	}
	if *sweepMin >= 0 {
		cfg.Sweep.MinSpreadBps = *sweepMin
	}
	if *sweepMax >= 0 {
		cfg.Sweep.MaxSpreadBps = *sweepMax
	}
	if *sweepStep > 0 {
		cfg.Sweep.StepBps = *sweepStep
	}
	if *permute {
		cfg.Feed.PermutePrices = true
	}
	if *outPath != "" {
		cfg.OutPath = *outPath
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Info("makersim starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	// Create the application.
	application := app.New(cfg, logger)
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the application.
	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("makersim stopped")
}
