// Command tickwatch monitors live instrument prices against configured
// targets and hands alerted instruments off to order placement through the
// broker gateway. It loads configuration, wires dependencies, and runs until
// interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/akulikov/tickwatch/internal/app"
	"github.com/akulikov/tickwatch/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tickwatch: load config %s: %v\n", *configPath, err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "tickwatch: invalid configuration: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("tickwatch starting",
		slog.String("config", *configPath),
		slog.Int("watchlist", len(cfg.Watch)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = app.New(cfg, logger).Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		logger.Info("tickwatch stopped")
		return 0
	default:
		logger.Error("tickwatch exited with error", slog.String("error", err.Error()))
		return 1
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
