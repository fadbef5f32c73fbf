package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akulikov/tickwatch/internal/broker/gateway"
	"github.com/akulikov/tickwatch/internal/cache/redis"
	"github.com/akulikov/tickwatch/internal/config"
	"github.com/akulikov/tickwatch/internal/domain"
	"github.com/akulikov/tickwatch/internal/notify"
	"github.com/akulikov/tickwatch/internal/store/postgres"
)

// Dependencies bundles the external collaborators the monitoring service is
// wired against. PriceCache, AlertStore, and Notifier are nil when the
// corresponding backend is not configured.
type Dependencies struct {
	Gateway    *gateway.Client
	PriceCache domain.PriceCache
	AlertStore domain.AlertStore
	Notifier   *notify.Notifier
}

// Wire constructs the concrete dependencies from configuration and returns
// them with a cleanup function that releases resources in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Broker gateway (required) ---
	gw := gateway.New(cfg.Gateway.WsURL, logger)
	if err := gw.Connect(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: gateway: %w", err)
	}
	closers = append(closers, gw.Close)
	deps.Gateway = gw

	// --- Redis latest-price cache (optional) ---
	if cfg.Redis.Addr != "" {
		pc, err := redis.NewPriceCache(ctx, redis.Options{
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
		closers = append(closers, func() { _ = pc.Close() })
		deps.PriceCache = pc
	}

	// --- PostgreSQL alert audit store (optional) ---
	if cfg.Postgres.Enabled() {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
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
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.AlertStore = postgres.NewAlertStore(pg.Pool())
	}

	// --- Operator notifications (optional) ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)
	}

	return deps, cleanup, nil
}
