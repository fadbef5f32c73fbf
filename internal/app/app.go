// Package app owns the application lifecycle: it wires the monitoring service
// to the broker gateway, storage backends, and notification channels, starts
// the configured watchlist, and blocks until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/akulikov/tickwatch/internal/config"
	"github.com/akulikov/tickwatch/internal/domain"
	"github.com/akulikov/tickwatch/internal/monitor"
)

// App is the root application object.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates an App from configuration and a logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies, builds the monitoring service, registers listeners,
// starts the watchlist monitors, and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	defer cleanup()

	registry := monitor.NewRegistry()
	dispatcher := monitor.NewDispatcher(a.cfg.Monitor.QueueSize, a.logger)
	service := monitor.NewService(registry, deps.Gateway, dispatcher, a.logger)

	if deps.PriceCache != nil {
		service.AddListener(monitor.NewPriceCacheListener(deps.PriceCache, a.logger))
	}
	if deps.AlertStore != nil {
		service.AddListener(monitor.NewAlertRecorder(deps.AlertStore, a.logger))
	}
	if deps.Notifier != nil {
		service.AddListener(monitor.NewAlertNotifier(deps.Notifier))
	}
	if a.cfg.Monitor.AutoPlace {
		service.AddListener(monitor.NewAutoPlacer(deps.Gateway, service, a.cfg.Monitor.Quantity, a.logger))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		// A dropped gateway connection takes the whole process down; the
		// supervisor restarts it with a fresh session.
		select {
		case <-gctx.Done():
			return gctx.Err()
		case <-deps.Gateway.Done():
			return fmt.Errorf("app: %w", domain.ErrGatewayDisconnect)
		}
	})
	g.Go(func() error {
		if err := a.startWatchlist(gctx, service); err != nil {
			return err
		}
		<-gctx.Done()
		service.StopAll()
		dispatcher.Close()
		return gctx.Err()
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return err
}

// startWatchlist starts one monitor per configured [[watch]] entry.
func (a *App) startWatchlist(ctx context.Context, service *monitor.Service) error {
	for _, w := range a.cfg.Watch {
		side, err := domain.ParseSide(w.Side)
		if err != nil {
			return fmt.Errorf("app: watch %s: %w", w.Symbol, err)
		}
		ref := domain.InstrumentRef{
			Symbol:   w.Symbol,
			SecType:  strings.ToUpper(w.SecType),
			Strike:   w.Strike,
			Expiry:   w.Expiry,
			Right:    strings.ToUpper(w.Right),
			Exchange: w.Exchange,
			Currency: w.Currency,
		}
		id, err := service.StartMonitoring(ctx, ref, w.Target, w.Threshold, side)
		if err != nil {
			return fmt.Errorf("app: watch %s: %w", w.Symbol, err)
		}
		a.logger.Info("watchlist monitor started",
			slog.String("monitor_id", id),
			slog.String("instrument", ref.String()),
		)
	}
	return nil
}
