package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akulikov/tickwatch/internal/domain"
	"github.com/akulikov/tickwatch/internal/notify"
)

// listenerIOTimeout bounds cache and store writes made from the dispatch
// goroutine. Writes past the deadline are logged and skipped; monitoring
// itself never depends on them.
const listenerIOTimeout = 5 * time.Second

// PriceCacheListener mirrors every accepted tick into the latest-price cache
// keyed by contract, so other consumers can read prices without a broker
// subscription of their own.
type PriceCacheListener struct {
	cache  domain.PriceCache
	logger *slog.Logger
}

// NewPriceCacheListener creates a listener writing through to cache.
func NewPriceCacheListener(cache domain.PriceCache, logger *slog.Logger) *PriceCacheListener {
	return &PriceCacheListener{
		cache:  cache,
		logger: logger.With(slog.String("component", "price_cache_listener")),
	}
}

func (l *PriceCacheListener) OnPriceUpdate(snap domain.MonitorSnapshot, price float64) {
	ctx, cancel := context.WithTimeout(context.Background(), listenerIOTimeout)
	defer cancel()
	if err := l.cache.SetPrice(ctx, snap.Instrument.Key(), price, snap.LastUpdate); err != nil {
		l.logger.Warn("price cache write failed",
			slog.String("key", snap.Instrument.Key()),
			slog.String("error", err.Error()),
		)
	}
}

func (l *PriceCacheListener) OnPriceAlert(domain.MonitorSnapshot, float64, float64) {}

// AlertRecorder persists fired alerts and their eventual order outcomes to
// the alert store for audit.
type AlertRecorder struct {
	store  domain.AlertStore
	logger *slog.Logger
}

// NewAlertRecorder creates a recorder writing through to store.
func NewAlertRecorder(store domain.AlertStore, logger *slog.Logger) *AlertRecorder {
	return &AlertRecorder{
		store:  store,
		logger: logger.With(slog.String("component", "alert_recorder")),
	}
}

func (r *AlertRecorder) OnPriceUpdate(domain.MonitorSnapshot, float64) {}

func (r *AlertRecorder) OnPriceAlert(snap domain.MonitorSnapshot, price, distance float64) {
	ctx, cancel := context.WithTimeout(context.Background(), listenerIOTimeout)
	defer cancel()
	rec := domain.AlertRecord{
		MonitorID:   snap.ID,
		Instrument:  snap.Instrument.Key(),
		Side:        snap.Side,
		TargetPrice: snap.TargetPrice,
		Threshold:   snap.AlertThreshold,
		Price:       price,
		Distance:    distance,
		FiredAt:     snap.LastUpdate,
	}
	if err := r.store.RecordAlert(ctx, rec); err != nil {
		r.logger.Warn("alert record write failed",
			slog.String("monitor_id", snap.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (r *AlertRecorder) OnOrderState(snap domain.MonitorSnapshot, state domain.MonitorState, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), listenerIOTimeout)
	defer cancel()
	if err := r.store.RecordOrderState(ctx, snap.ID, state, message); err != nil {
		r.logger.Warn("order state write failed",
			slog.String("monitor_id", snap.ID),
			slog.String("error", err.Error()),
		)
	}
}

// AlertNotifier forwards alerts and order outcomes to the operator's
// notification channels.
type AlertNotifier struct {
	notifier *notify.Notifier
}

// NewAlertNotifier creates a listener delivering through notifier.
func NewAlertNotifier(notifier *notify.Notifier) *AlertNotifier {
	return &AlertNotifier{notifier: notifier}
}

func (n *AlertNotifier) OnPriceUpdate(domain.MonitorSnapshot, float64) {}

func (n *AlertNotifier) OnPriceAlert(snap domain.MonitorSnapshot, price, distance float64) {
	ctx, cancel := context.WithTimeout(context.Background(), listenerIOTimeout)
	defer cancel()
	body := fmt.Sprintf("%s %s\ntarget %.2f, current %.2f, distance %.2f (%.1f%%)",
		snap.Side, snap.Instrument, snap.TargetPrice, price, distance, snap.DistancePercent())
	_ = n.notifier.Notify(ctx, notify.EventPriceAlert, "Price alert "+snap.ID, body)
}

func (n *AlertNotifier) OnOrderState(snap domain.MonitorSnapshot, state domain.MonitorState, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), listenerIOTimeout)
	defer cancel()
	title := fmt.Sprintf("Order %s for monitor %s", state, snap.ID)
	_ = n.notifier.Notify(ctx, notify.EventOrderState, title, message)
}
