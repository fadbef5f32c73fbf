package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akulikov/tickwatch/internal/domain"
)

// placeTimeout bounds a single order submission round-trip.
const placeTimeout = 30 * time.Second

// AutoPlacer is the listener that completes the alert → order hand-off: on
// each price alert it submits a limit order at the monitor's target price and
// reports the outcome back to the service as the placed or error state.
type AutoPlacer struct {
	orders   domain.OrderPlacer
	service  *Service
	quantity int
	logger   *slog.Logger
}

// NewAutoPlacer creates an AutoPlacer that submits quantity units per alert.
func NewAutoPlacer(orders domain.OrderPlacer, service *Service, quantity int, logger *slog.Logger) *AutoPlacer {
	return &AutoPlacer{
		orders:   orders,
		service:  service,
		quantity: quantity,
		logger:   logger.With(slog.String("component", "auto_placer")),
	}
}

// OnPriceUpdate is a no-op; the placer only reacts to alerts.
func (p *AutoPlacer) OnPriceUpdate(domain.MonitorSnapshot, float64) {}

// OnPriceAlert submits the order asynchronously so a slow broker round-trip
// never stalls dispatch to other listeners.
func (p *AutoPlacer) OnPriceAlert(snap domain.MonitorSnapshot, price, distance float64) {
	go p.place(snap)
}

func (p *AutoPlacer) place(snap domain.MonitorSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), placeTimeout)
	defer cancel()

	p.logger.Info("placing order for alerted monitor",
		slog.String("monitor_id", snap.ID),
		slog.String("instrument", snap.Instrument.String()),
		slog.String("side", string(snap.Side)),
		slog.Int("quantity", p.quantity),
		slog.Float64("limit", snap.TargetPrice),
	)

	res, err := p.orders.PlaceOrder(ctx, snap.Instrument, snap.Side, p.quantity, snap.TargetPrice)
	if err != nil {
		p.service.ReportOrderState(snap.ID, domain.MonitorError, err.Error())
		return
	}
	if !res.Submitted {
		p.service.ReportOrderState(snap.ID, domain.MonitorError, res.Reason)
		return
	}
	p.service.ReportOrderState(snap.ID, domain.MonitorPlaced, fmt.Sprintf("order %s submitted", res.OrderID))
}
