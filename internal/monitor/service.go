package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/akulikov/tickwatch/internal/domain"
)

// Service is the public face of price monitoring. It orchestrates the
// registry, the broker subscription adapter, the tick evaluator, and the
// dispatcher: one goroutine per monitored instrument pumps ticks from the
// broker stream through the evaluator and publishes the resulting events.
type Service struct {
	registry   *Registry
	subscriber domain.TickSubscriber
	dispatcher *Dispatcher
	logger     *slog.Logger

	mu    sync.Mutex
	feeds map[string]*feed
}

// feed tracks the live subscription and pump goroutine for one monitor.
type feed struct {
	stream domain.TickStream
	done   chan struct{}
}

// NewService wires a Service from its collaborators. The dispatcher must be
// running (Dispatcher.Run) for listeners to receive events.
func NewService(registry *Registry, subscriber domain.TickSubscriber, dispatcher *Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		registry:   registry,
		subscriber: subscriber,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "price_monitor")),
		feeds:      make(map[string]*feed),
	}
}

// StartMonitoring registers a new monitored instrument and establishes its
// live tick feed. On subscription failure no entry is left behind and the
// error wraps domain.ErrSubscriptionFailed; argument errors wrap
// domain.ErrInvalidArgument.
func (s *Service) StartMonitoring(ctx context.Context, ref domain.InstrumentRef, target, threshold float64, side domain.Side) (string, error) {
	inst, err := s.registry.Create(ref, target, threshold, side)
	if err != nil {
		return "", err
	}

	stream, err := s.subscriber.SubscribeTicks(ctx, ref)
	if err != nil {
		s.registry.Remove(inst.ID())
		return "", fmt.Errorf("monitor: subscribe %s: %w: %v", ref, domain.ErrSubscriptionFailed, err)
	}

	// The entry may have been removed by StopAll while the subscription was
	// being established. Re-check under the feeds lock so the new stream is
	// either tracked or cancelled, never leaked.
	s.mu.Lock()
	if _, ok := s.registry.Get(inst.ID()); !ok {
		s.mu.Unlock()
		stream.Cancel()
		return "", fmt.Errorf("monitor: %s removed during startup: %w", ref, domain.ErrNotFound)
	}
	inst.markMonitoring()
	f := &feed{stream: stream, done: make(chan struct{})}
	s.feeds[inst.ID()] = f
	s.mu.Unlock()

	go s.pump(inst, f)

	s.logger.Info("monitoring started",
		slog.String("monitor_id", inst.ID()),
		slog.String("instrument", ref.String()),
		slog.String("side", string(side)),
		slog.Float64("target", target),
		slog.Float64("threshold", threshold),
	)
	return inst.ID(), nil
}

// pump consumes one monitor's tick stream until it closes. Rejected ticks are
// silently dropped; accepted ticks publish an update and, at most once per
// session, the alert.
func (s *Service) pump(inst *Instrument, f *feed) {
	defer func() {
		// A stream that ends while the monitor is still registered was not
		// cancelled by us; the feed side went away.
		if _, ok := s.registry.Get(inst.ID()); ok {
			s.logger.Warn("tick stream closed while monitor active",
				slog.String("monitor_id", inst.ID()),
				slog.String("instrument", inst.Ref().String()),
			)
		}
		close(f.done)
	}()
	for t := range f.stream.Ticks() {
		out := inst.applyTick(t)
		if !out.Accepted {
			continue
		}
		if out.Alert {
			s.logger.Info("price alert",
				slog.String("monitor_id", inst.ID()),
				slog.String("instrument", inst.Ref().String()),
				slog.Float64("price", out.Price),
				slog.Float64("distance", out.Distance),
			)
			s.dispatcher.PublishAlert(out.Snapshot, out.Price, out.Distance)
		} else {
			s.dispatcher.PublishUpdate(out.Snapshot, out.Price)
		}
	}
}

// StopMonitoring cancels the subscription and deletes the monitor. It is
// idempotent: stopping an unknown or already-stopped id is a no-op. It is
// safe to call while a tick for the same id is in flight; no events are
// emitted for the id after removal.
func (s *Service) StopMonitoring(id string) {
	existed := s.registry.Remove(id)

	s.mu.Lock()
	f := s.feeds[id]
	delete(s.feeds, id)
	s.mu.Unlock()

	if f != nil {
		f.stream.Cancel()
	}
	if existed {
		s.logger.Info("monitoring stopped", slog.String("monitor_id", id))
	}
}

// StopAll stops every active monitor and returns the removed ids.
func (s *Service) StopAll() []string {
	ids := s.registry.RemoveAll()

	s.mu.Lock()
	feeds := s.feeds
	s.feeds = make(map[string]*feed)
	s.mu.Unlock()

	for _, f := range feeds {
		f.stream.Cancel()
	}
	if len(ids) > 0 {
		s.logger.Info("all monitoring stopped", slog.Int("count", len(ids)))
	}
	return ids
}

// ResetAlert re-arms the alert for id so a subsequent qualifying tick fires
// again. Unknown ids are tolerated as a no-op.
func (s *Service) ResetAlert(id string) {
	inst, ok := s.registry.Get(id)
	if !ok {
		return
	}
	inst.resetAlert()
	s.logger.Info("alert reset", slog.String("monitor_id", id))
}

// GetInstrument returns a snapshot of the monitor with the given id, or
// domain.ErrNotFound.
func (s *Service) GetInstrument(id string) (domain.MonitorSnapshot, error) {
	inst, ok := s.registry.Get(id)
	if !ok {
		return domain.MonitorSnapshot{}, fmt.Errorf("monitor %s: %w", id, domain.ErrNotFound)
	}
	return inst.Snapshot(), nil
}

// ListAll returns point-in-time snapshots of every active monitor.
func (s *Service) ListAll() []domain.MonitorSnapshot {
	return s.registry.ListAll()
}

// AddListener registers a listener for price updates and alerts.
func (s *Service) AddListener(l Listener) {
	s.dispatcher.Subscribe(l)
}

// RemoveListener removes a previously registered listener.
func (s *Service) RemoveListener(l Listener) {
	s.dispatcher.Unsubscribe(l)
}

// ReportOrderState records the asynchronous outcome of the order hand-off for
// an alerted monitor and surfaces it to order-state listeners. Unknown ids
// are a no-op: the monitor may have been stopped while the order was in
// flight.
func (s *Service) ReportOrderState(id string, state domain.MonitorState, message string) {
	inst, ok := s.registry.Get(id)
	if !ok {
		return
	}
	inst.setOrderState(state, message)

	if state == domain.MonitorError {
		s.logger.Warn("order placement failed",
			slog.String("monitor_id", id),
			slog.String("message", message),
		)
	} else {
		s.logger.Info("order state",
			slog.String("monitor_id", id),
			slog.String("state", string(state)),
			slog.String("message", message),
		)
	}
	s.dispatcher.PublishOrderState(inst.Snapshot(), state, message)
}

// QuotePrice subscribes to an instrument, waits for the first authoritative
// tick, and cancels the subscription. Useful for one-shot price checks before
// starting a monitor.
func (s *Service) QuotePrice(ctx context.Context, ref domain.InstrumentRef) (float64, error) {
	stream, err := s.subscriber.SubscribeTicks(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("monitor: quote %s: %w: %v", ref, domain.ErrSubscriptionFailed, err)
	}
	defer stream.Cancel()

	for {
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("monitor: quote %s: %w", ref, domain.ErrContextDone)
		case t, ok := <-stream.Ticks():
			if !ok {
				return 0, fmt.Errorf("monitor: quote %s: stream closed: %w", ref, domain.ErrGatewayDisconnect)
			}
			if t.Kind.Authoritative() && t.Price > 0 {
				return t.Price, nil
			}
		}
	}
}
