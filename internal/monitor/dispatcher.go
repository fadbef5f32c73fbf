package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/akulikov/tickwatch/internal/domain"
)

// Listener receives monitor events. Implementations that also implement
// OrderStateListener additionally observe order hand-off outcomes; a test
// double implementing only what it needs is sufficient.
type Listener interface {
	// OnPriceUpdate is called for every accepted tick.
	OnPriceUpdate(snap domain.MonitorSnapshot, price float64)
	// OnPriceAlert is called at most once per monitoring session, when the
	// price first comes within the alert threshold of the target.
	OnPriceAlert(snap domain.MonitorSnapshot, price, distance float64)
}

// OrderStateListener is an optional capability: listeners implementing it are
// told when order placement for an alerted monitor is confirmed or fails.
type OrderStateListener interface {
	OnOrderState(snap domain.MonitorSnapshot, state domain.MonitorState, message string)
}

// eventKind selects which listener method an event is delivered to.
type eventKind int

const (
	eventUpdate eventKind = iota
	eventAlert
	eventOrderState
)

type event struct {
	kind     eventKind
	snap     domain.MonitorSnapshot
	price    float64
	distance float64
	state    domain.MonitorState
	message  string
}

// Dispatcher fans monitor events out to registered listeners on its own
// goroutine so tick ingestion never blocks on listener work. Events for a
// single instrument are delivered in publish order; an alerting tick is
// delivered as its price update immediately followed by the alert. Listener
// failures are isolated per listener: a panic is logged and delivery to the
// remaining listeners continues.
type Dispatcher struct {
	queue   chan event
	logger  *slog.Logger
	dropped atomic.Int64

	mu        sync.RWMutex
	listeners []Listener

	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher creates a Dispatcher with the given queue capacity. Run must
// be called for events to be delivered.
func NewDispatcher(queueSize int, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Dispatcher{
		queue:  make(chan event, queueSize),
		logger: logger.With(slog.String("component", "dispatcher")),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a listener. Registering the same listener twice
// delivers events to it twice.
func (d *Dispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Unsubscribe removes the first registration of the given listener.
func (d *Dispatcher) Unsubscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, cur := range d.listeners {
		if cur == l {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

// PublishUpdate queues a price-update event. Updates are dropped, with a
// warning and a counter, when the queue is full: under backpressure a stale
// price is worthless, and the next tick replaces it anyway.
func (d *Dispatcher) PublishUpdate(snap domain.MonitorSnapshot, price float64) {
	select {
	case d.queue <- event{kind: eventUpdate, snap: snap, price: price}:
	default:
		n := d.dropped.Add(1)
		d.logger.Warn("dispatch queue full, price update dropped",
			slog.String("monitor_id", snap.ID),
			slog.Int64("dropped_total", n),
		)
	}
}

// PublishAlert queues the one-shot alert for a monitor. The event delivers
// the triggering tick's price update first and the alert second, so the
// update-before-alert ordering holds even under backpressure. Alerts are
// never dropped; the send blocks until queue space frees or the dispatcher
// shuts down.
func (d *Dispatcher) PublishAlert(snap domain.MonitorSnapshot, price, distance float64) {
	select {
	case d.queue <- event{kind: eventAlert, snap: snap, price: price, distance: distance}:
	case <-d.done:
	}
}

// PublishOrderState queues an order-placement outcome for listeners that
// implement OrderStateListener.
func (d *Dispatcher) PublishOrderState(snap domain.MonitorSnapshot, state domain.MonitorState, message string) {
	select {
	case d.queue <- event{kind: eventOrderState, snap: snap, state: state, message: message}:
	case <-d.done:
	}
}

// Dropped returns the number of price updates discarded due to backpressure.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run delivers queued events until the context is cancelled or Close is
// called. Delivery is serialized: listeners are invoked one at a time from
// this goroutine.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.done:
			return nil
		case ev := <-d.queue:
			d.deliver(ev)
		}
	}
}

// Close stops the dispatcher and unblocks pending publishers.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}

func (d *Dispatcher) deliver(ev event) {
	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for _, l := range listeners {
		d.deliverOne(l, ev)
	}
}

// deliverOne invokes a single listener, isolating panics so one failing
// listener cannot prevent delivery to the rest.
func (d *Dispatcher) deliverOne(l Listener, ev event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panicked during dispatch",
				slog.String("monitor_id", ev.snap.ID),
				slog.Any("panic", r),
			)
		}
	}()

	switch ev.kind {
	case eventUpdate:
		l.OnPriceUpdate(ev.snap, ev.price)
	case eventAlert:
		l.OnPriceUpdate(ev.snap, ev.price)
		l.OnPriceAlert(ev.snap, ev.price, ev.distance)
	case eventOrderState:
		if osl, ok := l.(OrderStateListener); ok {
			osl.OnOrderState(ev.snap, ev.state, ev.message)
		}
	}
}
