package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akulikov/tickwatch/internal/domain"
)

type serviceFixture struct {
	service    *Service
	subscriber *fakeSubscriber
	listener   *recordingListener
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	subscriber := &fakeSubscriber{}
	dispatcher := NewDispatcher(256, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = dispatcher.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	service := NewService(NewRegistry(), subscriber, dispatcher, logger)
	listener := &recordingListener{}
	service.AddListener(listener)
	return &serviceFixture{service: service, subscriber: subscriber, listener: listener}
}

// Scenario: first tick lands inside the threshold, alert fires once, the
// following tick inside the band stays silent.
func TestServiceAlertFiresOnceWithinThreshold(t *testing.T) {
	fx := newServiceFixture(t)

	id, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), 100.00, 0.50, domain.SideSell)
	require.NoError(t, err)

	stream := fx.subscriber.stream(0)
	stream.push(domain.TickLast, 100.30)
	stream.push(domain.TickLast, 100.10)

	require.Eventually(t, func() bool { return fx.listener.count("update") == 2 }, waitFor, pollTick)
	require.Equal(t, 1, fx.listener.count("alert"))

	events := fx.listener.all()
	assert.Equal(t, "update", events[0].kind)
	assert.Equal(t, "alert", events[1].kind)
	assert.Equal(t, id, events[1].id)
	assert.Equal(t, 100.30, events[1].price)
	assert.InDelta(t, 0.30, events[1].distance, 1e-9)

	snap, err := fx.service.GetInstrument(id)
	require.NoError(t, err)
	assert.True(t, snap.AlertTriggered)
	assert.Equal(t, domain.MonitorAlerted, snap.State)
	assert.Equal(t, 100.10, snap.CurrentPrice)
}

// Scenario: first tick outside the band only updates; the second tick inside
// the band alerts.
func TestServiceAlertFiresOnLaterQualifyingTick(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), 100.00, 0.50, domain.SideSell)
	require.NoError(t, err)

	stream := fx.subscriber.stream(0)
	stream.push(domain.TickBid, 99.00)

	require.Eventually(t, func() bool { return fx.listener.count("update") == 1 }, waitFor, pollTick)
	assert.Zero(t, fx.listener.count("alert"), "distance 1.00 > 0.50 must not alert")

	stream.push(domain.TickAsk, 100.40)
	require.Eventually(t, func() bool { return fx.listener.count("alert") == 1 }, waitFor, pollTick)
}

// A rejected tick changes nothing: no price, no update event, no alert.
func TestServiceIgnoresInvalidTicks(t *testing.T) {
	fx := newServiceFixture(t)

	id, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), 100.00, 1000, domain.SideBuy)
	require.NoError(t, err)

	stream := fx.subscriber.stream(0)
	stream.push(domain.TickLast, 0)
	stream.push(domain.TickLast, -5)
	stream.push(domain.TickVolume, 100)
	stream.push(domain.TickLast, 99.0) // sentinel: only this one is accepted

	require.Eventually(t, func() bool { return fx.listener.count("update") >= 1 }, waitFor, pollTick)
	assert.Equal(t, 1, fx.listener.count("update"))

	snap, err := fx.service.GetInstrument(id)
	require.NoError(t, err)
	assert.Equal(t, 99.0, snap.CurrentPrice)
}

func TestServiceResetAlertReArms(t *testing.T) {
	fx := newServiceFixture(t)

	id, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), 100.00, 0.50, domain.SideSell)
	require.NoError(t, err)

	stream := fx.subscriber.stream(0)
	stream.push(domain.TickLast, 100.30)
	require.Eventually(t, func() bool { return fx.listener.count("alert") == 1 }, waitFor, pollTick)

	fx.service.ResetAlert(id)
	stream.push(domain.TickClose, 100.25)
	require.Eventually(t, func() bool { return fx.listener.count("alert") == 2 }, waitFor, pollTick)

	// Resetting an unknown id is a quiet no-op.
	fx.service.ResetAlert("missing")
}

// Resetting only re-arms the alert flag; the coarse state reached by the
// session is preserved.
func TestServiceResetAlertKeepsAlertedState(t *testing.T) {
	fx := newServiceFixture(t)

	id, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), 100.00, 0.50, domain.SideSell)
	require.NoError(t, err)

	fx.subscriber.stream(0).push(domain.TickLast, 100.30)
	require.Eventually(t, func() bool { return fx.listener.count("alert") == 1 }, waitFor, pollTick)

	fx.service.ResetAlert(id)

	snap, err := fx.service.GetInstrument(id)
	require.NoError(t, err)
	assert.False(t, snap.AlertTriggered, "reset must re-arm the alert")
	assert.Equal(t, domain.MonitorAlerted, snap.State, "reset must not roll the state back")
}

func TestServiceStopMonitoringIsIdempotent(t *testing.T) {
	fx := newServiceFixture(t)

	id, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), 100, 0.5, domain.SideBuy)
	require.NoError(t, err)

	fx.service.StopMonitoring(id)
	assert.True(t, fx.subscriber.stream(0).Cancelled())
	assert.Empty(t, fx.service.ListAll())

	fx.service.StopMonitoring(id)
	fx.service.StopMonitoring("never-existed")
	assert.Empty(t, fx.service.ListAll())

	_, err = fx.service.GetInstrument(id)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// A tick already in flight when the monitor is stopped must not emit events.
func TestServiceLateTickAfterStopIsNoOp(t *testing.T) {
	fx := newServiceFixture(t)

	id, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), 100, 0.5, domain.SideBuy)
	require.NoError(t, err)
	stream := fx.subscriber.stream(0)

	stream.push(domain.TickLast, 99.0)
	require.Eventually(t, func() bool { return fx.listener.count("update") == 1 }, waitFor, pollTick)

	fx.service.StopMonitoring(id)

	// The fake stream stays open after Cancel, simulating a tick that was
	// already queued on the delivery path.
	stream.push(domain.TickLast, 100.0)
	stream.finish()

	// Give the pump time to drain before asserting nothing was emitted.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, fx.listener.count("update"))
	assert.Zero(t, fx.listener.count("alert"))
}

func TestServiceStopAll(t *testing.T) {
	fx := newServiceFixture(t)

	var ids []string
	for _, sym := range []string{"AAPL", "MSFT", "TSLA"} {
		id, err := fx.service.StartMonitoring(context.Background(), testRef(sym), 100, 0.5, domain.SideBuy)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	removed := fx.service.StopAll()
	assert.ElementsMatch(t, ids, removed)
	assert.Empty(t, fx.service.ListAll())
	for i := range ids {
		assert.True(t, fx.subscriber.stream(i).Cancelled())
	}
}

// A StopAll landing between entry creation and feed registration must cancel
// the fresh subscription instead of leaking it.
func TestServiceStopAllDuringStartCancelsSubscription(t *testing.T) {
	fx := newServiceFixture(t)
	fx.subscriber.onSubscribe = func() { fx.service.StopAll() }

	_, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), 100, 0.5, domain.SideBuy)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, fx.subscriber.stream(0).Cancelled(), "raced subscription must be cancelled")
	assert.Empty(t, fx.service.ListAll())
}

func TestServiceSubscriptionFailureLeavesNoEntry(t *testing.T) {
	fx := newServiceFixture(t)
	fx.subscriber.err = errors.New("gateway down")

	_, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), 100, 0.5, domain.SideBuy)
	require.ErrorIs(t, err, domain.ErrSubscriptionFailed)
	assert.Empty(t, fx.service.ListAll())
}

func TestServiceInvalidArgumentsRejectedSynchronously(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), -1, 0.5, domain.SideBuy)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Empty(t, fx.subscriber.streams, "no subscription may be attempted for invalid arguments")
}

func TestServiceListAllSnapshots(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), 100, 0.5, domain.SideBuy)
	require.NoError(t, err)
	_, err = fx.service.StartMonitoring(context.Background(), testRef("MSFT"), 200, 1.0, domain.SideSell)
	require.NoError(t, err)

	snaps := fx.service.ListAll()
	require.Len(t, snaps, 2)
	for _, snap := range snaps {
		assert.Equal(t, domain.MonitorActive, snap.State)
	}
}

// Concurrent ticks for one instrument, exactly one inside the band: exactly
// one alert regardless of interleaving.
func TestServiceConcurrentTicksSingleAlert(t *testing.T) {
	registry := NewRegistry()
	inst, err := registry.Create(testRef("AAPL"), 100, 0.5, domain.SideBuy)
	require.NoError(t, err)

	const workers = 64
	var wg sync.WaitGroup
	alerts := make(chan Outcome, workers)
	for i := 0; i < workers; i++ {
		price := 90.0 // outside the band
		if i == workers/2 {
			price = 100.2 // the one qualifying tick
		}
		wg.Add(1)
		go func(p float64) {
			defer wg.Done()
			out := inst.applyTick(domain.Tick{Kind: domain.TickLast, Price: p})
			if out.Alert {
				alerts <- out
			}
		}(price)
	}
	wg.Wait()
	close(alerts)

	count := 0
	for range alerts {
		count++
	}
	assert.Equal(t, 1, count, "exactly one alert across concurrent ticks")
}

// Concurrent qualifying ticks must still produce a single alert: the
// read-modify-write on alertTriggered is atomic per entry.
func TestServiceConcurrentQualifyingTicksSingleAlert(t *testing.T) {
	registry := NewRegistry()
	inst, err := registry.Create(testRef("AAPL"), 100, 5, domain.SideBuy)
	require.NoError(t, err)

	const workers = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	alerts := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := inst.applyTick(domain.Tick{Kind: domain.TickAsk, Price: 99.5})
			if out.Alert {
				mu.Lock()
				alerts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, alerts)
}

func TestServiceReportOrderState(t *testing.T) {
	fx := newServiceFixture(t)

	id, err := fx.service.StartMonitoring(context.Background(), testRef("AAPL"), 100, 0.5, domain.SideSell)
	require.NoError(t, err)

	fx.service.ReportOrderState(id, domain.MonitorPlaced, "order 42 submitted")

	require.Eventually(t, func() bool { return fx.listener.count("order_state") == 1 }, waitFor, pollTick)
	snap, err := fx.service.GetInstrument(id)
	require.NoError(t, err)
	assert.Equal(t, domain.MonitorPlaced, snap.State)
	assert.Equal(t, "order 42 submitted", snap.StatusMessage)

	// Reporting against a stopped monitor is a no-op.
	fx.service.StopMonitoring(id)
	fx.service.ReportOrderState(id, domain.MonitorError, "late")
}

func TestServiceQuotePrice(t *testing.T) {
	fx := newServiceFixture(t)

	type result struct {
		price float64
		err   error
	}
	resCh := make(chan result, 1)
	go func() {
		p, err := fx.service.QuotePrice(context.Background(), testRef("AAPL"))
		resCh <- result{p, err}
	}()

	require.Eventually(t, func() bool {
		fx.subscriber.mu.Lock()
		defer fx.subscriber.mu.Unlock()
		return len(fx.subscriber.streams) == 1
	}, waitFor, pollTick)

	stream := fx.subscriber.stream(0)
	stream.push(domain.TickVolume, 1000) // not price-bearing, skipped
	stream.push(domain.TickLast, 101.25)

	res := <-resCh
	require.NoError(t, res.err)
	assert.Equal(t, 101.25, res.price)
	assert.True(t, stream.Cancelled())
}

func TestServiceQuotePriceContextCancelled(t *testing.T) {
	fx := newServiceFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fx.service.QuotePrice(ctx, testRef("AAPL"))
	require.ErrorIs(t, err, domain.ErrContextDone)
}
