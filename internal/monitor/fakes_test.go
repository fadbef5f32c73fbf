package monitor

import (
	"context"
	"sync"

	"github.com/akulikov/tickwatch/internal/domain"
)

// fakeStream is a scriptable tick feed. Cancel only records the call so tests
// can still push in-flight ticks after a monitor is stopped; closing the
// channel is explicit via finish.
type fakeStream struct {
	ch        chan domain.Tick
	mu        sync.Mutex
	cancelled bool
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan domain.Tick, 64)}
}

func (s *fakeStream) Ticks() <-chan domain.Tick { return s.ch }

func (s *fakeStream) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

func (s *fakeStream) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *fakeStream) push(kind domain.TickKind, price float64) {
	s.ch <- domain.Tick{Kind: kind, Price: price}
}

func (s *fakeStream) finish() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// fakeSubscriber hands out fakeStreams in creation order and can be set to
// fail. onSubscribe, when set, runs after the stream is created and before it
// is returned, for interleaving tests.
type fakeSubscriber struct {
	mu          sync.Mutex
	streams     []*fakeStream
	err         error
	onSubscribe func()
}

func (f *fakeSubscriber) SubscribeTicks(_ context.Context, _ domain.InstrumentRef) (domain.TickStream, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	s := newFakeStream()
	f.streams = append(f.streams, s)
	hook := f.onSubscribe
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return s, nil
}

func (f *fakeSubscriber) stream(i int) *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[i]
}

// recorded is one delivered listener callback, tagged by kind for ordering
// assertions.
type recorded struct {
	kind     string // "update", "alert", "order_state"
	id       string
	price    float64
	distance float64
	state    domain.MonitorState
	message  string
}

// recordingListener captures every delivery. It implements both Listener and
// OrderStateListener.
type recordingListener struct {
	mu     sync.Mutex
	events []recorded
}

func (l *recordingListener) OnPriceUpdate(snap domain.MonitorSnapshot, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recorded{kind: "update", id: snap.ID, price: price})
}

func (l *recordingListener) OnPriceAlert(snap domain.MonitorSnapshot, price, distance float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recorded{kind: "alert", id: snap.ID, price: price, distance: distance})
}

func (l *recordingListener) OnOrderState(snap domain.MonitorSnapshot, state domain.MonitorState, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recorded{kind: "order_state", id: snap.ID, state: state, message: message})
}

func (l *recordingListener) all() []recorded {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recorded(nil), l.events...)
}

func (l *recordingListener) count(kind string) int {
	n := 0
	for _, ev := range l.all() {
		if ev.kind == kind {
			n++
		}
	}
	return n
}

// fakeOrderPlacer returns a scripted result or error.
type fakeOrderPlacer struct {
	mu     sync.Mutex
	result domain.OrderResult
	err    error
	calls  []struct {
		ref   domain.InstrumentRef
		side  domain.Side
		qty   int
		limit float64
	}
}

func (f *fakeOrderPlacer) PlaceOrder(_ context.Context, ref domain.InstrumentRef, side domain.Side, qty int, limit float64) (domain.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, struct {
		ref   domain.InstrumentRef
		side  domain.Side
		qty   int
		limit float64
	}{ref, side, qty, limit})
	return f.result, f.err
}

func (f *fakeOrderPlacer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
