// Package monitor implements threshold price monitoring: a registry of
// concurrently watched instruments, tick evaluation with one-shot alerting,
// asynchronous listener fan-out, and the orchestrating service.
package monitor

import (
	"sync"
	"time"

	"github.com/akulikov/tickwatch/internal/domain"
)

// Instrument is one monitored instrument: immutable identity plus the
// observed state mutated by tick delivery. All mutation goes through methods
// holding the entry mutex, so ticks arriving concurrently for the same id
// cannot both observe alertTriggered == false and double-fire.
type Instrument struct {
	id             string
	ref            domain.InstrumentRef
	side           domain.Side
	targetPrice    float64
	alertThreshold float64
	createdAt      time.Time

	mu             sync.Mutex
	currentPrice   float64
	alertTriggered bool
	state          domain.MonitorState
	statusMessage  string
	lastUpdate     time.Time
	removed        bool
}

func newInstrument(id string, ref domain.InstrumentRef, target, threshold float64, side domain.Side) *Instrument {
	return &Instrument{
		id:             id,
		ref:            ref,
		side:           side,
		targetPrice:    target,
		alertThreshold: threshold,
		createdAt:      time.Now(),
		state:          domain.MonitorReady,
	}
}

// ID returns the monitor's stable identifier.
func (m *Instrument) ID() string { return m.id }

// Ref returns the instrument reference the monitor was created with.
func (m *Instrument) Ref() domain.InstrumentRef { return m.ref }

// applyTick evaluates one incoming tick and commits its effect under the
// entry mutex. The returned outcome carries a snapshot taken after the commit
// so listeners see the state the tick produced.
func (m *Instrument) applyTick(t domain.Tick) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.removed {
		return Outcome{}
	}

	out := Evaluate(View{
		TargetPrice:    m.targetPrice,
		AlertThreshold: m.alertThreshold,
		AlertTriggered: m.alertTriggered,
	}, t)
	if !out.Accepted {
		return out
	}

	m.currentPrice = out.Price
	if t.Received.IsZero() {
		m.lastUpdate = time.Now()
	} else {
		m.lastUpdate = t.Received
	}
	if out.Alert {
		m.alertTriggered = true
		m.state = domain.MonitorAlerted
	}

	out.Snapshot = m.snapshotLocked()
	return out
}

// resetAlert re-arms the monitor so a subsequent qualifying tick can alert
// again. This is the only path that clears alertTriggered; the coarse state
// is left untouched.
func (m *Instrument) resetAlert() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertTriggered = false
}

// markMonitoring records that the subscription has been established.
func (m *Instrument) markMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == domain.MonitorReady {
		m.state = domain.MonitorActive
	}
}

// setOrderState records the asynchronous order-placement outcome.
func (m *Instrument) setOrderState(state domain.MonitorState, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.statusMessage = message
}

// markRemoved makes every subsequent applyTick a no-op. Called while the
// entry is being deleted from the registry so a late-arriving tick for a
// removed id cannot emit events.
func (m *Instrument) markRemoved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = true
}

// Snapshot returns a read-only copy of the observable state.
func (m *Instrument) Snapshot() domain.MonitorSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Instrument) snapshotLocked() domain.MonitorSnapshot {
	return domain.MonitorSnapshot{
		ID:             m.id,
		Instrument:     m.ref,
		Side:           m.side,
		TargetPrice:    m.targetPrice,
		AlertThreshold: m.alertThreshold,
		CurrentPrice:   m.currentPrice,
		AlertTriggered: m.alertTriggered,
		State:          m.state,
		StatusMessage:  m.statusMessage,
		LastUpdate:     m.lastUpdate,
		CreatedAt:      m.createdAt,
	}
}
