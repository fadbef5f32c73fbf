package domain

import (
	"math"
	"time"
)

// MonitorState is the coarse lifecycle state of one monitored instrument.
type MonitorState string

const (
	// MonitorReady means the monitor is registered but the tick subscription
	// has not been established yet.
	MonitorReady MonitorState = "ready"
	// MonitorActive means the subscription is live and the monitor is
	// awaiting a qualifying tick.
	MonitorActive MonitorState = "monitoring"
	// MonitorAlerted means the alert fired and order hand-off is in progress.
	MonitorAlerted MonitorState = "alerted"
	// MonitorPlaced is terminal: the broker confirmed order submission.
	MonitorPlaced MonitorState = "placed"
	// MonitorError is terminal: order placement was rejected or faulted.
	MonitorError MonitorState = "error"
)

// MonitorSnapshot is a point-in-time, read-only copy of a monitored
// instrument's observable state. Listeners receive snapshots, never the live
// entry.
type MonitorSnapshot struct {
	ID             string
	Instrument     InstrumentRef
	Side           Side
	TargetPrice    float64
	AlertThreshold float64
	CurrentPrice   float64
	AlertTriggered bool
	State          MonitorState
	StatusMessage  string
	LastUpdate     time.Time
	CreatedAt      time.Time
}

// DistanceToTarget returns the absolute price distance from the last observed
// price to the target. Before any price has been observed it returns
// math.MaxFloat64 so the distance can never spuriously satisfy a threshold.
func (s MonitorSnapshot) DistanceToTarget() float64 {
	if s.CurrentPrice == 0 {
		return math.MaxFloat64
	}
	return math.Abs(s.TargetPrice - s.CurrentPrice)
}

// DistancePercent returns the distance to target as a percentage of the
// target price, or 100 when no price has been observed yet.
func (s MonitorSnapshot) DistancePercent() float64 {
	if s.CurrentPrice == 0 || s.TargetPrice == 0 {
		return 100
	}
	return math.Abs(s.TargetPrice-s.CurrentPrice) / s.TargetPrice * 100
}
