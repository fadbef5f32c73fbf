package monitor

import (
	"math"

	"github.com/akulikov/tickwatch/internal/domain"
)

// View is the subset of a monitored instrument's state the evaluator reads.
type View struct {
	TargetPrice    float64
	AlertThreshold float64
	AlertTriggered bool
}

// Outcome captures the effect one tick has on a monitored instrument.
type Outcome struct {
	// Accepted is false when the tick was rejected: wrong kind or
	// non-positive price. A rejected tick changes nothing and emits nothing.
	Accepted bool
	// Price is the accepted tick price, i.e. the new current price.
	Price float64
	// Distance is abs(target - price) for the accepted tick.
	Distance float64
	// Alert is true when this tick crossed into the alert zone and the
	// monitor had not alerted yet in this session.
	Alert bool
	// Snapshot is the post-commit state, filled in by Instrument.applyTick.
	Snapshot domain.MonitorSnapshot
}

// Evaluate is the pure tick decision: given the monitored state and one
// incoming tick it decides whether the tick is accepted, what the new price
// and distance are, and whether the one-shot alert fires. A threshold of zero
// requires an exact price match.
func Evaluate(v View, t domain.Tick) Outcome {
	if !t.Kind.Authoritative() || t.Price <= 0 {
		return Outcome{}
	}

	out := Outcome{
		Accepted: true,
		Price:    t.Price,
		Distance: math.Abs(v.TargetPrice - t.Price),
	}
	if !v.AlertTriggered && out.Distance <= v.AlertThreshold {
		out.Alert = true
	}
	return out
}
