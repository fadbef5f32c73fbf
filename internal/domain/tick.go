package domain

import "time"

// TickKind identifies which market-data field a tick carries.
type TickKind string

const (
	TickLast        TickKind = "last"
	TickDelayedLast TickKind = "delayed_last"
	TickBid         TickKind = "bid"
	TickAsk         TickKind = "ask"
	TickClose       TickKind = "close"
	TickHigh        TickKind = "high"
	TickLow         TickKind = "low"
	TickOpen        TickKind = "open"
	TickVolume      TickKind = "volume"
)

// Authoritative reports whether a tick of this kind carries a price the
// monitor accepts as the instrument's current price. High/low/open/volume
// ticks are informational and never move the observed price.
func (k TickKind) Authoritative() bool {
	switch k {
	case TickLast, TickDelayedLast, TickBid, TickAsk, TickClose:
		return true
	default:
		return false
	}
}

// Tick is one market-data observation delivered on a subscription stream.
type Tick struct {
	Kind     TickKind
	Price    float64
	Received time.Time
}
