package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	for in, want := range map[string]Side{
		"BUY":   SideBuy,
		"buy":   SideBuy,
		" Sell": SideSell,
		"SELL":  SideSell,
	} {
		got, err := ParseSide(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseSide("hold")
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParseSide("")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTickKindAuthoritative(t *testing.T) {
	authoritative := []TickKind{TickLast, TickDelayedLast, TickBid, TickAsk, TickClose}
	for _, k := range authoritative {
		assert.True(t, k.Authoritative(), string(k))
	}
	for _, k := range []TickKind{TickHigh, TickLow, TickOpen, TickVolume, TickKind("halted")} {
		assert.False(t, k.Authoritative(), string(k))
	}
}

func TestDistanceToTarget(t *testing.T) {
	snap := MonitorSnapshot{TargetPrice: 100}
	assert.Equal(t, math.MaxFloat64, snap.DistanceToTarget(), "no observed price yet")
	assert.Equal(t, 100.0, snap.DistancePercent())

	snap.CurrentPrice = 99.25
	assert.InDelta(t, 0.75, snap.DistanceToTarget(), 1e-9)
	assert.InDelta(t, 0.75, snap.DistancePercent(), 1e-9)

	snap.CurrentPrice = 100.50
	assert.InDelta(t, 0.50, snap.DistanceToTarget(), 1e-9)
}

func TestInstrumentRefKey(t *testing.T) {
	stock := InstrumentRef{Symbol: "AAPL", SecType: "STK", Exchange: "SMART", Currency: "USD"}
	assert.Equal(t, "AAPL:STK", stock.Key())

	option := InstrumentRef{Symbol: "AAPL", SecType: "OPT", Strike: 150, Expiry: "20260116", Right: "C"}
	assert.Equal(t, "AAPL:OPT:20260116:150:C", option.Key())
}

func TestInstrumentRefString(t *testing.T) {
	option := InstrumentRef{Symbol: "AAPL", SecType: "OPT", Strike: 152.5, Expiry: "20260116", Right: "P"}
	assert.Equal(t, "AAPL OPT 152.5P 20260116", option.String())

	assert.Equal(t, "TSLA STK", InstrumentRef{Symbol: "TSLA", SecType: "STK"}.String())
	assert.Equal(t, "TSLA", InstrumentRef{Symbol: "TSLA"}.String())
}

func TestInstrumentRefEmpty(t *testing.T) {
	assert.True(t, InstrumentRef{}.Empty())
	assert.True(t, InstrumentRef{Symbol: "  "}.Empty())
	assert.False(t, InstrumentRef{Symbol: "AAPL"}.Empty())
}
