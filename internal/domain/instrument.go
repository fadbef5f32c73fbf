// Package domain holds the core types and capability interfaces shared across
// the monitoring service, the broker gateway, and the storage adapters.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Side indicates the intended order direction for a monitored instrument. It
// is carried through to alert events and order placement; it does not affect
// the alert distance math.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide converts a configuration string into a Side.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", fmt.Errorf("side %q: %w", s, ErrInvalidArgument)
	}
}

// InstrumentRef identifies a tradable contract at the broker. The monitoring
// subsystem treats it as an opaque value and passes it to the gateway
// unmodified.
type InstrumentRef struct {
	Symbol   string
	SecType  string // "STK", "OPT", "FUT"
	Strike   float64
	Expiry   string // YYYYMMDD, empty for non-derivatives
	Right    string // "C" or "P", options only
	Exchange string
	Currency string
}

// Empty reports whether the reference carries no symbol.
func (r InstrumentRef) Empty() bool {
	return strings.TrimSpace(r.Symbol) == ""
}

// Key returns a stable cache/audit key for the contract.
func (r InstrumentRef) Key() string {
	parts := []string{r.Symbol, r.SecType}
	if r.Expiry != "" {
		parts = append(parts, r.Expiry)
	}
	if r.Strike > 0 {
		parts = append(parts, strconv.FormatFloat(r.Strike, 'f', -1, 64))
	}
	if r.Right != "" {
		parts = append(parts, r.Right)
	}
	return strings.Join(parts, ":")
}

// String renders a human-readable description, e.g. "AAPL OPT 150C 20260116".
func (r InstrumentRef) String() string {
	if r.SecType == "OPT" {
		return fmt.Sprintf("%s OPT %s%s %s", r.Symbol, trimFloat(r.Strike), r.Right, r.Expiry)
	}
	if r.SecType == "" {
		return r.Symbol
	}
	return r.Symbol + " " + r.SecType
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
