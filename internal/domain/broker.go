package domain

import "context"

// TickStream is a live market-data feed for one instrument. The stream stays
// open indefinitely until cancelled.
type TickStream interface {
	// Ticks returns the channel on which observations arrive. The channel is
	// closed after Cancel or when the feed terminates.
	Ticks() <-chan Tick
	// Cancel stops the feed. It is safe to call more than once.
	Cancel()
}

// TickSubscriber establishes live tick feeds with the broker, one per
// instrument.
type TickSubscriber interface {
	SubscribeTicks(ctx context.Context, ref InstrumentRef) (TickStream, error)
}

// OrderResult is the broker's response to an order submission.
type OrderResult struct {
	Submitted bool
	OrderID   string
	Reason    string // populated on rejection
}

// OrderPlacer submits orders to the broker. A rejected order is reported in
// the result, not as an error; errors indicate transport or gateway faults.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, ref InstrumentRef, side Side, quantity int, limitPrice float64) (OrderResult, error)
}
