// Package notify delivers operator notifications for monitor events over one
// or more channels (Telegram, Discord). Events can be filtered by type so an
// operator receives only what they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Well-known event types emitted by the monitoring service.
const (
	EventPriceAlert = "price_alert"
	EventOrderState = "order_state"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers a notification with the given title and body.
	Send(ctx context.Context, title, body string) error
	// Name identifies the channel in logs, e.g. "telegram".
	Name() string
}

// Notifier dispatches notifications to its senders. A failing sender does not
// prevent delivery to the remaining ones.
type Notifier struct {
	senders []Sender
	allowed map[string]bool
	logger  *slog.Logger
}

// New creates a Notifier delivering to senders. Only event types listed in
// events pass the filter; an empty list allows everything.
func New(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers to all senders if the event type passes the filter. Sender
// failures are combined into the returned error.
func (n *Notifier) Notify(ctx context.Context, event, title, body string) error {
	if len(n.allowed) > 0 && !n.allowed[event] {
		return nil
	}

	var failed []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, body); err != nil {
			n.logger.Warn("notification send failed",
				slog.String("sender", s.Name()),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			failed = append(failed, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(failed, "; "))
	}
	return nil
}
