package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest observed price per contract.
type PriceCache interface {
	SetPrice(ctx context.Context, key string, price float64, ts time.Time) error
	// GetPrice returns ErrNotFound when no price has been recorded.
	GetPrice(ctx context.Context, key string) (float64, time.Time, error)
}

// AlertRecord is one fired alert as persisted for audit.
type AlertRecord struct {
	ID          int64
	MonitorID   string
	Instrument  string
	Side        Side
	TargetPrice float64
	Threshold   float64
	Price       float64
	Distance    float64
	FiredAt     time.Time
}

// AlertStore persists fired alerts and the eventual order outcome of each
// monitoring session.
type AlertStore interface {
	RecordAlert(ctx context.Context, rec AlertRecord) error
	RecordOrderState(ctx context.Context, monitorID string, state MonitorState, message string) error
	ListAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}
