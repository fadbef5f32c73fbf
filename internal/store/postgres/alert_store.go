package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akulikov/tickwatch/internal/domain"
)

// AlertStore implements domain.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates an AlertStore backed by the given connection pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// RecordAlert appends one fired alert.
func (s *AlertStore) RecordAlert(ctx context.Context, rec domain.AlertRecord) error {
	const query = `
		INSERT INTO price_alerts
			(monitor_id, instrument, side, target_price, threshold, price, distance, fired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query,
		rec.MonitorID, rec.Instrument, string(rec.Side),
		rec.TargetPrice, rec.Threshold, rec.Price, rec.Distance, rec.FiredAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record alert %s: %w", rec.MonitorID, err)
	}
	return nil
}

// RecordOrderState appends the order outcome reached by a monitoring session.
func (s *AlertStore) RecordOrderState(ctx context.Context, monitorID string, state domain.MonitorState, message string) error {
	const query = `INSERT INTO order_states (monitor_id, state, message) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, query, monitorID, string(state), message); err != nil {
		return fmt.Errorf("postgres: record order state %s: %w", monitorID, err)
	}
	return nil
}

// ListAlerts returns the most recent fired alerts, newest first.
func (s *AlertStore) ListAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, monitor_id, instrument, side, target_price, threshold, price, distance, fired_at
		FROM price_alerts
		ORDER BY fired_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRecord
	for rows.Next() {
		var rec domain.AlertRecord
		var side string
		if err := rows.Scan(&rec.ID, &rec.MonitorID, &rec.Instrument, &side,
			&rec.TargetPrice, &rec.Threshold, &rec.Price, &rec.Distance, &rec.FiredAt); err != nil {
			return nil, fmt.Errorf("postgres: scan alert: %w", err)
		}
		rec.Side = domain.Side(side)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list alerts: %w", err)
	}
	return out, nil
}

var _ domain.AlertStore = (*AlertStore)(nil)
