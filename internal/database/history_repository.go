package database

import (
	"context"
	"fmt"

	"github.com/ducminhle1904/whale-tracker/internal/errors"
	"github.com/ducminhle1904/whale-tracker/internal/position"
	"github.com/ducminhle1904/whale-tracker/internal/risk"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
)

// HistoryRepository appends closed positions, alerts and risk decisions to PostgreSQL
type HistoryRepository struct {
	db Execer
}

// NewHistoryRepository creates a repository over a pool or any Execer
func NewHistoryRepository(db Execer) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// RecordClosedPosition stores a closed position once; repeats are ignored
func (r *HistoryRepository) RecordClosedPosition(ctx context.Context, p position.Position) error {
	if p.Status != position.StatusClosed || p.ClosedAt == nil {
		return errors.NewValidationError("database", "record_closed_position", fmt.Sprintf("position %s is not closed", p.ID))
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO closed_positions (
			id, symbol, side, entry_price, exit_price, quantity, stop_loss, take_profit,
			confidence, realized_pnl, return_pct, close_reason, opened_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Symbol, string(p.Side), p.EntryPrice, p.ExitPrice, p.Quantity, p.StopLoss, p.TakeProfit,
		p.Confidence, p.RealizedPnL, p.ReturnPct(), string(p.CloseReason), p.OpenedAt, *p.ClosedAt,
	)
	if err != nil {
		return errors.NewStorageError("database", "record_closed_position", err).WithContext("symbol", p.Symbol)
	}
	return nil
}

// RecordAlert stores an alert; the same symbol/kind/time is stored once
func (r *HistoryRepository) RecordAlert(ctx context.Context, a whale.Alert) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO whale_alerts (symbol, kind, severity, message, magnitude, direction, alerted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, kind, alerted_at) DO NOTHING`,
		a.Symbol, string(a.Kind), string(a.Severity), a.Message, a.Magnitude, a.Direction, a.Timestamp,
	)
	if err != nil {
		return errors.NewStorageError("database", "record_alert", err).WithContext("symbol", a.Symbol)
	}
	return nil
}

// RecordDecision stores a risk decision, approved or rejected
func (r *HistoryRepository) RecordDecision(ctx context.Context, d risk.Decision) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO risk_decisions (symbol, side, approved, reason, quantity, notional, risk_reward, confidence, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.Symbol, string(d.Side), d.Approved, string(d.Reason), d.Quantity, d.Notional, d.RiskReward, d.Confidence, d.DecidedAt,
	)
	if err != nil {
		return errors.NewStorageError("database", "record_decision", err).WithContext("symbol", d.Symbol)
	}
	return nil
}
