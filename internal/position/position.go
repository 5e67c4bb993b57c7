package position

import (
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/signal"
)

// Side is the direction of a position
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Sign is +1 for LONG and -1 for SHORT
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// SideOf maps a signal direction onto a position side
func SideOf(d signal.Direction) (Side, bool) {
	switch d {
	case signal.DirectionLong:
		return SideLong, true
	case signal.DirectionShort:
		return SideShort, true
	}
	return "", false
}

// Status of a position
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// CloseReason tags why a position was closed
type CloseReason string

const (
	ReasonStopLoss       CloseReason = "stop_loss"
	ReasonTakeProfit     CloseReason = "take_profit"
	ReasonManual         CloseReason = "manual"
	ReasonSignalReversal CloseReason = "signal_reversal"
	ReasonMaxHolding     CloseReason = "max_holding_time"
)

// Position is one trade from open to close. Closed positions are never mutated.
type Position struct {
	ID            string      `json:"id"`
	Symbol        string      `json:"symbol"`
	Side          Side        `json:"side"`
	EntryPrice    float64     `json:"entry_price"`
	Quantity      float64     `json:"quantity"`
	StopLoss      float64     `json:"stop_loss"`
	TakeProfit    float64     `json:"take_profit"`
	Confidence    float64     `json:"confidence"`
	OpenedAt      time.Time   `json:"opened_at"`
	Status        Status      `json:"status"`
	CloseReason   CloseReason `json:"close_reason,omitempty"`
	ExitPrice     float64     `json:"exit_price,omitempty"`
	ClosedAt      *time.Time  `json:"closed_at,omitempty"`
	LastPrice     float64     `json:"last_price"`
	LastMarkAt    time.Time   `json:"last_mark_at"`
	UnrealizedPnL float64     `json:"unrealized_pnl"`
	RealizedPnL   float64     `json:"realized_pnl"`
	MaxProfit     float64     `json:"max_profit"`
	MaxLoss       float64     `json:"max_loss"`
	Reasons       []string    `json:"reasons,omitempty"`
}

// CostBasis is the notional paid at entry
func (p Position) CostBasis() float64 {
	return p.EntryPrice * p.Quantity
}

// MarketValue is the position's contribution to portfolio value at the last mark
func (p Position) MarketValue() float64 {
	return p.CostBasis() + p.UnrealizedPnL
}

// PnLAt is (price - entry) x quantity x side sign
func (p Position) PnLAt(price float64) float64 {
	return (price - p.EntryPrice) * p.Quantity * p.Side.Sign()
}

// ReturnPct is the realized (or unrealized while open) return on cost in percent
func (p Position) ReturnPct() float64 {
	cost := p.CostBasis()
	if cost == 0 {
		return 0
	}
	if p.Status == StatusClosed {
		return p.RealizedPnL / cost * 100
	}
	return p.UnrealizedPnL / cost * 100
}

// HoldingTime is how long the position was (or has been) open
func (p Position) HoldingTime(now time.Time) time.Duration {
	if p.ClosedAt != nil {
		return p.ClosedAt.Sub(p.OpenedAt)
	}
	return now.Sub(p.OpenedAt)
}

func (p Position) clone() Position {
	out := p
	out.Reasons = append([]string(nil), p.Reasons...)
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		out.ClosedAt = &t
	}
	return out
}

// exitFor evaluates the exit rules in fixed precedence: stop-loss, take-profit,
// then max holding time. low and high are the extremes seen since the last mark.
func (p Position) exitFor(low, high float64, at time.Time, maxHolding time.Duration) (CloseReason, bool) {
	if p.Side == SideLong {
		if low <= p.StopLoss {
			return ReasonStopLoss, true
		}
		if high >= p.TakeProfit {
			return ReasonTakeProfit, true
		}
	} else {
		if high >= p.StopLoss {
			return ReasonStopLoss, true
		}
		if low <= p.TakeProfit {
			return ReasonTakeProfit, true
		}
	}
	if maxHolding > 0 && at.Sub(p.OpenedAt) >= maxHolding {
		return ReasonMaxHolding, true
	}
	return "", false
}

// fillPrice is the mark price when it is itself through the triggered level,
// otherwise the level, which an intra-bar extreme crossed
func (p Position) fillPrice(reason CloseReason, price float64) float64 {
	var level float64
	switch reason {
	case ReasonStopLoss:
		level = p.StopLoss
	case ReasonTakeProfit:
		level = p.TakeProfit
	default:
		return price
	}

	below := reason == ReasonStopLoss
	if p.Side == SideShort {
		below = !below
	}
	if (below && price <= level) || (!below && price >= level) {
		return price
	}
	return level
}
