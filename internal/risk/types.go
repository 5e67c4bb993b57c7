package risk

import (
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/signal"
)

// Reason is the reported kind of a rejected order
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonHaltedDailyLoss    Reason = "halted_daily_loss"
	ReasonHaltedExposure     Reason = "halted_exposure"
	ReasonMaxPositions       Reason = "max_positions_reached"
	ReasonDuplicateSymbol    Reason = "duplicate_symbol_open"
	ReasonRiskRewardBelowMin Reason = "risk_reward_below_minimum"
	ReasonInsufficientConf   Reason = "insufficient_confidence"
	ReasonVolumeBelowMinimum Reason = "volume_below_minimum"
	ReasonStaleSignal        Reason = "stale_signal"
	ReasonInvalidSignal      Reason = "invalid_signal"
	ReasonPositionTooSmall   Reason = "position_too_small"
	ReasonExposureLimit      Reason = "exposure_limit"
)

// IsHalted reports whether the rejection came from a halt rather than the signal itself
func (r Reason) IsHalted() bool {
	return r == ReasonHaltedDailyLoss || r == ReasonHaltedExposure
}

// HaltCause identifies which breaker stopped new orders
type HaltCause string

const (
	HaltDailyLoss HaltCause = "daily_loss"
	HaltExposure  HaltCause = "exposure"
)

// Decision is the outcome of a risk evaluation: approve with sizing or reject with a reason
type Decision struct {
	Approved   bool             `json:"approved"`
	Reason     Reason           `json:"reason,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	Symbol     string           `json:"symbol"`
	Side       signal.Direction `json:"side"`
	EntryPrice float64          `json:"entry_price"`
	Quantity   float64          `json:"quantity"`
	Notional   float64          `json:"notional"`
	StopLoss   float64          `json:"stop_loss"`
	TakeProfit float64          `json:"take_profit"`
	RiskReward float64          `json:"risk_reward"`
	Confidence float64          `json:"confidence"`
	DecidedAt  time.Time        `json:"decided_at"`
}

func reject(sig signal.Signal, reason Reason, detail string, at time.Time) Decision {
	return Decision{
		Reason:     reason,
		Detail:     detail,
		Symbol:     sig.Symbol,
		Side:       sig.Direction,
		EntryPrice: sig.Price,
		Confidence: sig.Confidence,
		DecidedAt:  at,
	}
}

// RiskState is the serializable risk accounting; readers get copies
type RiskState struct {
	TradingDay       string             `json:"trading_day"`
	DayStartValue    float64            `json:"day_start_value"`
	DailyRealizedPnL float64            `json:"daily_realized_pnl"`
	DailyLossLimit   float64            `json:"daily_loss_limit"`
	OpenPositions    int                `json:"open_positions"`
	Exposure         float64            `json:"exposure"`
	ExposureFraction float64            `json:"exposure_fraction"`
	DailyLossHalt    bool               `json:"daily_loss_halt"`
	ExposureHalt     bool               `json:"exposure_halt"`
	HaltedAt         *time.Time         `json:"halted_at,omitempty"`
	OpenNotional     map[string]float64 `json:"open_notional"`
	Approved         int                `json:"approved"`
	Rejected         int                `json:"rejected"`
}

// DailyLoss is the net realized loss of the trading day, zero when the day is positive
func (s RiskState) DailyLoss() float64 {
	if s.DailyRealizedPnL >= 0 {
		return 0
	}
	return -s.DailyRealizedPnL
}

// Halted reports whether either breaker is active
func (s RiskState) Halted() bool {
	return s.DailyLossHalt || s.ExposureHalt
}

// Status is ACTIVE or HALTED
func (s RiskState) Status() string {
	if s.Halted() {
		return "HALTED"
	}
	return "ACTIVE"
}

func (s RiskState) clone() RiskState {
	out := s
	out.OpenNotional = make(map[string]float64, len(s.OpenNotional))
	for k, v := range s.OpenNotional {
		out.OpenNotional[k] = v
	}
	if s.HaltedAt != nil {
		t := *s.HaltedAt
		out.HaltedAt = &t
	}
	return out
}
