package portfolio

import (
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/internal/position"
)

// PortfolioState is the derived view published each cycle. Every field is
// recomputed from position history and the value series.
type PortfolioState struct {
	TotalValue      float64   `json:"total_value"`
	Cash            float64   `json:"cash"`
	InitialCapital  float64   `json:"initial_capital"`
	TotalPnL        float64   `json:"total_pnl"`
	TotalPnLPct     float64   `json:"total_pnl_pct"`
	RealizedPnL     float64   `json:"realized_pnl"`
	UnrealizedPnL   float64   `json:"unrealized_pnl"`
	WinRate         float64   `json:"win_rate"`
	SharpeRatio     float64   `json:"sharpe_ratio"`
	MaxDrawdown     float64   `json:"max_drawdown"`
	VaR95           float64   `json:"var_95"`
	ProfitFactor    float64   `json:"profit_factor"`
	AvgWin          float64   `json:"avg_win"`
	AvgLoss         float64   `json:"avg_loss"`
	ActivePositions int       `json:"active_positions"`
	ClosedPositions int       `json:"closed_positions"`
	Wins            int       `json:"wins"`
	Losses          int       `json:"losses"`
	Exposure        float64   `json:"exposure"`
	ExposurePct     float64   `json:"exposure_pct"`
	RiskLevel       RiskLevel `json:"risk_level"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Aggregator computes PortfolioState; it holds configuration only
type Aggregator struct {
	initialCapital float64
	lookback       int
	periodsPerYear int
}

// NewAggregator creates an aggregator for the given starting capital
func NewAggregator(initialCapital float64, cfg config.PortfolioConfig) *Aggregator {
	return &Aggregator{
		initialCapital: initialCapital,
		lookback:       cfg.SharpeLookback,
		periodsPerYear: cfg.PeriodsPerYear,
	}
}

// Value is cash plus the marked value of open positions, where cash is the
// initial capital plus realized P&L minus the cost of open positions.
func (a *Aggregator) Value(open, closed []position.Position) float64 {
	realized := 0.0
	for _, p := range closed {
		realized += p.RealizedPnL
	}
	cost, market := 0.0, 0.0
	for _, p := range open {
		cost += p.CostBasis()
		market += p.MarketValue()
	}
	return a.initialCapital + realized - cost + market
}

// Compute derives the full state. The series' last point is expected to be
// the current value.
func (a *Aggregator) Compute(open, closed []position.Position, series *ValueSeries, now time.Time) PortfolioState {
	var values []float64
	var drawdown DrawdownSummary
	if series != nil {
		values = series.Values()
		drawdown = series.Drawdown()
	}

	pnls := make([]float64, len(closed))
	for i, p := range closed {
		pnls[i] = p.RealizedPnL
	}
	stats := ComputeTradeStats(pnls)

	cost, market, unrealized := 0.0, 0.0, 0.0
	for _, p := range open {
		cost += p.CostBasis()
		market += p.MarketValue()
		unrealized += p.UnrealizedPnL
	}

	s := PortfolioState{
		InitialCapital:  a.initialCapital,
		Cash:            a.initialCapital + stats.RealizedPnL - cost,
		RealizedPnL:     stats.RealizedPnL,
		UnrealizedPnL:   unrealized,
		WinRate:         stats.WinRate,
		ProfitFactor:    stats.ProfitFactor,
		AvgWin:          stats.AvgWin,
		AvgLoss:         stats.AvgLoss,
		ActivePositions: len(open),
		ClosedPositions: stats.Closed,
		Wins:            stats.Wins,
		Losses:          stats.Losses,
		Exposure:        market,
		UpdatedAt:       now,
	}
	s.TotalValue = s.Cash + market
	s.TotalPnL = s.TotalValue - a.initialCapital
	if a.initialCapital > 0 {
		s.TotalPnLPct = s.TotalPnL / a.initialCapital * 100
	}
	if s.TotalValue > 0 {
		s.ExposurePct = market / s.TotalValue * 100
	}
	s.RiskLevel = ClassifyRisk(s.ExposurePct / 100)

	returns := Returns(values)
	window := returns
	if a.lookback > 0 && len(window) > a.lookback {
		window = window[len(window)-a.lookback:]
	}
	s.SharpeRatio = SharpeRatio(window, a.periodsPerYear)
	s.MaxDrawdown = drawdown.MaxDrawdown
	s.VaR95 = ValueAtRisk95(window)
	return s
}
