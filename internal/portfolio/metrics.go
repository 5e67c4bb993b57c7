package portfolio

import (
	"math"
	"sort"
)

// profitFactorCap stands in for an infinite profit factor so the state stays JSON encodable
const profitFactorCap = 999.0

// Returns converts a value series into simple period returns, skipping non-positive bases
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			out = append(out, (values[i]-values[i-1])/values[i-1])
		}
	}
	return out
}

// SharpeRatio is mean/stddev of returns (risk-free rate 0), annualized by sqrt(periodsPerYear)
func SharpeRatio(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}

	avgReturn := 0.0
	for _, r := range returns {
		avgReturn += r
	}
	avgReturn /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-avgReturn, 2)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-10 {
		return 0
	}
	sharpe := avgReturn / stdDev
	if periodsPerYear > 0 {
		sharpe *= math.Sqrt(float64(periodsPerYear))
	}
	return sharpe
}

// MaxDrawdown is the largest peak-to-trough decline of the series as a fraction of the peak
func MaxDrawdown(values []float64) float64 {
	return DrawdownSummary{}.Extend(values).MaxDrawdown
}

// DrawdownSummary carries the running peak and the largest decline seen so
// far, so a series can drop old points without forgetting them.
type DrawdownSummary struct {
	Peak        float64 `json:"peak"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// Extend folds values, oldest first, into the summary
func (d DrawdownSummary) Extend(values []float64) DrawdownSummary {
	for _, v := range values {
		if v > d.Peak {
			d.Peak = v
		}
		if d.Peak > 0 {
			if dd := (d.Peak - v) / d.Peak; dd > d.MaxDrawdown {
				d.MaxDrawdown = dd
			}
		}
	}
	return d
}

// ValueAtRisk95 is the historical one-period 95% VaR as a positive loss fraction
func ValueAtRisk95(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	p := percentile(returns, 0.05)
	if p >= 0 {
		return 0
	}
	return -p
}

// percentile uses linear interpolation between closest ranks
func percentile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// TradeStats summarizes realized P&L of closed trades
type TradeStats struct {
	Closed       int
	Wins         int
	Losses       int
	WinRate      float64 // fraction of closed trades with positive P&L
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64 // positive magnitude
	RealizedPnL  float64
}

// ComputeTradeStats derives win rate, profit factor and average win/loss
func ComputeTradeStats(pnls []float64) TradeStats {
	s := TradeStats{Closed: len(pnls)}
	totalProfit, totalLoss := 0.0, 0.0
	for _, pnl := range pnls {
		s.RealizedPnL += pnl
		switch {
		case pnl > 0:
			s.Wins++
			totalProfit += pnl
		case pnl < 0:
			s.Losses++
			totalLoss += math.Abs(pnl)
		}
	}
	if s.Closed == 0 {
		return s
	}
	s.WinRate = float64(s.Wins) / float64(s.Closed)
	if s.Wins > 0 {
		s.AvgWin = totalProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = totalLoss / float64(s.Losses)
	}
	switch {
	case totalLoss > 0:
		s.ProfitFactor = math.Min(totalProfit/totalLoss, profitFactorCap)
	case totalProfit > 0:
		s.ProfitFactor = profitFactorCap
	}
	return s
}
