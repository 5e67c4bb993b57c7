package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/internal/logger"
	"github.com/ducminhle1904/whale-tracker/internal/signal"
	"github.com/shopspring/decimal"
)

const epsilon = 1e-9

// HaltHandler is called outside the lock whenever a breaker trips
type HaltHandler func(cause HaltCause, detail string)

// Manager is the single authority over capital allocation. Every mutation of
// the risk accounting goes through one mutex.
type Manager struct {
	cfg    config.RiskConfig
	logger *logger.Logger

	mu     sync.RWMutex
	state  RiskState
	onHalt HaltHandler
}

var _ Authority = (*Manager)(nil)

// NewManager creates a risk manager whose first trading day starts at initialValue
func NewManager(cfg config.RiskConfig, initialValue float64, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		cfg:    cfg,
		logger: log.With("risk"),
		state: RiskState{
			DayStartValue:  initialValue,
			DailyLossLimit: cfg.MaxDailyLoss * initialValue,
			OpenNotional:   make(map[string]float64),
		},
	}
}

// SetHaltHandler registers the breaker callback
func (m *Manager) SetHaltHandler(h HaltHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onHalt = h
}

// Evaluate runs every check and sizes the order without reserving anything
func (m *Manager) Evaluate(sig signal.Signal, portfolioValue float64, now time.Time) Decision {
	m.mu.Lock()
	d, halts := m.evaluateLocked(sig, portfolioValue, now)
	handler := m.onHalt
	m.mu.Unlock()

	m.fireHalts(handler, halts)
	return d
}

// Approve evaluates the signal and on approval reserves exposure and the open
// slot in the same critical section, so two symbols can never both take the
// last unit of headroom.
func (m *Manager) Approve(sig signal.Signal, portfolioValue float64, now time.Time) Decision {
	m.mu.Lock()
	d, halts := m.evaluateLocked(sig, portfolioValue, now)
	if d.Approved {
		m.state.OpenNotional[d.Symbol] = d.Notional
		m.recountLocked(portfolioValue)
		m.state.Approved++
	} else {
		m.state.Rejected++
	}
	handler := m.onHalt
	m.mu.Unlock()

	m.fireHalts(handler, halts)
	if d.Approved {
		m.logger.Trade("approved %s %s qty=%.4f notional=%.2f sl=%.4f tp=%.4f rr=%.2f",
			d.Side, d.Symbol, d.Quantity, d.Notional, d.StopLoss, d.TakeProfit, d.RiskReward)
	} else {
		m.logger.Debug("rejected %s %s: %s %s", sig.Direction, sig.Symbol, d.Reason, d.Detail)
	}
	return d
}

// Release drops the reservation for a symbol whose open did not go through
func (m *Manager) Release(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.OpenNotional[symbol]; !ok {
		return
	}
	delete(m.state.OpenNotional, symbol)
	m.recountLocked(m.state.DayStartValue)
	m.logger.Warning("released reservation for %s", symbol)
}

// RecordOpen reserves exposure for a position opened outside Approve
func (m *Manager) RecordOpen(symbol string, notional float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.OpenNotional[symbol] = notional
	m.recountLocked(m.state.DayStartValue)
}

// RecordClose releases the position's exposure and books its realized P&L
// against the daily budget. Reaching the limit exactly counts as a breach.
func (m *Manager) RecordClose(symbol string, realizedPnL float64, closedAt time.Time) {
	m.mu.Lock()
	m.resetIfNewDay(closedAt, m.state.DayStartValue)

	delete(m.state.OpenNotional, symbol)
	m.recountLocked(m.state.DayStartValue)
	m.state.DailyRealizedPnL += realizedPnL

	var halts []haltEvent
	if !m.state.DailyLossHalt && m.state.DailyLossLimit > 0 && m.state.DailyLoss() >= m.state.DailyLossLimit-epsilon {
		m.state.DailyLossHalt = true
		m.markHaltedLocked(closedAt)
		halts = append(halts, haltEvent{
			cause:  HaltDailyLoss,
			detail: fmt.Sprintf("daily loss %.2f reached limit %.2f", m.state.DailyLoss(), m.state.DailyLossLimit),
		})
	}
	handler := m.onHalt
	m.mu.Unlock()

	m.logger.Info("closed %s realized=%.2f daily=%.2f", symbol, realizedPnL, m.State().DailyRealizedPnL)
	m.fireHalts(handler, halts)
}

// ResetDay starts a new trading day: clears the daily counter and the daily-loss halt
func (m *Manager) ResetDay(now time.Time, portfolioValue float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startDayLocked(now, portfolioValue)
}

// State returns a copy of the risk accounting
func (m *Manager) State() RiskState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Restore replaces the risk accounting with a persisted copy
func (m *Manager) Restore(state RiskState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.clone()
	if m.state.OpenNotional == nil {
		m.state.OpenNotional = make(map[string]float64)
	}
	m.state.OpenPositions = len(m.state.OpenNotional)
}

type haltEvent struct {
	cause  HaltCause
	detail string
}

func (m *Manager) fireHalts(handler HaltHandler, halts []haltEvent) {
	for _, h := range halts {
		m.logger.Warning("trading halted (%s): %s", h.cause, h.detail)
		if handler != nil {
			handler(h.cause, h.detail)
		}
	}
}

func (m *Manager) evaluateLocked(sig signal.Signal, value float64, now time.Time) (Decision, []haltEvent) {
	var halts []haltEvent
	m.resetIfNewDay(now, value)

	if m.state.DailyLossHalt {
		return reject(sig, ReasonHaltedDailyLoss, fmt.Sprintf("daily loss %.2f of limit %.2f", m.state.DailyLoss(), m.state.DailyLossLimit), now), halts
	}

	// The exposure breaker is re-evaluated on every call and clears on its own.
	m.recountLocked(value)
	if value <= 0 || m.state.ExposureFraction > m.cfg.MaxExposure+epsilon {
		if !m.state.ExposureHalt {
			m.state.ExposureHalt = true
			m.markHaltedLocked(now)
			halts = append(halts, haltEvent{
				cause:  HaltExposure,
				detail: fmt.Sprintf("exposure %.2f%% above ceiling %.2f%%", m.state.ExposureFraction*100, m.cfg.MaxExposure*100),
			})
		}
		return reject(sig, ReasonHaltedExposure, fmt.Sprintf("exposure %.4f above %.4f", m.state.ExposureFraction, m.cfg.MaxExposure), now), halts
	}
	if m.state.ExposureHalt {
		m.state.ExposureHalt = false
		m.logger.Info("exposure breaker cleared at %.2f%%", m.state.ExposureFraction*100)
		if !m.state.DailyLossHalt {
			m.state.HaltedAt = nil
		}
	}

	if sig.Symbol == "" || sig.Price <= 0 || math.IsNaN(sig.Price) ||
		(sig.Direction != signal.DirectionLong && sig.Direction != signal.DirectionShort) {
		return reject(sig, ReasonInvalidSignal, "not a tradable direction or price", now), halts
	}
	if maxAge := m.cfg.MaxSignalAge.Std(); maxAge > 0 && sig.Age(now) > maxAge {
		return reject(sig, ReasonStaleSignal, fmt.Sprintf("age %s exceeds %s", sig.Age(now), maxAge), now), halts
	}
	if _, open := m.state.OpenNotional[sig.Symbol]; open {
		return reject(sig, ReasonDuplicateSymbol, "position already open", now), halts
	}
	if m.state.OpenPositions >= m.cfg.MaxOpenPositions {
		return reject(sig, ReasonMaxPositions, fmt.Sprintf("%d open", m.state.OpenPositions), now), halts
	}
	if sig.Confidence < m.cfg.MinConfidence {
		return reject(sig, ReasonInsufficientConf, fmt.Sprintf("%.2f below %.2f", sig.Confidence, m.cfg.MinConfidence), now), halts
	}
	if sig.Volume < m.cfg.MinVolume {
		return reject(sig, ReasonVolumeBelowMinimum, fmt.Sprintf("%.0f below %.0f", sig.Volume, m.cfg.MinVolume), now), halts
	}

	d := Decision{
		Symbol:     sig.Symbol,
		Side:       sig.Direction,
		EntryPrice: sig.Price,
		Confidence: sig.Confidence,
		DecidedAt:  now,
	}
	d.StopLoss, d.TakeProfit = m.Levels(sig)
	d.RiskReward = RiskReward(sig.Direction, sig.Price, d.StopLoss, d.TakeProfit)
	if d.RiskReward < m.cfg.MinRiskReward-epsilon {
		return reject(sig, ReasonRiskRewardBelowMin, fmt.Sprintf("%.2f below %.2f", d.RiskReward, m.cfg.MinRiskReward), now), halts
	}

	notional := m.targetNotional(sig.Confidence, value)
	qty := m.floorToLot(notional, sig.Price)
	if qty <= 0 {
		return reject(sig, ReasonPositionTooSmall, fmt.Sprintf("notional %.2f buys less than one lot", notional), now), halts
	}

	headroom := m.cfg.MaxExposure*value - m.state.Exposure
	if qty*sig.Price > headroom+epsilon {
		qty = m.floorToLot(headroom, sig.Price)
		if qty <= 0 {
			return reject(sig, ReasonExposureLimit, fmt.Sprintf("headroom %.2f buys less than one lot", math.Max(headroom, 0)), now), halts
		}
	}

	d.Approved = true
	d.Quantity = qty
	d.Notional, _ = decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(sig.Price)).Float64()
	return d, halts
}

// Levels computes side-aware stop-loss and take-profit prices. A support or
// resistance hint closer than the configured target tightens take-profit.
func (m *Manager) Levels(sig signal.Signal) (stopLoss, takeProfit float64) {
	p := sig.Price
	switch sig.Direction {
	case signal.DirectionShort:
		stopLoss = p * (1 + m.cfg.StopLossPct)
		takeProfit = p * (1 - m.cfg.TakeProfitPct)
		if sig.Support > 0 && sig.Support < p && sig.Support > takeProfit {
			takeProfit = sig.Support
		}
	default:
		stopLoss = p * (1 - m.cfg.StopLossPct)
		takeProfit = p * (1 + m.cfg.TakeProfitPct)
		if sig.Resistance > p && sig.Resistance < takeProfit {
			takeProfit = sig.Resistance
		}
	}
	return stopLoss, takeProfit
}

// RiskReward is reward over risk at entry for the given levels; zero when risk is not positive
func RiskReward(side signal.Direction, entry, stopLoss, takeProfit float64) float64 {
	var risk, reward float64
	if side == signal.DirectionShort {
		risk, reward = stopLoss-entry, entry-takeProfit
	} else {
		risk, reward = entry-stopLoss, takeProfit-entry
	}
	if risk <= 0 {
		return 0
	}
	return reward / risk
}

// targetNotional is the smallest of the position cap, the confidence-scaled
// allocation and the remaining daily-risk budget expressed as notional.
func (m *Manager) targetNotional(confidence, value float64) float64 {
	capped := m.cfg.MaxPositionFraction * value
	scaled := confidence * m.cfg.MaxPositionFraction * value
	notional := math.Min(capped, scaled)

	if m.cfg.StopLossPct > 0 && m.state.DailyLossLimit > 0 {
		remaining := math.Max(m.state.DailyLossLimit-m.state.DailyLoss(), 0)
		notional = math.Min(notional, remaining/m.cfg.StopLossPct)
	}
	return notional
}

// floorToLot converts notional to a quantity truncated to whole lots
func (m *Manager) floorToLot(notional, price float64) float64 {
	if notional <= 0 || price <= 0 {
		return 0
	}
	lot := decimal.NewFromFloat(m.cfg.LotSize)
	if !lot.IsPositive() {
		lot = decimal.NewFromInt(1)
	}
	lots := decimal.NewFromFloat(notional).Div(decimal.NewFromFloat(price)).Div(lot).Truncate(0)
	qty, _ := lots.Mul(lot).Float64()
	return qty
}

func (m *Manager) recountLocked(value float64) {
	total := decimal.Zero
	for _, n := range m.state.OpenNotional {
		total = total.Add(decimal.NewFromFloat(n))
	}
	m.state.Exposure, _ = total.Float64()
	m.state.OpenPositions = len(m.state.OpenNotional)
	if value > 0 {
		m.state.ExposureFraction = m.state.Exposure / value
	}
}

func (m *Manager) markHaltedLocked(at time.Time) {
	if m.state.HaltedAt == nil {
		t := at
		m.state.HaltedAt = &t
	}
}

// resetIfNewDay rolls the trading day at the UTC date boundary
func (m *Manager) resetIfNewDay(now time.Time, value float64) {
	day := tradingDay(now)
	if m.state.TradingDay == "" {
		m.state.TradingDay = day
		return
	}
	if day != m.state.TradingDay {
		m.startDayLocked(now, value)
	}
}

func (m *Manager) startDayLocked(now time.Time, value float64) {
	if value <= 0 {
		value = m.state.DayStartValue
	}
	wasHalted := m.state.DailyLossHalt
	m.state.TradingDay = tradingDay(now)
	m.state.DayStartValue = value
	m.state.DailyLossLimit = m.cfg.MaxDailyLoss * value
	m.state.DailyRealizedPnL = 0
	m.state.DailyLossHalt = false
	if !m.state.ExposureHalt {
		m.state.HaltedAt = nil
	}
	if wasHalted {
		m.logger.Status("daily loss halt cleared for %s", m.state.TradingDay)
	}
}

func tradingDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
