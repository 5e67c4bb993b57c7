package position

import (
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/internal/errors"
	"github.com/ducminhle1904/whale-tracker/internal/logger"
	"github.com/ducminhle1904/whale-tracker/internal/risk"
	"github.com/ducminhle1904/whale-tracker/internal/signal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPositionExists   = stderrors.New("position already open for symbol")
	ErrPositionNotFound = stderrors.New("no open position for symbol")
	ErrNotApproved      = stderrors.New("decision is not an approval")
)

// CloseListener is told about every realized close
type CloseListener interface {
	RecordClose(symbol string, realizedPnL float64, closedAt time.Time)
}

// Quote is a price observation. High and Low are the extremes of the bar
// that opened at BarStart; zero means only Price was observed. A zero
// BarStart means the extremes are already limited to the time since the
// previous mark.
type Quote struct {
	Price    float64
	High     float64
	Low      float64
	BarStart time.Time
	At       time.Time
}

// since drops the extremes when their bar opened before from, since they may
// include prices printed while the position was not marked
func (q Quote) since(from time.Time) Quote {
	if !q.BarStart.IsZero() && q.BarStart.Before(from) {
		q.High, q.Low = 0, 0
	}
	return q
}

func (q Quote) bounds() (low, high float64) {
	low, high = q.Price, q.Price
	if q.Low > 0 && q.Low < low {
		low = q.Low
	}
	if q.High > high {
		high = q.High
	}
	return low, high
}

// Tracker owns the open-position set keyed by symbol and the closed history.
// All mutations are serialized by one mutex.
type Tracker struct {
	mu         sync.Mutex
	open       map[string]*Position
	history    []Position
	listener   CloseListener
	maxHolding time.Duration
	reversal   float64
	logger     *logger.Logger
	newID      func() string
}

// NewTracker creates a tracker that reports closes to listener (may be nil)
func NewTracker(cfg config.RiskConfig, listener CloseListener, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{
		open:       make(map[string]*Position),
		listener:   listener,
		maxHolding: cfg.MaxHoldingTime.Std(),
		reversal:   cfg.ReversalConfidence,
		logger:     log.With("positions"),
		newID:      func() string { return uuid.NewString() },
	}
}

// Open creates a position from an approved decision. A second open for the
// same symbol is an invariant fault and leaves the tracker untouched.
func (t *Tracker) Open(d risk.Decision, sig signal.Signal) (Position, error) {
	side, ok := SideOf(d.Side)
	if !d.Approved || !ok || d.Quantity <= 0 || d.EntryPrice <= 0 {
		return Position{}, errors.WrapError(ErrNotApproved, errors.ErrorCategoryValidation, "positions", "open").
			WithContext("symbol", d.Symbol).
			WithContext("reason", string(d.Reason))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.open[d.Symbol]; ok {
		err := errors.WrapError(ErrPositionExists, errors.ErrorCategoryInvariant, "positions", "open").
			WithContext("symbol", d.Symbol).
			WithContext("existing_id", existing.ID).
			WithContext("existing_side", string(existing.Side))
		t.logger.LogError("open rejected", err)
		return Position{}, err
	}

	p := &Position{
		ID:         t.newID(),
		Symbol:     d.Symbol,
		Side:       side,
		EntryPrice: d.EntryPrice,
		Quantity:   d.Quantity,
		StopLoss:   d.StopLoss,
		TakeProfit: d.TakeProfit,
		Confidence: d.Confidence,
		OpenedAt:   d.DecidedAt,
		Status:     StatusOpen,
		LastPrice:  d.EntryPrice,
		LastMarkAt: d.DecidedAt,
		Reasons:    append([]string(nil), sig.Reasons...),
	}
	t.open[d.Symbol] = p

	t.logger.Trade("opened %s %s %.4f @ %.4f (SL %.4f, TP %.4f, conf %.2f)",
		p.Side, p.Symbol, p.Quantity, p.EntryPrice, p.StopLoss, p.TakeProfit, p.Confidence)
	return p.clone(), nil
}

// Mark updates unrealized P&L and closes the position if an exit rule fires.
// Only one exit can fire per mark; the closed position is returned.
func (t *Tracker) Mark(symbol string, q Quote) (*Position, error) {
	if q.Price <= 0 {
		return nil, errors.NewValidationError("positions", "mark", fmt.Sprintf("invalid price %.4f for %s", q.Price, symbol))
	}

	t.mu.Lock()
	p, ok := t.open[symbol]
	if !ok {
		t.mu.Unlock()
		return nil, ErrPositionNotFound
	}
	q = q.since(p.LastMarkAt)

	pnl := p.PnLAt(q.Price)
	p.LastPrice = q.Price
	p.LastMarkAt = q.At
	p.UnrealizedPnL = pnl
	if pnl > p.MaxProfit {
		p.MaxProfit = pnl
	}
	if pnl < p.MaxLoss {
		p.MaxLoss = pnl
	}

	low, high := q.bounds()
	reason, exit := p.exitFor(low, high, q.At, t.maxHolding)
	if !exit {
		t.mu.Unlock()
		return nil, nil
	}
	closed := t.closeLocked(p, reason, p.fillPrice(reason, q.Price), q.At)
	t.mu.Unlock()

	t.notify(closed)
	return &closed, nil
}

// EvaluateReversal closes an open position when a strong opposing signal arrives
func (t *Tracker) EvaluateReversal(sig signal.Signal) (*Position, error) {
	t.mu.Lock()
	p, ok := t.open[sig.Symbol]
	if !ok {
		t.mu.Unlock()
		return nil, nil
	}
	side := signal.DirectionLong
	if p.Side == SideShort {
		side = signal.DirectionShort
	}
	if !side.Opposes(sig.Direction) || sig.Confidence < t.reversal || sig.Price <= 0 {
		t.mu.Unlock()
		return nil, nil
	}

	closed := t.closeLocked(p, ReasonSignalReversal, sig.Price, sig.GeneratedAt)
	t.mu.Unlock()

	t.notify(closed)
	return &closed, nil
}

// Close transitions the symbol's open position to CLOSED at exitPrice
func (t *Tracker) Close(symbol string, reason CloseReason, exitPrice float64, at time.Time) (Position, error) {
	if exitPrice <= 0 {
		return Position{}, errors.NewValidationError("positions", "close", fmt.Sprintf("invalid exit price %.4f for %s", exitPrice, symbol))
	}

	t.mu.Lock()
	p, ok := t.open[symbol]
	if !ok {
		t.mu.Unlock()
		return Position{}, ErrPositionNotFound
	}
	closed := t.closeLocked(p, reason, exitPrice, at)
	t.mu.Unlock()

	t.notify(closed)
	return closed, nil
}

func (t *Tracker) closeLocked(p *Position, reason CloseReason, exitPrice float64, at time.Time) Position {
	realized, _ := decimal.NewFromFloat(exitPrice).
		Sub(decimal.NewFromFloat(p.EntryPrice)).
		Mul(decimal.NewFromFloat(p.Quantity)).
		Mul(decimal.NewFromFloat(p.Side.Sign())).
		Round(8).
		Float64()

	closedAt := at
	p.Status = StatusClosed
	p.CloseReason = reason
	p.ExitPrice = exitPrice
	p.ClosedAt = &closedAt
	p.LastPrice = exitPrice
	p.LastMarkAt = at
	p.RealizedPnL = realized
	p.UnrealizedPnL = 0

	closed := p.clone()
	delete(t.open, p.Symbol)
	t.history = append(t.history, closed)

	t.logger.Trade("closed %s %s @ %.4f (%s) pnl=%.2f", closed.Side, closed.Symbol, exitPrice, reason, realized)
	return closed
}

func (t *Tracker) notify(p Position) {
	if t.listener != nil {
		t.listener.RecordClose(p.Symbol, p.RealizedPnL, *p.ClosedAt)
	}
}

// Get returns a copy of the open position for symbol
func (t *Tracker) Get(symbol string) (Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.open[symbol]
	if !ok {
		return Position{}, false
	}
	return p.clone(), true
}

// Count returns the number of open positions
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// OpenPositions returns copies of the open positions sorted by symbol
func (t *Tracker) OpenPositions() []Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Position, 0, len(t.open))
	for _, p := range t.open {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// History returns copies of the closed positions in close order
func (t *Tracker) History() []Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Position, len(t.history))
	for i, p := range t.history {
		out[i] = p.clone()
	}
	return out
}

// Restore replaces the tracker contents with persisted positions
func (t *Tracker) Restore(open, history []Position) error {
	next := make(map[string]*Position, len(open))
	for _, p := range open {
		if p.Status != StatusOpen {
			return errors.NewInvariantError("positions", "restore", fmt.Sprintf("position %s for %s is not open", p.ID, p.Symbol))
		}
		if _, dup := next[p.Symbol]; dup {
			return errors.WrapError(ErrPositionExists, errors.ErrorCategoryInvariant, "positions", "restore").
				WithContext("symbol", p.Symbol)
		}
		cp := p.clone()
		next[p.Symbol] = &cp
	}
	closed := make([]Position, len(history))
	for i, p := range history {
		closed[i] = p.clone()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = next
	t.history = closed
	return nil
}
