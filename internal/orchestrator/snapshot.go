package orchestrator

import (
	"sort"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/portfolio"
	"github.com/ducminhle1904/whale-tracker/internal/position"
	"github.com/ducminhle1904/whale-tracker/internal/risk"
	"github.com/ducminhle1904/whale-tracker/internal/safety"
	"github.com/ducminhle1904/whale-tracker/internal/signal"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
)

const (
	recentClosedLimit = 20
	recentAlertsLimit = 50
)

// CycleStats counts what happened to each symbol in one cycle
type CycleStats struct {
	Evaluated   int           `json:"evaluated"`
	Unavailable int           `json:"unavailable"`
	Skipped     int           `json:"skipped"`
	Signals     int           `json:"signals"`
	Approved    int           `json:"approved"`
	Rejected    int           `json:"rejected"`
	Opened      int           `json:"opened"`
	Closed      int           `json:"closed"`
	Alerts      int           `json:"alerts"`
	Duration    time.Duration `json:"duration_ns"`
}

func (s *CycleStats) add(o CycleStats) {
	s.Evaluated += o.Evaluated
	s.Unavailable += o.Unavailable
	s.Skipped += o.Skipped
	s.Signals += o.Signals
	s.Approved += o.Approved
	s.Rejected += o.Rejected
	s.Opened += o.Opened
	s.Closed += o.Closed
	s.Alerts += o.Alerts
}

// Snapshot is the dashboard document published after every cycle
type Snapshot struct {
	Cycle         uint64                       `json:"cycle"`
	RunState      RunState                     `json:"run_state"`
	GeneratedAt   time.Time                    `json:"generated_at"`
	Symbols       []string                     `json:"symbols"`
	Portfolio     portfolio.PortfolioState     `json:"portfolio"`
	Risk          risk.RiskState               `json:"risk"`
	RiskStatus    string                       `json:"risk_status"`
	OpenPositions []position.Position          `json:"open_positions"`
	RecentClosed  []position.Position          `json:"recent_closed"`
	Alerts        []whale.Alert                `json:"alerts"`
	Signals       []signal.Signal              `json:"signals"`
	FeedBreakers  []safety.CircuitBreakerStats `json:"feed_breakers,omitempty"`
	RecentErrors  []string                     `json:"recent_errors,omitempty"`
	LastCycle     CycleStats                   `json:"last_cycle"`
}

// Snapshot returns the last published document
func (e *Engine) Snapshot() Snapshot {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snapshot
}

func (e *Engine) buildSnapshot(ps portfolio.PortfolioState, stats CycleStats, at time.Time) Snapshot {
	riskState := e.risk.State()

	history := e.tracker.History()
	recent := history
	if len(recent) > recentClosedLimit {
		recent = recent[len(recent)-recentClosedLimit:]
	}
	recent = append([]position.Position(nil), recent...)
	// newest first
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	e.sigMu.RLock()
	signals := make([]signal.Signal, 0, len(e.lastSignals))
	for _, s := range e.lastSignals {
		signals = append(signals, s)
	}
	e.sigMu.RUnlock()
	sort.Slice(signals, func(i, j int) bool { return signals[i].Symbol < signals[j].Symbol })

	return Snapshot{
		Cycle:         e.cycle,
		RunState:      e.runState(),
		GeneratedAt:   at,
		Symbols:       append([]string(nil), e.cfg.Symbols...),
		Portfolio:     ps,
		Risk:          riskState,
		RiskStatus:    riskState.Status(),
		OpenPositions: e.tracker.OpenPositions(),
		RecentClosed:  recent,
		Alerts:        e.alerts.Recent(recentAlertsLimit),
		Signals:       signals,
		FeedBreakers:  e.feed.Breakers().GetStats(),
		RecentErrors:  e.errStats.Recent(),
		LastCycle:     stats,
	}
}

func (e *Engine) publish(s Snapshot) {
	e.snapMu.Lock()
	e.snapshot = s
	e.snapMu.Unlock()

	if e.opts.Publisher != nil {
		e.opts.Publisher.Publish(s)
	}
}
