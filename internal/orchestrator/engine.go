package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/internal/errors"
	"github.com/ducminhle1904/whale-tracker/internal/feed"
	"github.com/ducminhle1904/whale-tracker/internal/logger"
	"github.com/ducminhle1904/whale-tracker/internal/monitoring"
	"github.com/ducminhle1904/whale-tracker/internal/notifications"
	"github.com/ducminhle1904/whale-tracker/internal/portfolio"
	"github.com/ducminhle1904/whale-tracker/internal/position"
	"github.com/ducminhle1904/whale-tracker/internal/risk"
	"github.com/ducminhle1904/whale-tracker/internal/safety"
	"github.com/ducminhle1904/whale-tracker/internal/signal"
	"github.com/ducminhle1904/whale-tracker/internal/state"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

// HistorySink receives durable records of closes, alerts and decisions
type HistorySink interface {
	RecordClosedPosition(ctx context.Context, p position.Position) error
	RecordAlert(ctx context.Context, a whale.Alert) error
	RecordDecision(ctx context.Context, d risk.Decision) error
}

// Publisher is handed every dashboard snapshot
type Publisher interface {
	Publish(s Snapshot)
}

// Options are the optional collaborators of an Engine
type Options struct {
	Store     state.Store
	History   HistorySink
	Notifier  notifications.Notifier
	Metrics   *monitoring.Metrics
	Health    *monitoring.HealthChecker
	Publisher Publisher

	// Generator replaces the configured signal sources when set
	Generator *signal.Generator
	// Clock defaults to time.Now
	Clock func() time.Time
	// ReplayClock drives decisions from snapshot timestamps instead of Clock
	ReplayClock bool
	// Interval overrides the configured update interval when positive
	Interval time.Duration
	// StopWhen is checked after every cycle; Run returns once it reports true
	StopWhen func() bool
}

// Engine runs the evaluation cycle: fetch, detect, signal, approve, open,
// mark, aggregate, publish, persist.
type Engine struct {
	cfg    *config.Config
	opts   Options
	logger *logger.Logger

	feed       *feed.Guarded
	generator  *signal.Generator
	detector   *whale.Detector
	alerts     *whale.AlertLog
	risk       *risk.Manager
	tracker    *position.Tracker
	aggregator *portfolio.Aggregator
	values     *portfolio.ValueSeries

	metrics  *monitoring.Metrics
	health   *monitoring.HealthChecker
	notifier notifications.Notifier
	errStats *errors.ErrorStats
	clock    func() time.Time

	runMu           sync.Mutex
	cycle           uint64
	paused          bool
	exposureAlerted bool
	lastCycleAt     time.Time

	cmdMu   sync.Mutex
	pending []Command
	wake    chan struct{}

	flightMu sync.Mutex
	inFlight map[string]bool

	obsMu     sync.Mutex
	latest    time.Time
	snapshots map[string]types.MarketSnapshot
	faults    []string

	sigMu       sync.RWMutex
	lastSignals map[string]signal.Signal

	snapMu   sync.RWMutex
	snapshot Snapshot

	notifyWG sync.WaitGroup
}

// NewEngine wires the decision core around a snapshot feed
func NewEngine(cfg *config.Config, f feed.Feed, opts Options, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NopNotifier{}
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}
	if opts.Generator == nil {
		opts.Generator = signal.NewDefaultGenerator(cfg)
	}
	if opts.Health == nil {
		opts.Health = monitoring.NewHealthChecker(3 * cfg.Runtime.UpdateInterval.Std())
	}

	breakers := safety.NewCircuitBreakerManager(safety.CircuitBreakerConfig{
		FailureThreshold: 3,
		Timeout:          2 * cfg.Runtime.UpdateInterval.Std(),
	})

	riskManager := risk.NewManager(cfg.Risk, cfg.InitialCapital, log)
	e := &Engine{
		cfg:         cfg,
		opts:        opts,
		logger:      log.With("orchestrator"),
		feed:        feed.NewGuarded(f, cfg.Runtime.FetchTimeout.Std(), breakers, log),
		generator:   opts.Generator,
		detector:    whale.NewDetector(cfg.Whale),
		alerts:      whale.NewAlertLog(cfg.Whale.MaxAlerts, cfg.Whale.AlertRetention.Std()),
		risk:        riskManager,
		tracker:     position.NewTracker(cfg.Risk, riskManager, log),
		aggregator:  portfolio.NewAggregator(cfg.InitialCapital, cfg.Portfolio),
		values:      portfolio.NewValueSeries(cfg.Portfolio.MaxSeries),
		metrics:     opts.Metrics,
		health:      opts.Health,
		notifier:    opts.Notifier,
		errStats:    errors.NewErrorStats(50),
		clock:       opts.Clock,
		wake:        make(chan struct{}, 1),
		inFlight:    make(map[string]bool),
		snapshots:   make(map[string]types.MarketSnapshot),
		lastSignals: make(map[string]signal.Signal),
	}

	breakers.OnStateChange(func(name string, from, to safety.CircuitBreakerState) {
		e.logger.LogWarning("feed breaker", "%s %s -> %s", name, from, to)
	})
	riskManager.SetHaltHandler(func(cause risk.HaltCause, detail string) {
		e.logger.Warning("trading halted (%s): %s", cause, detail)
		e.notify(notifications.LevelError, fmt.Sprintf("Trading halted: %s\n%s", cause, detail))
	})

	e.snapshot = e.buildSnapshot(e.computePortfolio(e.clock()), CycleStats{}, e.clock())
	return e
}

// Metrics returns the collectors the engine records into
func (e *Engine) Metrics() *monitoring.Metrics { return e.metrics }

// Health returns the health checker updated after every cycle
func (e *Engine) Health() *monitoring.HealthChecker { return e.health }

// Tracker exposes the position tracker for read-only consumers
func (e *Engine) Tracker() *position.Tracker { return e.tracker }

// Run executes a cycle immediately and then on every tick until ctx ends.
// Refresh commands trigger an extra cycle without waiting for the tick.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.opts.Interval
	if interval <= 0 {
		interval = e.cfg.Runtime.UpdateInterval.Std()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Status("running %d symbols every %s", len(e.cfg.Symbols), interval)
	for {
		e.RunCycle(ctx)
		if e.opts.StopWhen != nil && e.opts.StopWhen() {
			e.logger.Status("feed exhausted after cycle %d", e.Snapshot().Cycle)
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-e.wake:
		}
	}
}

// RunCycle runs one full cycle and returns the published snapshot. Cycles
// never overlap; commands queued before the call take effect first.
func (e *Engine) RunCycle(ctx context.Context) Snapshot {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	started := e.clock()
	refresh := e.applyCommands()

	var stats CycleStats
	if !e.paused && ctx.Err() == nil {
		pool := newWorkerPool(e.cfg.Runtime.Workers, len(e.cfg.Symbols))
		stats = pool.run(ctx, e.cfg.Symbols, e.processSymbol)
	}

	at := e.cycleTime(started)
	if !e.paused {
		e.values.Append(at, e.currentValue())
	}
	ps := e.computePortfolio(at)
	e.checkExposure(ps, at)
	e.alerts.Prune(at)

	e.cycle++
	e.lastCycleAt = at
	stats.Duration = e.clock().Sub(started)

	snap := e.buildSnapshot(ps, stats, at)
	e.publish(snap)

	e.metrics.ObserveCycle(stats.Duration)
	e.health.RecordCycle(e.cycle, e.clock(), e.paused || len(e.cfg.Symbols) == 0 || stats.Evaluated > 0)
	for _, fault := range e.drainFaults() {
		e.health.RecordError(fault)
	}

	every := uint64(e.cfg.Runtime.PersistEvery)
	if refresh || (every > 0 && e.cycle%every == 0) {
		if err := e.persistLocked(ctx, at); err != nil {
			e.logger.LogError("persist", err)
		}
	}

	e.logger.Debug("cycle %d: evaluated=%d unavailable=%d signals=%d opened=%d closed=%d in %s",
		e.cycle, stats.Evaluated, stats.Unavailable, stats.Signals, stats.Opened, stats.Closed, stats.Duration)
	return snap
}

// processSymbol evaluates one symbol; at most one evaluation per symbol is in flight
func (e *Engine) processSymbol(ctx context.Context, symbol string) (stats CycleStats) {
	if !e.acquire(symbol) {
		stats.Skipped = 1
		return stats
	}
	defer e.release(symbol)

	snap, err := e.feed.Fetch(ctx, symbol)
	if err != nil {
		stats.Unavailable = 1
		e.metrics.RecordFeedError(symbol)
		e.recordError(err, false)
		e.logger.LogWarning("fetch", "%s skipped: %v", symbol, err)
		return stats
	}
	stats.Evaluated = 1
	now := e.observe(snap)
	e.metrics.UpdatePrice(symbol, snap.Price)

	closed, err := e.tracker.Mark(symbol, position.Quote{Price: snap.Price, High: snap.High, Low: snap.Low, BarStart: snap.BarStart, At: now})
	switch {
	case err != nil && !stderrors.Is(err, position.ErrPositionNotFound):
		e.recordError(err, true)
	case closed != nil:
		e.onClosed(ctx, *closed)
		stats.Closed++
	}

	alerts := e.detector.Detect(snap)
	e.alerts.Append(alerts...)
	for _, a := range alerts {
		e.onAlert(ctx, a)
	}
	stats.Alerts = len(alerts)

	in := signal.Input{Snapshot: snap, Alerts: alerts}
	sig, ok := e.generator.Evaluate(in)
	if !ok {
		return stats
	}
	e.sigMu.Lock()
	e.lastSignals[symbol] = sig
	e.sigMu.Unlock()
	e.metrics.UpdateSignalConfidence(symbol, sig.Confidence)

	if reversed, err := e.tracker.EvaluateReversal(sig); err != nil {
		e.recordError(err, true)
	} else if reversed != nil {
		e.onClosed(ctx, *reversed)
		stats.Closed++
	}

	if _, open := e.tracker.Get(symbol); open {
		return stats
	}
	tradable, ok := e.generator.Generate(in)
	if !ok {
		return stats
	}
	stats.Signals = 1

	d := e.risk.Approve(tradable, e.currentValue(), now)
	e.metrics.RecordDecision(d.Approved, string(d.Reason))
	e.record(ctx, "decision", func(ctx context.Context, h HistorySink) error { return h.RecordDecision(ctx, d) })
	if !d.Approved {
		stats.Rejected = 1
		e.logger.Info("%s %s rejected: %s %s", symbol, tradable.Direction, d.Reason, d.Detail)
		return stats
	}
	stats.Approved = 1

	p, err := e.tracker.Open(d, tradable)
	if err != nil {
		e.risk.Release(symbol)
		e.recordError(err, true)
		return stats
	}
	stats.Opened = 1
	e.metrics.RecordOpen(p.Symbol, string(p.Side))
	return stats
}

// ClosePosition closes the symbol's position at the last observed price.
// It waits for a running cycle to finish.
func (e *Engine) ClosePosition(ctx context.Context, symbol string) (position.Position, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	p, ok := e.tracker.Get(symbol)
	if !ok {
		return position.Position{}, position.ErrPositionNotFound
	}
	price := p.LastPrice
	e.obsMu.Lock()
	if snap, ok := e.snapshots[symbol]; ok && snap.IsAvailable() {
		price = snap.Price
	}
	e.obsMu.Unlock()

	closed, err := e.tracker.Close(symbol, position.ReasonManual, price, e.cycleTime(e.clock()))
	if err != nil {
		return position.Position{}, err
	}
	e.onClosed(ctx, closed)

	at := e.cycleTime(e.clock())
	e.publish(e.buildSnapshot(e.computePortfolio(at), e.Snapshot().LastCycle, at))
	return closed, nil
}

// Shutdown waits for pending notifications and persists the final state
func (e *Engine) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.notifyWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warning("shutdown: pending notifications abandoned")
	}
	return e.Persist(ctx)
}

func (e *Engine) onClosed(ctx context.Context, p position.Position) {
	e.metrics.RecordClose(string(p.CloseReason), p.RealizedPnL)
	e.record(ctx, "closed position", func(ctx context.Context, h HistorySink) error { return h.RecordClosedPosition(ctx, p) })
	if p.CloseReason == position.ReasonStopLoss {
		e.notify(notifications.LevelWarning, fmt.Sprintf("Stop loss hit on %s %s\nP&L: %.2f", p.Side, p.Symbol, p.RealizedPnL))
	}
}

func (e *Engine) onAlert(ctx context.Context, a whale.Alert) {
	e.metrics.RecordAlert(string(a.Kind), string(a.Severity))
	e.record(ctx, "alert", func(ctx context.Context, h HistorySink) error { return h.RecordAlert(ctx, a) })
	if a.Severity == whale.SeverityHigh {
		e.notify(notifications.LevelWarning, fmt.Sprintf("%s on %s\n%s", a.Kind, a.Symbol, a.Message))
	}
}

// checkExposure raises one portfolio risk alert per excursion above the critical level
func (e *Engine) checkExposure(ps portfolio.PortfolioState, at time.Time) {
	fraction := ps.ExposurePct / 100
	if fraction <= portfolio.CriticalExposure {
		e.exposureAlerted = false
		return
	}
	if e.exposureAlerted {
		return
	}
	e.exposureAlerted = true

	a := whale.Alert{
		Kind:      whale.KindPortfolioRisk,
		Severity:  whale.SeverityHigh,
		Message:   fmt.Sprintf("portfolio exposure %.1f%% above %.0f%%", ps.ExposurePct, portfolio.CriticalExposure*100),
		Magnitude: fraction,
		Timestamp: at,
	}
	e.alerts.Append(a)
	e.metrics.RecordAlert(string(a.Kind), string(a.Severity))
	e.notify(notifications.LevelError, a.Message)
}

func (e *Engine) computePortfolio(at time.Time) portfolio.PortfolioState {
	open, closed := e.tracker.OpenPositions(), e.tracker.History()
	ps := e.aggregator.Compute(open, closed, e.values, at)

	rs := e.risk.State()
	e.metrics.UpdatePortfolio(ps.TotalValue, rs.ExposureFraction, len(open))
	e.metrics.UpdateHalts(rs.DailyLossHalt, rs.ExposureHalt)
	return ps
}

func (e *Engine) currentValue() float64 {
	return e.aggregator.Value(e.tracker.OpenPositions(), e.tracker.History())
}

// record writes to the history sink; failures are logged and never block a decision
func (e *Engine) record(ctx context.Context, what string, fn func(context.Context, HistorySink) error) {
	if e.opts.History == nil {
		return
	}
	if err := fn(ctx, e.opts.History); err != nil {
		e.recordError(err, false)
		e.logger.LogWarning("history", "%s not recorded: %v", what, err)
	}
}

// recordError counts err by category; faults are also reported to health
func (e *Engine) recordError(err error, fault bool) {
	be, ok := errors.As(err)
	if !ok {
		be = errors.CategorizeError(err, "orchestrator", "cycle")
	}
	e.metrics.RecordError(string(be.Category))
	e.errStats.RecordError(be)
	if !fault {
		return
	}
	e.logger.LogError("invariant fault", err)
	e.obsMu.Lock()
	e.faults = append(e.faults, err.Error())
	e.obsMu.Unlock()
}

func (e *Engine) drainFaults() []string {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	faults := e.faults
	e.faults = nil
	return faults
}

func (e *Engine) notify(level, message string) {
	e.notifyWG.Add(1)
	go func() {
		defer e.notifyWG.Done()
		if err := e.notifier.SendAlert(level, message); err != nil {
			e.logger.LogWarning("notify", "%v", err)
		}
	}()
}

func (e *Engine) acquire(symbol string) bool {
	e.flightMu.Lock()
	defer e.flightMu.Unlock()
	if e.inFlight[symbol] {
		return false
	}
	e.inFlight[symbol] = true
	return true
}

func (e *Engine) release(symbol string) {
	e.flightMu.Lock()
	delete(e.inFlight, symbol)
	e.flightMu.Unlock()
}

// observe stores the snapshot without its history and returns the decision time
func (e *Engine) observe(snap types.MarketSnapshot) time.Time {
	kept := snap
	kept.History = nil

	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.snapshots[snap.Symbol] = kept
	if !e.opts.ReplayClock {
		return e.clock()
	}
	if snap.Timestamp.After(e.latest) {
		e.latest = snap.Timestamp
	}
	return snap.Timestamp
}

// cycleTime is the wall clock, or the newest snapshot time on a replay clock
func (e *Engine) cycleTime(wall time.Time) time.Time {
	if !e.opts.ReplayClock {
		return wall
	}
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	if !e.latest.IsZero() {
		return e.latest
	}
	if !e.lastCycleAt.IsZero() {
		return e.lastCycleAt
	}
	return wall
}
