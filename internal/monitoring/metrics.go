package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "whale_tracker"

// Metrics holds the Prometheus collectors for one tracker process
type Metrics struct {
	registry *prometheus.Registry

	decisionsTotal  *prometheus.CounterVec
	positionsOpened *prometheus.CounterVec
	positionsClosed *prometheus.CounterVec
	realizedPnL     prometheus.Histogram
	alertsTotal     *prometheus.CounterVec
	feedErrors      *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec

	currentPrice     *prometheus.GaugeVec
	signalConfidence *prometheus.GaugeVec
	portfolioValue   prometheus.Gauge
	exposureFraction prometheus.Gauge
	openPositions    prometheus.Gauge
	tradingHalted    *prometheus.GaugeVec
	paused           prometheus.Gauge

	cycleDuration prometheus.Histogram
	cyclesTotal   prometheus.Counter
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "risk_decisions_total",
				Help:      "Risk decisions by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),
		positionsOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "positions_opened_total",
				Help:      "Positions opened",
			},
			[]string{"symbol", "side"},
		),
		positionsClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "positions_closed_total",
				Help:      "Positions closed by close reason",
			},
			[]string{"reason"},
		),
		realizedPnL: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "realized_pnl",
				Help:      "Distribution of realized P&L per closed position",
				Buckets:   []float64{-5000, -1000, -500, -100, 0, 100, 500, 1000, 5000},
			},
		),
		alertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "whale_alerts_total",
				Help:      "Whale alerts raised",
			},
			[]string{"kind", "severity"},
		),
		feedErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_errors_total",
				Help:      "Snapshot fetch failures",
			},
			[]string{"symbol"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Errors by category",
			},
			[]string{"category"},
		),
		currentPrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_price",
				Help:      "Last observed price",
			},
			[]string{"symbol"},
		),
		signalConfidence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "signal_confidence",
				Help:      "Confidence of the last signal per symbol",
			},
			[]string{"symbol"},
		),
		portfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_value",
			Help:      "Cash plus market value of open positions",
		}),
		exposureFraction: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exposure_fraction",
			Help:      "Open notional as a fraction of portfolio value",
		}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_positions",
			Help:      "Currently open positions",
		}),
		tradingHalted: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "trading_halted",
				Help:      "1 while the given halt cause is active",
			},
			[]string{"cause"},
		),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "paused",
			Help:      "1 while cycles are paused",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one update cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed update cycles",
		}),
	}

	m.registry.MustRegister(
		m.decisionsTotal, m.positionsOpened, m.positionsClosed, m.realizedPnL,
		m.alertsTotal, m.feedErrors, m.errorsTotal,
		m.currentPrice, m.signalConfidence, m.portfolioValue, m.exposureFraction,
		m.openPositions, m.tradingHalted, m.paused,
		m.cycleDuration, m.cyclesTotal,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the Prometheus metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordDecision counts an approval or a rejection with its reason
func (m *Metrics) RecordDecision(approved bool, reason string) {
	outcome := "rejected"
	if approved {
		outcome = "approved"
		reason = "none"
	}
	m.decisionsTotal.WithLabelValues(outcome, reason).Inc()
}

// RecordOpen counts an opened position
func (m *Metrics) RecordOpen(symbol, side string) {
	m.positionsOpened.WithLabelValues(symbol, side).Inc()
}

// RecordClose counts a closed position and observes its P&L
func (m *Metrics) RecordClose(reason string, pnl float64) {
	m.positionsClosed.WithLabelValues(reason).Inc()
	m.realizedPnL.Observe(pnl)
}

// RecordAlert counts a whale alert
func (m *Metrics) RecordAlert(kind, severity string) {
	m.alertsTotal.WithLabelValues(kind, severity).Inc()
}

// RecordFeedError counts a failed fetch
func (m *Metrics) RecordFeedError(symbol string) {
	m.feedErrors.WithLabelValues(symbol).Inc()
}

// RecordError counts an error by category
func (m *Metrics) RecordError(category string) {
	m.errorsTotal.WithLabelValues(category).Inc()
}

// UpdatePrice sets the last price of a symbol
func (m *Metrics) UpdatePrice(symbol string, price float64) {
	m.currentPrice.WithLabelValues(symbol).Set(price)
}

// UpdateSignalConfidence sets the last signal confidence of a symbol
func (m *Metrics) UpdateSignalConfidence(symbol string, confidence float64) {
	m.signalConfidence.WithLabelValues(symbol).Set(confidence)
}

// UpdatePortfolio sets the portfolio gauges
func (m *Metrics) UpdatePortfolio(value, exposureFraction float64, open int) {
	m.portfolioValue.Set(value)
	m.exposureFraction.Set(exposureFraction)
	m.openPositions.Set(float64(open))
}

// UpdateHalts sets one gauge per halt cause
func (m *Metrics) UpdateHalts(dailyLoss, exposure bool) {
	m.tradingHalted.WithLabelValues("daily_loss").Set(boolGauge(dailyLoss))
	m.tradingHalted.WithLabelValues("exposure").Set(boolGauge(exposure))
}

// UpdatePaused sets the paused gauge
func (m *Metrics) UpdatePaused(paused bool) {
	m.paused.Set(boolGauge(paused))
}

// ObserveCycle records a completed cycle
func (m *Metrics) ObserveCycle(d time.Duration) {
	m.cycleDuration.Observe(d.Seconds())
	m.cyclesTotal.Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
