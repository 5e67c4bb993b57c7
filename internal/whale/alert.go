package whale

import (
	"sort"
	"sync"
	"time"
)

// AlertKind identifies what produced an alert
type AlertKind string

const (
	KindVolumeSpike         AlertKind = "volume_spike"
	KindWhalePresence       AlertKind = "whale_presence"
	KindInstitutionalFiling AlertKind = "institutional_filing"
	KindPortfolioRisk       AlertKind = "portfolio_risk"
)

// Severity is derived deterministically from the alert magnitude
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Alert is an append-only entry of the alert log
type Alert struct {
	Symbol    string    `json:"symbol"`
	Kind      AlertKind `json:"kind"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Magnitude float64   `json:"magnitude"`
	Direction int       `json:"direction"` // +1 bullish, -1 bearish, 0 neutral
	Timestamp time.Time `json:"timestamp"`
}

// AlertLog keeps the most recent alerts, bounded by count and age
type AlertLog struct {
	mu        sync.RWMutex
	alerts    []Alert
	maxAlerts int
	retention time.Duration
}

// NewAlertLog creates a bounded alert log
func NewAlertLog(maxAlerts int, retention time.Duration) *AlertLog {
	return &AlertLog{
		alerts:    make([]Alert, 0, maxAlerts),
		maxAlerts: maxAlerts,
		retention: retention,
	}
}

// Append adds alerts and drops the oldest entries beyond the count bound
func (l *AlertLog) Append(alerts ...Alert) {
	if len(alerts) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.alerts = append(l.alerts, alerts...)
	if over := len(l.alerts) - l.maxAlerts; over > 0 {
		l.alerts = append([]Alert(nil), l.alerts[over:]...)
	}
}

// Prune drops alerts older than the retention window and returns how many were removed
func (l *AlertLog) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.retention)
	kept := l.alerts[:0]
	for _, a := range l.alerts {
		if !a.Timestamp.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	removed := len(l.alerts) - len(kept)
	l.alerts = kept
	return removed
}

// Recent returns up to n alerts, newest first; n <= 0 returns all
func (l *AlertLog) Recent(n int) []Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.alerts) {
		n = len(l.alerts)
	}
	out := make([]Alert, 0, n)
	for i := len(l.alerts) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.alerts[i])
	}
	return out
}

// ForSymbol returns the alerts of one symbol at or after since, oldest first
func (l *AlertLog) ForSymbol(symbol string, since time.Time) []Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Alert
	for _, a := range l.alerts {
		if a.Symbol == symbol && !a.Timestamp.Before(since) {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of retained alerts
func (l *AlertLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.alerts)
}

// Restore replaces the log content with persisted alerts
func (l *AlertLog) Restore(alerts []Alert) {
	sorted := append([]Alert(nil), alerts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	l.mu.Lock()
	l.alerts = l.alerts[:0]
	l.mu.Unlock()
	l.Append(sorted...)
}
