package risk

import (
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/signal"
)

// Authority defines the capital allocation contract the orchestrator drives
type Authority interface {
	// Evaluate decides on a signal without reserving capital
	Evaluate(sig signal.Signal, portfolioValue float64, now time.Time) Decision

	// Approve decides and, on approval, reserves exposure and the open slot atomically
	Approve(sig signal.Signal, portfolioValue float64, now time.Time) Decision

	// Release returns a reservation whose position could not be opened
	Release(symbol string)

	// RecordClose accounts a realized close against the daily-loss budget
	RecordClose(symbol string, realizedPnL float64, closedAt time.Time)

	// State returns a copy of the current risk accounting
	State() RiskState
}
