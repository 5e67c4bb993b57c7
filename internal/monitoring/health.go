package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const maxHealthErrors = 10

type HealthChecker struct {
	mu            sync.RWMutex
	startTime     time.Time
	lastCycle     time.Time
	cycle         uint64
	feedConnected bool
	staleAfter    time.Duration
	errors        []string
	now           func() time.Time
}

type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	LastCycle     time.Time `json:"last_cycle"`
	Cycle         uint64    `json:"cycle"`
	FeedConnected bool      `json:"feed_connected"`
	Uptime        string    `json:"uptime"`
	Errors        []string  `json:"errors,omitempty"`
}

// NewHealthChecker reports degraded once no cycle completed within staleAfter
func NewHealthChecker(staleAfter time.Duration) *HealthChecker {
	return &HealthChecker{
		startTime:  time.Now(),
		staleAfter: staleAfter,
		errors:     make([]string, 0),
		now:        time.Now,
	}
}

// RecordCycle marks a finished cycle and whether any snapshot was fetched
func (h *HealthChecker) RecordCycle(cycle uint64, at time.Time, feedConnected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cycle = cycle
	h.lastCycle = at
	h.feedConnected = feedConnected
	h.errors = h.errors[:0]
}

// RecordError keeps the most recent errors since the last clean cycle
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > maxHealthErrors {
		h.errors = h.errors[len(h.errors)-maxHealthErrors:]
	}
}

// Status evaluates the current health
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status := "healthy"
	if !h.feedConnected || (h.staleAfter > 0 && now.Sub(h.lastCycle) > h.staleAfter) {
		status = "degraded"
	}
	if len(h.errors) > 0 {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:        status,
		Timestamp:     now,
		LastCycle:     h.lastCycle,
		Cycle:         h.cycle,
		FeedConnected: h.feedConnected,
		Uptime:        now.Sub(h.startTime).Truncate(time.Second).String(),
		Errors:        append([]string(nil), h.errors...),
	}
}

// StatusCode maps a health status onto an HTTP status
func (s HealthStatus) StatusCode() int {
	switch s.Status {
	case "degraded":
		return http.StatusServiceUnavailable
	case "unhealthy":
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(health.StatusCode())
	json.NewEncoder(w).Encode(health)
}
