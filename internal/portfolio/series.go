package portfolio

import (
	"sync"
	"time"
)

// ValuePoint is one observation of total portfolio value
type ValuePoint struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// ValueSeries is an append-only, count-bounded series of portfolio values.
// Points dropped from the window are folded into a drawdown summary first.
type ValueSeries struct {
	mu      sync.RWMutex
	points  []ValuePoint
	max     int
	trimmed DrawdownSummary
}

// NewValueSeries keeps at most max points; zero means unbounded
func NewValueSeries(max int) *ValueSeries {
	return &ValueSeries{max: max}
}

// Append records a value, dropping the oldest point when full
func (s *ValueSeries) Append(at time.Time, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append(s.points, ValuePoint{At: at, Value: value})
	s.trimLocked()
}

func (s *ValueSeries) trimLocked() {
	if s.max <= 0 || len(s.points) <= s.max {
		return
	}
	cut := len(s.points) - s.max
	for _, p := range s.points[:cut] {
		s.trimmed = s.trimmed.Extend([]float64{p.Value})
	}
	s.points = append([]ValuePoint(nil), s.points[cut:]...)
}

// Values returns the recorded values oldest first
func (s *ValueSeries) Values() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valuesLocked()
}

func (s *ValueSeries) valuesLocked() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

// Drawdown summarizes every value ever appended, including dropped points
func (s *ValueSeries) Drawdown() DrawdownSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trimmed.Extend(s.valuesLocked())
}

// Trimmed returns the summary of points no longer held in the window
func (s *ValueSeries) Trimmed() DrawdownSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trimmed
}

// Points returns a copy of the series
func (s *ValueSeries) Points() []ValuePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ValuePoint(nil), s.points...)
}

// Last returns the newest point
func (s *ValueSeries) Last() (ValuePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.points) == 0 {
		return ValuePoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// Len returns the number of points
func (s *ValueSeries) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Restore replaces the series with persisted points and the summary of
// points trimmed before they were saved
func (s *ValueSeries) Restore(points []ValuePoint, trimmed DrawdownSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append([]ValuePoint(nil), points...)
	s.trimmed = trimmed
	s.trimLocked()
}
