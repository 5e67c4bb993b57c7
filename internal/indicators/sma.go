package indicators

import "fmt"

// SMA represents the Simple Moving Average technical indicator
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate returns the mean of the last period values
func (s *SMA) Calculate(values []float64) (float64, error) {
	if s.period <= 0 || len(values) < s.period {
		return 0, fmt.Errorf("%w for SMA calculation: need %d, got %d", ErrInsufficientData, s.period, len(values))
	}
	return Mean(values[len(values)-s.period:]), nil
}

// GetRequiredPeriods returns the minimum number of values needed
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}

// Mean is the arithmetic mean, zero for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
