package indicators

import "fmt"

// EMA represents the Exponential Moving Average technical indicator
type EMA struct {
	period int
	alpha  float64
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

// Series returns the EMA aligned to values[period-1:], seeded with the SMA of the first period values
func (e *EMA) Series(values []float64) ([]float64, error) {
	if e.period <= 0 || len(values) < e.period {
		return nil, fmt.Errorf("%w for EMA calculation: need %d, got %d", ErrInsufficientData, e.period, len(values))
	}

	out := make([]float64, 0, len(values)-e.period+1)
	last := Mean(values[:e.period])
	out = append(out, last)
	for _, v := range values[e.period:] {
		// EMA = (Value * Alpha) + (Previous EMA * (1 - Alpha))
		last = v*e.alpha + last*(1-e.alpha)
		out = append(out, last)
	}
	return out, nil
}

// Calculate returns the latest EMA value
func (e *EMA) Calculate(values []float64) (float64, error) {
	series, err := e.Series(values)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// GetRequiredPeriods returns the minimum number of values needed
func (e *EMA) GetRequiredPeriods() int {
	return e.period
}
