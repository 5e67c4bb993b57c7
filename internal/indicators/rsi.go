package indicators

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientData is returned when the window is shorter than the indicator needs
var ErrInsufficientData = errors.New("insufficient data")

// RSI calculates the Relative Strength Index
type RSI struct {
	period int
}

// NewRSI creates a new RSI instance with the given period
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Calculate computes the RSI value over the last period price changes
func (r *RSI) Calculate(prices []float64) (float64, error) {
	if len(prices) < r.period+1 {
		return 0, fmt.Errorf("%w for RSI calculation: need %d, got %d", ErrInsufficientData, r.period+1, len(prices))
	}

	window := prices[len(prices)-r.period-1:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += math.Abs(change)
		}
	}

	avgGain := gains / float64(r.period)
	avgLoss := losses / float64(r.period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

// GetRequiredPeriods returns the minimum number of prices needed
func (r *RSI) GetRequiredPeriods() int {
	return r.period + 1
}
