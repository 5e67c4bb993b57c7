package indicators

import (
	"fmt"
	"math"
)

// BollingerBands represents the Bollinger Bands indicator
type BollingerBands struct {
	period         int
	stdDevMultiple float64
}

// BollingerResult holds the latest band values and where the price sits in them
type BollingerResult struct {
	Upper     float64
	Middle    float64
	Lower     float64
	PercentB  float64 // 0 at the lower band, 100 at the upper band
	Bandwidth float64 // (upper - lower) / middle
}

// NewBollingerBands creates a new BollingerBands instance with the given period and standard deviation multiplier
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{
		period:         period,
		stdDevMultiple: stdDev,
	}
}

// Calculate computes the bands over the last period prices
func (bb *BollingerBands) Calculate(prices []float64) (BollingerResult, error) {
	if bb.period <= 0 || len(prices) < bb.period {
		return BollingerResult{}, fmt.Errorf("%w for Bollinger Bands calculation: need %d, got %d",
			ErrInsufficientData, bb.period, len(prices))
	}

	recent := prices[len(prices)-bb.period:]
	middle := Mean(recent)
	stdDev := StdDev(recent)

	res := BollingerResult{
		Middle: middle,
		Upper:  middle + bb.stdDevMultiple*stdDev,
		Lower:  middle - bb.stdDevMultiple*stdDev,
	}

	current := prices[len(prices)-1]
	if res.Upper == res.Lower {
		res.PercentB = 50
	} else {
		res.PercentB = (current - res.Lower) / (res.Upper - res.Lower) * 100
	}
	if middle != 0 {
		res.Bandwidth = (res.Upper - res.Lower) / middle
	}
	return res, nil
}

// StdDev is the population standard deviation
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		variance += math.Pow(v-mean, 2)
	}
	return math.Sqrt(variance / float64(len(values)))
}

// Returns converts a price series into simple period returns
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out = append(out, (prices[i]-prices[i-1])/prices[i-1])
	}
	return out
}
