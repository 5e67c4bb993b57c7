package indicators

import "fmt"

// MACD computes the moving average convergence divergence
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// MACDResult holds the latest MACD readings
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// NewMACD creates a new MACD instance with specified fast, slow, and signal periods
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

// Calculate computes the MACD line, its EMA signal line and the histogram
func (m *MACD) Calculate(prices []float64) (MACDResult, error) {
	if len(prices) < m.GetRequiredPeriods() {
		return MACDResult{}, fmt.Errorf("%w for MACD calculation: need %d, got %d",
			ErrInsufficientData, m.GetRequiredPeriods(), len(prices))
	}

	fast, err := NewEMA(m.fastPeriod).Series(prices)
	if err != nil {
		return MACDResult{}, err
	}
	slow, err := NewEMA(m.slowPeriod).Series(prices)
	if err != nil {
		return MACDResult{}, err
	}

	// align the fast series to the slow one
	offset := len(fast) - len(slow)
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}

	signal, err := NewEMA(m.signalPeriod).Calculate(line)
	if err != nil {
		return MACDResult{}, err
	}

	last := line[len(line)-1]
	return MACDResult{MACD: last, Signal: signal, Histogram: last - signal}, nil
}

// GetRequiredPeriods returns the minimum number of prices needed
func (m *MACD) GetRequiredPeriods() int {
	return m.slowPeriod + m.signalPeriod - 1
}
