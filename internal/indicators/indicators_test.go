package indicators

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func falling(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 200 - float64(i)
	}
	return out
}

func flat(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100
	}
	return out
}

func TestRSI_InsufficientData(t *testing.T) {
	_, err := NewRSI(14).Calculate(rising(14))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.Contains(t, err.Error(), "insufficient data")
}

func TestRSI_Extremes(t *testing.T) {
	rsi := NewRSI(14)

	up, err := rsi.Calculate(rising(20))
	require.NoError(t, err)
	assert.Equal(t, 100.0, up)

	down, err := rsi.Calculate(falling(20))
	require.NoError(t, err)
	assert.Equal(t, 0.0, down)

	neutral, err := rsi.Calculate(flat(20))
	require.NoError(t, err)
	assert.Equal(t, 50.0, neutral)

	assert.Equal(t, 15, rsi.GetRequiredPeriods())
}

func TestRSI_Mixed(t *testing.T) {
	prices := []float64{100, 102, 101, 103, 102, 104}
	value, err := NewRSI(5).Calculate(prices)
	require.NoError(t, err)
	// gains 2+2+2 = 6, losses 1+1 = 2
	assert.InDelta(t, 100-100/(1+3.0), value, 1e-9)
}

func TestSMA_Calculate(t *testing.T) {
	sma := NewSMA(5)

	_, err := sma.Calculate(rising(4))
	assert.Error(t, err)

	value, err := sma.Calculate(rising(10))
	require.NoError(t, err)
	// last five: 105..109
	assert.InDelta(t, 107.0, value, 1e-9)
}

func TestEMA_SeriesSeededWithSMA(t *testing.T) {
	ema := NewEMA(3)
	series, err := ema.Series([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.InDelta(t, 2.0, series[0], 1e-9)
	assert.InDelta(t, 4*0.5+2*0.5, series[1], 1e-9)
}

func TestMACD_Calculate(t *testing.T) {
	macd := NewMACD(12, 26, 9)

	_, err := macd.Calculate(rising(30))
	assert.Error(t, err)

	up, err := macd.Calculate(rising(60))
	require.NoError(t, err)
	assert.Greater(t, up.MACD, 0.0)

	down, err := macd.Calculate(falling(60))
	require.NoError(t, err)
	assert.Less(t, down.MACD, 0.0)

	still, err := macd.Calculate(flat(60))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, still.Histogram, 1e-9)
}

func TestBollingerBands_Calculate(t *testing.T) {
	bb := NewBollingerBands(5, 2.0)

	_, err := bb.Calculate(rising(3))
	assert.Error(t, err)

	res, err := bb.Calculate([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)
	recent := []float64{4, 5, 5, 7, 9}
	assert.InDelta(t, Mean(recent), res.Middle, 1e-9)
	assert.InDelta(t, res.Middle+2*StdDev(recent), res.Upper, 1e-9)
	assert.Greater(t, res.PercentB, 50.0)

	flatRes, err := bb.Calculate(flat(10))
	require.NoError(t, err)
	assert.Equal(t, 50.0, flatRes.PercentB)
	assert.Equal(t, 0.0, flatRes.Bandwidth)
}

func TestStdDevAndReturns(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)

	r := Returns([]float64{100, 110, 99})
	require.Len(t, r, 2)
	assert.InDelta(t, 0.1, r[0], 1e-9)
	assert.InDelta(t, -0.1, r[1], 1e-9)
	assert.Nil(t, Returns([]float64{1}))
	assert.False(t, math.IsNaN(Mean(nil)))
}
