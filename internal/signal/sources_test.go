package signal

import (
	"testing"

	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTechnicalSource_AbstainsOnShortHistory(t *testing.T) {
	src := NewTechnicalSource(config.Default().Signal)
	_, ok := src.Vote(Input{Snapshot: snapshot(series(10, func(i int) float64 { return 100 + float64(i) }))})
	assert.False(t, ok)
}

func TestTechnicalSource_OversoldDecline(t *testing.T) {
	src := NewTechnicalSource(config.Default().Signal)
	closes := series(60, func(i int) float64 { return 200 - float64(i) })

	v, ok := src.Vote(Input{Snapshot: snapshot(closes)})
	require.True(t, ok)
	assert.Equal(t, 4.0, v.MaxPoints)
	assert.Equal(t, 0.0, v.Indicators["rsi"])
	assert.Contains(t, v.Reasons, "RSI oversold (0.0)")
	assert.Contains(t, v.Reasons, "MA trend bearish")
	assert.InDelta(t, 141.0, v.Support, 1e-9)
	assert.InDelta(t, 160.0, v.Resistance, 1e-9)
}

func TestWhaleSource(t *testing.T) {
	src := NewWhaleSource(0.3)
	snap := snapshot([]float64{100, 101})

	_, ok := src.Vote(Input{Snapshot: snap})
	assert.False(t, ok)

	v, ok := src.Vote(Input{Snapshot: snap, Alerts: []whale.Alert{
		{Symbol: "AAPL", Kind: whale.KindWhalePresence, Severity: whale.SeverityHigh, Direction: 1},
		{Symbol: "AAPL", Kind: whale.KindVolumeSpike, Severity: whale.SeverityMedium, Direction: 1},
		{Symbol: "MSFT", Kind: whale.KindInstitutionalFiling, Severity: whale.SeverityHigh, Direction: -1},
	}})
	require.True(t, ok)
	assert.Equal(t, 3.0, v.Points, "capped at the source maximum")

	v, ok = src.Vote(Input{Snapshot: snap, Alerts: []whale.Alert{
		{Symbol: "AAPL", Kind: whale.KindInstitutionalFiling, Severity: whale.SeverityHigh, Direction: -1, Message: "sold"},
	}})
	require.True(t, ok)
	assert.Equal(t, -2.0, v.Points)
}

func TestSentimentSource(t *testing.T) {
	src := NewSentimentSource(0.2, 0.3)
	snap := snapshot([]float64{100, 101})

	_, ok := src.Vote(Input{Snapshot: snap})
	assert.False(t, ok)

	for _, tt := range []struct {
		score    float64
		expected float64
	}{{0.5, 2}, {-0.5, -2}, {0.1, 0}} {
		score := tt.score
		snap.Sentiment = &score
		v, ok := src.Vote(Input{Snapshot: snap})
		require.True(t, ok)
		assert.Equal(t, tt.expected, v.Points)
		assert.Equal(t, 2.0, v.MaxPoints)
	}
}

func TestVolatilitySource(t *testing.T) {
	src := NewVolatilitySource(0.1, 20)

	calm, ok := src.Vote(Input{Snapshot: snapshot(series(30, func(int) float64 { return 100 }))})
	require.True(t, ok)
	assert.Equal(t, 1.0, calm.Points)
	assert.Equal(t, 1.0, calm.Indicators["risk_score"])

	wild, ok := src.Vote(Input{Snapshot: snapshot(series(30, func(i int) float64 {
		if i%2 == 0 {
			return 100
		}
		return 115
	}))})
	require.True(t, ok)
	assert.Equal(t, -1.0, wild.Points)

	_, ok = src.Vote(Input{Snapshot: snapshot(series(10, func(int) float64 { return 100 }))})
	assert.False(t, ok)
}

func TestRiskScore(t *testing.T) {
	assert.Equal(t, 1, RiskScore(nil))
	assert.Equal(t, 10, RiskScore([]float64{0.2, -0.2, 0.2, -0.2}))
}
