package signal

import (
	"testing"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
	"github.com/ducminhle1904/whale-tracker/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

type stubSource struct {
	name      string
	weight    float64
	points    float64
	maxPoints float64
	abstain   bool
}

func (s stubSource) Name() string    { return s.name }
func (s stubSource) Weight() float64 { return s.weight }
func (s stubSource) Vote(Input) (Vote, bool) {
	if s.abstain {
		return Vote{}, false
	}
	return Vote{Source: s.name, Points: s.points, MaxPoints: s.maxPoints, Reasons: []string{s.name}}, true
}

func snapshot(closes []float64) types.MarketSnapshot {
	history := make([]types.OHLCV, 0, len(closes))
	for i, c := range closes[:len(closes)-1] {
		history = append(history, types.OHLCV{Close: c, Volume: 2000000, Timestamp: now.Add(time.Duration(i-len(closes)) * time.Hour)})
	}
	return types.MarketSnapshot{
		Symbol:    "AAPL",
		Price:     closes[len(closes)-1],
		Volume:    2000000,
		Timestamp: now,
		Status:    types.SnapshotAvailable,
		History:   history,
	}
}

func series(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func defaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{DirectionThreshold: 0.6, ConflictPenalty: 0.2, MinConfidence: 0.6}
}

func TestGenerate_AgreeingSources(t *testing.T) {
	g := NewGenerator(defaultGeneratorConfig(),
		stubSource{name: "technical", weight: 0.4, points: 4, maxPoints: 4},
		stubSource{name: "whale", weight: 0.3, points: 3, maxPoints: 3},
	)

	sig, ok := g.Generate(Input{Snapshot: snapshot([]float64{100, 101})})
	require.True(t, ok)
	assert.Equal(t, DirectionLong, sig.Direction)
	assert.InDelta(t, 1.0, sig.Confidence, 1e-9)
	assert.InDelta(t, 2.5, sig.Score, 1e-9)
	assert.Equal(t, now, sig.GeneratedAt)
	assert.Equal(t, []string{"technical", "whale"}, sig.Reasons)
}

func TestGenerate_ConflictReducesConfidenceMultiplicatively(t *testing.T) {
	g := NewGenerator(defaultGeneratorConfig(),
		stubSource{name: "technical", weight: 0.4, points: 4, maxPoints: 4},
		stubSource{name: "whale", weight: 0.3, points: -1, maxPoints: 3},
	)

	sig, ok := g.Evaluate(Input{Snapshot: snapshot([]float64{100, 101})})
	require.True(t, ok)
	assert.Equal(t, DirectionLong, sig.Direction)
	// |1.6 - 0.3| / 2.5, then one opposing source
	assert.InDelta(t, 1.3/2.5*0.8, sig.Confidence, 1e-9)

	_, ok = g.Generate(Input{Snapshot: snapshot([]float64{100, 101})})
	assert.False(t, ok, "confidence below minimum yields no signal")
}

func TestGenerate_TieResolvesToHold(t *testing.T) {
	g := NewGenerator(defaultGeneratorConfig(),
		stubSource{name: "a", weight: 1, points: 1, maxPoints: 1},
		stubSource{name: "b", weight: 1, points: -1, maxPoints: 1},
	)

	sig, ok := g.Evaluate(Input{Snapshot: snapshot([]float64{100, 101})})
	require.True(t, ok)
	assert.Equal(t, DirectionHold, sig.Direction)
	assert.Equal(t, 0.0, sig.Confidence)

	_, ok = g.Generate(Input{Snapshot: snapshot([]float64{100, 101})})
	assert.False(t, ok)
}

func TestGenerate_ShortSignal(t *testing.T) {
	g := NewGenerator(defaultGeneratorConfig(),
		stubSource{name: "technical", weight: 0.4, points: -4, maxPoints: 4},
		stubSource{name: "volatility", weight: 0.1, points: 0, maxPoints: 1},
	)

	sig, ok := g.Generate(Input{Snapshot: snapshot([]float64{100, 99})})
	require.True(t, ok)
	assert.Equal(t, DirectionShort, sig.Direction)
	assert.InDelta(t, 1.6/1.7, sig.Confidence, 1e-9)
}

func TestGenerate_NoDataMeansNoSignal(t *testing.T) {
	g := NewGenerator(defaultGeneratorConfig(),
		stubSource{name: "technical", weight: 0.4, abstain: true},
	)
	_, ok := g.Generate(Input{Snapshot: snapshot([]float64{100, 101})})
	assert.False(t, ok)

	g = NewGenerator(defaultGeneratorConfig(), stubSource{name: "technical", weight: 0.4, points: 4, maxPoints: 4})
	_, ok = g.Generate(Input{Snapshot: types.Unavailable("AAPL", now)})
	assert.False(t, ok)
}

func TestGenerate_Idempotent(t *testing.T) {
	cfg := config.Default()
	cfg.Symbols = []string{"AAPL"}
	g := NewDefaultGenerator(cfg)

	closes := series(80, func(i int) float64 {
		if i < 60 {
			return 200 - float64(i)
		}
		return 140 - float64(i-60)*2
	})
	sentiment := 0.8
	snap := snapshot(closes)
	snap.Sentiment = &sentiment
	in := Input{
		Snapshot: snap,
		Alerts: []whale.Alert{
			{Symbol: "AAPL", Kind: whale.KindWhalePresence, Severity: whale.SeverityHigh, Direction: 1, Timestamp: now},
		},
	}

	first, okFirst := g.Evaluate(in)
	second, okSecond := g.Evaluate(in)
	require.True(t, okFirst)
	assert.Equal(t, okFirst, okSecond)
	assert.Equal(t, first, second)

	genFirst, okGenFirst := g.Generate(in)
	genSecond, okGenSecond := g.Generate(in)
	assert.Equal(t, okGenFirst, okGenSecond)
	assert.Equal(t, genFirst, genSecond)
}
