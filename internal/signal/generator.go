package signal

import (
	"math"

	"github.com/ducminhle1904/whale-tracker/internal/config"
)

// GeneratorConfig holds the combination policy
type GeneratorConfig struct {
	DirectionThreshold float64 // weighted score needed for LONG or SHORT
	ConflictPenalty    float64 // confidence multiplier loss per opposing source
	MinConfidence      float64
}

// Generator combines source votes into at most one signal per input
type Generator struct {
	cfg     GeneratorConfig
	sources []Source
}

// NewGenerator creates a generator over explicit sources
func NewGenerator(cfg GeneratorConfig, sources ...Source) *Generator {
	return &Generator{cfg: cfg, sources: sources}
}

// NewDefaultGenerator wires the technical, whale, sentiment and volatility sources from configuration
func NewDefaultGenerator(cfg *config.Config) *Generator {
	s := cfg.Signal
	return NewGenerator(
		GeneratorConfig{
			DirectionThreshold: s.DirectionThreshold,
			ConflictPenalty:    s.ConflictPenalty,
			MinConfidence:      cfg.Risk.MinConfidence,
		},
		NewTechnicalSource(s),
		NewWhaleSource(s.Weights.Whale),
		NewSentimentSource(s.Weights.Sentiment, s.SentimentThreshold),
		NewVolatilitySource(s.Weights.Volatility, s.VolatilityWindow),
	)
}

// Evaluate scores the input and returns the candidate signal, HOLD included, without the confidence gate
func (g *Generator) Evaluate(in Input) (Signal, bool) {
	snap := in.Snapshot
	if !snap.IsAvailable() {
		return Signal{}, false
	}

	var votes []Vote
	var weights []float64
	for _, src := range g.sources {
		if src.Weight() <= 0 {
			continue
		}
		if v, ok := src.Vote(in); ok {
			votes = append(votes, v)
			weights = append(weights, src.Weight())
		}
	}
	if len(votes) == 0 {
		return Signal{}, false
	}

	score, maxScore := 0.0, 0.0
	for i, v := range votes {
		score += v.Points * weights[i]
		maxScore += v.MaxPoints * weights[i]
	}
	if maxScore <= 0 {
		return Signal{}, false
	}

	sig := Signal{
		Symbol:      snap.Symbol,
		Direction:   DirectionHold,
		Score:       score,
		Confidence:  math.Abs(score) / maxScore,
		Price:       snap.Price,
		Volume:      snap.Volume,
		GeneratedAt: snap.Timestamp,
		Indicators:  map[string]float64{},
	}

	switch {
	case score > g.cfg.DirectionThreshold:
		sig.Direction = DirectionLong
	case score < -g.cfg.DirectionThreshold:
		sig.Direction = DirectionShort
	}

	net := math.Copysign(1, score)
	for _, v := range votes {
		if score != 0 && v.Points*net < 0 {
			sig.Confidence *= 1 - g.cfg.ConflictPenalty
		}
		sig.Reasons = append(sig.Reasons, v.Reasons...)
		for k, val := range v.Indicators {
			sig.Indicators[k] = val
		}
		if v.Support > 0 {
			sig.Support = v.Support
		}
		if v.Resistance > 0 {
			sig.Resistance = v.Resistance
		}
	}
	return sig, true
}

// Generate returns a tradable signal, or false for HOLD, low confidence or missing data
func (g *Generator) Generate(in Input) (Signal, bool) {
	sig, ok := g.Evaluate(in)
	if !ok || sig.Direction == DirectionHold || sig.Confidence < g.cfg.MinConfidence {
		return Signal{}, false
	}
	return sig, true
}
