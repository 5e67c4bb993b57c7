package signal

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/internal/indicators"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
)

// TechnicalSource scores RSI extremes, MACD trend and the moving-average trend
type TechnicalSource struct {
	cfg    config.SignalConfig
	weight float64
	rsi    *indicators.RSI
	macd   *indicators.MACD
	short  *indicators.SMA
	long   *indicators.SMA
	bands  *indicators.BollingerBands
}

// NewTechnicalSource builds the technical source from the indicator settings
func NewTechnicalSource(cfg config.SignalConfig) *TechnicalSource {
	return &TechnicalSource{
		cfg:    cfg,
		weight: cfg.Weights.Technical,
		rsi:    indicators.NewRSI(cfg.RSI.Period),
		macd:   indicators.NewMACD(cfg.MACD.FastPeriod, cfg.MACD.SlowPeriod, cfg.MACD.SignalPeriod),
		short:  indicators.NewSMA(cfg.SMA.ShortPeriod),
		long:   indicators.NewSMA(cfg.SMA.LongPeriod),
		bands:  indicators.NewBollingerBands(cfg.BollingerBands.Period, cfg.BollingerBands.StdDev),
	}
}

func (s *TechnicalSource) Name() string    { return "technical" }
func (s *TechnicalSource) Weight() float64 { return s.weight }

// Vote abstains when no indicator has enough history
func (s *TechnicalSource) Vote(in Input) (Vote, bool) {
	closes := in.Snapshot.Closes()
	v := Vote{Source: s.Name(), MaxPoints: 4, Indicators: map[string]float64{}}
	computed := 0

	if rsi, err := s.rsi.Calculate(closes); err == nil {
		computed++
		v.Indicators["rsi"] = rsi
		switch {
		case rsi < s.cfg.RSI.Oversold:
			v.Points += 2
			v.Reasons = append(v.Reasons, fmt.Sprintf("RSI oversold (%.1f)", rsi))
		case rsi > s.cfg.RSI.Overbought:
			v.Points -= 2
			v.Reasons = append(v.Reasons, fmt.Sprintf("RSI overbought (%.1f)", rsi))
		}
	}

	if m, err := s.macd.Calculate(closes); err == nil {
		computed++
		v.Indicators["macd"] = m.MACD
		v.Indicators["macd_signal"] = m.Signal
		v.Indicators["macd_histogram"] = m.Histogram
		switch {
		case m.Histogram > 0:
			v.Points++
			v.Reasons = append(v.Reasons, "MACD bullish")
		case m.Histogram < 0:
			v.Points--
			v.Reasons = append(v.Reasons, "MACD bearish")
		}
	}

	shortMA, errShort := s.short.Calculate(closes)
	longMA, errLong := s.long.Calculate(closes)
	if errShort == nil && errLong == nil {
		computed++
		v.Indicators["sma_short"] = shortMA
		v.Indicators["sma_long"] = longMA
		switch {
		case shortMA > longMA:
			v.Points++
			v.Reasons = append(v.Reasons, "MA trend bullish")
		case shortMA < longMA:
			v.Points--
			v.Reasons = append(v.Reasons, "MA trend bearish")
		}
	}

	if bb, err := s.bands.Calculate(closes); err == nil {
		v.Indicators["bb_percent"] = bb.PercentB
		v.Indicators["bb_bandwidth"] = bb.Bandwidth
		window := closes[len(closes)-s.cfg.BollingerBands.Period:]
		v.Support, v.Resistance = minMax(window)
	}

	if computed == 0 {
		return Vote{}, false
	}
	return v, true
}

// WhaleSource turns this cycle's alerts into a contextual vote
type WhaleSource struct {
	weight float64
}

// NewWhaleSource creates the alert-driven source
func NewWhaleSource(weight float64) *WhaleSource {
	return &WhaleSource{weight: weight}
}

func (s *WhaleSource) Name() string    { return "whale" }
func (s *WhaleSource) Weight() float64 { return s.weight }

// Vote abstains when the symbol has no alerts this cycle
func (s *WhaleSource) Vote(in Input) (Vote, bool) {
	v := Vote{Source: s.Name(), MaxPoints: 3}
	seen := 0
	for _, a := range in.Alerts {
		if a.Symbol != in.Snapshot.Symbol {
			continue
		}
		seen++
		switch a.Kind {
		case whale.KindWhalePresence:
			v.Points += 2
			v.Reasons = append(v.Reasons, "Strong whale presence")
			if a.Severity == whale.SeverityHigh {
				v.Points++
				v.Reasons = append(v.Reasons, "High institutional concentration")
			}
		case whale.KindInstitutionalFiling:
			pts := 1.0
			if a.Severity == whale.SeverityHigh {
				pts = 2
			}
			v.Points += pts * float64(a.Direction)
			v.Reasons = append(v.Reasons, a.Message)
		case whale.KindVolumeSpike:
			v.Points += float64(a.Direction)
			v.Reasons = append(v.Reasons, a.Message)
		}
	}
	if seen == 0 {
		return Vote{}, false
	}
	v.Points = math.Max(-v.MaxPoints, math.Min(v.MaxPoints, v.Points))
	return v, true
}

// SentimentSource reads the optional external sentiment score on the snapshot
type SentimentSource struct {
	weight    float64
	threshold float64
}

// NewSentimentSource creates the sentiment source
func NewSentimentSource(weight, threshold float64) *SentimentSource {
	return &SentimentSource{weight: weight, threshold: threshold}
}

func (s *SentimentSource) Name() string    { return "sentiment" }
func (s *SentimentSource) Weight() float64 { return s.weight }

// Vote abstains when the snapshot carries no sentiment score
func (s *SentimentSource) Vote(in Input) (Vote, bool) {
	score := in.Snapshot.Sentiment
	if score == nil {
		return Vote{}, false
	}
	v := Vote{Source: s.Name(), MaxPoints: 2, Indicators: map[string]float64{"sentiment": *score}}
	switch {
	case *score > s.threshold:
		v.Points = 2
		v.Reasons = append(v.Reasons, "Positive sentiment")
	case *score < -s.threshold:
		v.Points = -2
		v.Reasons = append(v.Reasons, "Negative sentiment")
	}
	return v, true
}

// VolatilitySource maps realized volatility onto a 1-10 risk score
type VolatilitySource struct {
	weight float64
	window int
}

// NewVolatilitySource creates the volatility source over the given return window
func NewVolatilitySource(weight float64, window int) *VolatilitySource {
	return &VolatilitySource{weight: weight, window: window}
}

func (s *VolatilitySource) Name() string    { return "volatility" }
func (s *VolatilitySource) Weight() float64 { return s.weight }

// RiskScore is ceil(2 x per-period volatility in percent), clamped to [1, 10]
func RiskScore(returns []float64) int {
	vol := indicators.StdDev(returns) * 100
	score := int(math.Ceil(vol * 2))
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}

// Vote abstains without window+1 prices
func (s *VolatilitySource) Vote(in Input) (Vote, bool) {
	closes := in.Snapshot.Closes()
	if s.window <= 0 || len(closes) < s.window+1 {
		return Vote{}, false
	}
	returns := indicators.Returns(closes[len(closes)-s.window-1:])
	score := RiskScore(returns)

	v := Vote{Source: s.Name(), MaxPoints: 1, Indicators: map[string]float64{"risk_score": float64(score)}}
	switch {
	case score <= 3:
		v.Points = 1
		v.Reasons = append(v.Reasons, "Low risk")
	case score >= 8:
		v.Points = -1
		v.Reasons = append(v.Reasons, "High risk")
	}
	return v, true
}

func minMax(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
