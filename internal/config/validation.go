package config

import (
	"fmt"

	boterrors "github.com/ducminhle1904/whale-tracker/internal/errors"
)

func configError(format string, args ...interface{}) error {
	return boterrors.NewConfigurationError("config", "validate", fmt.Sprintf(format, args...))
}

func inUnitInterval(v float64) bool {
	return v > 0 && v <= 1
}

// Validate rejects a configuration the core must not start with
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return configError("at least one symbol is required")
	}
	if len(c.Symbols) > MaxSymbols {
		return configError("too many symbols: %d (max %d)", len(c.Symbols), MaxSymbols)
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, sym := range c.Symbols {
		if sym == "" {
			return configError("empty symbol in symbol set")
		}
		if seen[sym] {
			return configError("duplicate symbol: %s", sym)
		}
		seen[sym] = true
	}
	if c.InitialCapital <= 0 {
		return configError("initial capital must be positive, got: %.2f", c.InitialCapital)
	}

	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Signal.validate(); err != nil {
		return err
	}
	if err := c.Whale.validate(); err != nil {
		return err
	}

	if c.Runtime.UpdateInterval.Std() <= 0 || c.Runtime.FetchTimeout.Std() <= 0 {
		return configError("update interval and fetch timeout must be positive")
	}
	if c.Runtime.FetchTimeout.Std() >= c.Runtime.UpdateInterval.Std() {
		return configError("fetch timeout (%s) must be shorter than the update interval (%s)",
			c.Runtime.FetchTimeout.Std(), c.Runtime.UpdateInterval.Std())
	}
	if c.Runtime.Workers < 1 {
		return configError("workers must be at least 1, got: %d", c.Runtime.Workers)
	}

	switch c.Feed.Source {
	case "bybit":
	case "csv":
		if c.Feed.DataDir == "" {
			return configError("csv feed requires data_dir")
		}
	default:
		return configError("unknown feed source: %s", c.Feed.Source)
	}

	if n := c.Notifications; n != nil && n.Enabled && (n.TelegramToken == "" || n.TelegramChat == "") {
		return configError("telegram notifications require token and chat id")
	}

	return nil
}

func (r RiskConfig) validate() error {
	fractions := map[string]float64{
		"max_position_fraction": r.MaxPositionFraction,
		"max_daily_loss":        r.MaxDailyLoss,
		"stop_loss_pct":         r.StopLossPct,
		"take_profit_pct":       r.TakeProfitPct,
		"min_confidence":        r.MinConfidence,
		"max_exposure":          r.MaxExposure,
		"reversal_confidence":   r.ReversalConfidence,
	}
	for _, name := range []string{"max_position_fraction", "max_daily_loss", "stop_loss_pct",
		"take_profit_pct", "min_confidence", "max_exposure", "reversal_confidence"} {
		if !inUnitInterval(fractions[name]) {
			return configError("%s must be in (0, 1], got: %.4f", name, fractions[name])
		}
	}
	if r.StopLossPct >= r.TakeProfitPct {
		return configError("stop loss (%.4f) must be below take profit (%.4f)", r.StopLossPct, r.TakeProfitPct)
	}
	if r.MinRiskReward <= 0 {
		return configError("min risk/reward must be positive, got: %.2f", r.MinRiskReward)
	}
	if r.TakeProfitPct/r.StopLossPct < r.MinRiskReward {
		return configError("take profit / stop loss ratio %.2f is below min risk/reward %.2f",
			r.TakeProfitPct/r.StopLossPct, r.MinRiskReward)
	}
	if r.MaxPositionFraction > r.MaxExposure {
		return configError("max position fraction (%.4f) exceeds max exposure (%.4f)", r.MaxPositionFraction, r.MaxExposure)
	}
	if r.MaxOpenPositions < 1 {
		return configError("max open positions must be at least 1, got: %d", r.MaxOpenPositions)
	}
	if r.MinVolume < 0 {
		return configError("min volume cannot be negative")
	}
	if r.LotSize <= 0 {
		return configError("lot size must be positive, got: %f", r.LotSize)
	}
	if r.MaxSignalAge.Std() <= 0 || r.MaxHoldingTime.Std() <= 0 {
		return configError("max signal age and max holding time must be positive")
	}
	return nil
}

func (s SignalConfig) validate() error {
	if s.RSI.Period < 2 {
		return configError("RSI period must be at least 2")
	}
	if s.RSI.Oversold <= 0 || s.RSI.Overbought >= 100 || s.RSI.Oversold >= s.RSI.Overbought {
		return configError("RSI thresholds must satisfy 0 < oversold < overbought < 100")
	}
	if s.MACD.FastPeriod >= s.MACD.SlowPeriod {
		return configError("MACD fast period must be shorter than slow period")
	}
	if s.SMA.ShortPeriod >= s.SMA.LongPeriod {
		return configError("SMA short period must be shorter than long period")
	}
	w := s.Weights
	if w.Technical < 0 || w.Whale < 0 || w.Sentiment < 0 || w.Volatility < 0 {
		return configError("signal weights cannot be negative")
	}
	if s.ConflictPenalty < 0 || s.ConflictPenalty >= 1 {
		return configError("conflict penalty must be in [0, 1)")
	}
	return nil
}

func (w WhaleConfig) validate() error {
	if w.VolumeSpikeMultiplier <= 1 {
		return configError("volume spike multiplier must be above 1, got: %.2f", w.VolumeSpikeMultiplier)
	}
	if w.HighSeverityMultiplier < w.VolumeSpikeMultiplier {
		return configError("high severity multiplier must be at least the spike multiplier")
	}
	if w.FilingChangePct <= 0 {
		return configError("filing change pct must be positive")
	}
	if w.MaxAlerts < 1 || w.AlertRetention.Std() <= 0 {
		return configError("alert log bounds must be positive")
	}
	return nil
}
