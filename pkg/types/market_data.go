package types

import "time"

// OHLCV is a single bar of the recent-history window.
type OHLCV struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// SnapshotStatus tells whether a snapshot carries a real reading.
type SnapshotStatus string

const (
	SnapshotAvailable   SnapshotStatus = "available"
	SnapshotUnavailable SnapshotStatus = "unavailable"
)

// FilingDelta is a disclosed change in an institutional holder's position.
type FilingDelta struct {
	Holder       string    `json:"holder"`
	FormType     string    `json:"form_type"`
	SharesChange float64   `json:"shares_change"`
	PctOfShares  float64   `json:"pct_of_shares"` // signed, percent of shares outstanding
	FiledAt      time.Time `json:"filed_at"`
}

// Holder is one institutional holder from the latest holders report.
type Holder struct {
	Name    string  `json:"name"`
	PctHeld float64 `json:"pct_held"`
	Shares  float64 `json:"shares"`
}

// MarketSnapshot is the normalized, immutable reading for one symbol in one cycle.
type MarketSnapshot struct {
	Symbol    string         `json:"symbol"`
	Price     float64        `json:"price"`
	Volume    float64        `json:"volume"`
	Timestamp time.Time      `json:"timestamp"`
	Status    SnapshotStatus `json:"status"`

	// High and Low bound the current reading's bar when the source knows it;
	// BarStart is when that bar opened.
	High     float64   `json:"high,omitempty"`
	Low      float64   `json:"low,omitempty"`
	BarStart time.Time `json:"bar_start,omitempty"`

	Filing    *FilingDelta `json:"filing,omitempty"`
	Holders   []Holder     `json:"holders,omitempty"`
	Sentiment *float64     `json:"sentiment,omitempty"` // external score in [-1, 1]

	// History is the bounded recent-history window, oldest first, excluding this reading.
	History []OHLCV `json:"history,omitempty"`
}

// Unavailable builds the marker snapshot for a source that could not be read.
func Unavailable(symbol string, at time.Time) MarketSnapshot {
	return MarketSnapshot{Symbol: symbol, Timestamp: at, Status: SnapshotUnavailable}
}

// IsAvailable reports whether the snapshot carries a usable price.
func (s MarketSnapshot) IsAvailable() bool {
	return s.Status != SnapshotUnavailable && s.Price > 0
}

// Closes returns history closes followed by the current price.
func (s MarketSnapshot) Closes() []float64 {
	out := make([]float64, 0, len(s.History)+1)
	for _, bar := range s.History {
		out = append(out, bar.Close)
	}
	if s.Price > 0 {
		out = append(out, s.Price)
	}
	return out
}

// Volumes returns history volumes, oldest first, without the current reading.
func (s MarketSnapshot) Volumes() []float64 {
	out := make([]float64, 0, len(s.History))
	for _, bar := range s.History {
		out = append(out, bar.Volume)
	}
	return out
}
