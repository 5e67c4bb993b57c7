package signal

import (
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/whale"
	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

// Direction is the recommended side of a signal
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionHold  Direction = "HOLD"
)

// Opposes reports whether two directions point to opposite sides
func (d Direction) Opposes(other Direction) bool {
	return (d == DirectionLong && other == DirectionShort) || (d == DirectionShort && other == DirectionLong)
}

// Signal is a directional recommendation produced once per evaluation cycle; never mutated
type Signal struct {
	Symbol      string             `json:"symbol"`
	Direction   Direction          `json:"direction"`
	Confidence  float64            `json:"confidence"`
	Score       float64            `json:"score"`
	Price       float64            `json:"price"`
	Volume      float64            `json:"volume"`
	GeneratedAt time.Time          `json:"generated_at"`
	Indicators  map[string]float64 `json:"indicators,omitempty"`
	Reasons     []string           `json:"reasons,omitempty"`

	// Support and Resistance are optional price levels from recent history, zero when unknown
	Support    float64 `json:"support,omitempty"`
	Resistance float64 `json:"resistance,omitempty"`
}

// Age returns how long ago the signal was generated
func (s Signal) Age(now time.Time) time.Duration {
	return now.Sub(s.GeneratedAt)
}

// Input is everything a source may look at: the snapshot with its bounded history and this cycle's alerts
type Input struct {
	Snapshot types.MarketSnapshot
	Alerts   []whale.Alert
}

// Vote is one source's contribution in raw points
type Vote struct {
	Source     string
	Points     float64 // signed, positive is bullish
	MaxPoints  float64
	Reasons    []string
	Indicators map[string]float64
	Support    float64
	Resistance float64
}

// Source produces a vote from an input, or abstains
type Source interface {
	Name() string
	Weight() float64
	Vote(in Input) (Vote, bool)
}
