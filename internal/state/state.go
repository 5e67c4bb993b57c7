package state

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/portfolio"
	"github.com/ducminhle1904/whale-tracker/internal/position"
	"github.com/ducminhle1904/whale-tracker/internal/risk"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

// Version of the persisted document layout
const Version = 1

// ErrStateNotFound is returned by Load when nothing was saved yet
var ErrStateNotFound = stderrors.New("no persisted state")

// PersistedState is the full reconstructable state of the tracker
type PersistedState struct {
	Version       int                             `json:"version"`
	SavedAt       time.Time                       `json:"saved_at"`
	Cycle         uint64                          `json:"cycle"`
	Paused        bool                            `json:"paused"`
	Risk          risk.RiskState                  `json:"risk"`
	OpenPositions []position.Position             `json:"open_positions"`
	History       []position.Position             `json:"history"`
	Alerts        []whale.Alert                   `json:"alerts"`
	Values        []portfolio.ValuePoint          `json:"values"`
	ValuesTrimmed portfolio.DrawdownSummary       `json:"values_trimmed"`
	Snapshots     map[string]types.MarketSnapshot `json:"snapshots,omitempty"`
}

// Validate checks the document before it is applied
func (s *PersistedState) Validate() error {
	if s == nil {
		return fmt.Errorf("state is nil")
	}
	if s.Version != Version {
		return fmt.Errorf("unsupported state version %d", s.Version)
	}
	seen := make(map[string]bool, len(s.OpenPositions))
	for _, p := range s.OpenPositions {
		if seen[p.Symbol] {
			return fmt.Errorf("duplicate open position for %s", p.Symbol)
		}
		seen[p.Symbol] = true
	}
	return nil
}

// Store persists and reloads the state document
type Store interface {
	Save(ctx context.Context, s *PersistedState) error
	Load(ctx context.Context) (*PersistedState, error)
	Name() string
}
