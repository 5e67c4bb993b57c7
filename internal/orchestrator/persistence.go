package orchestrator

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/errors"
	"github.com/ducminhle1904/whale-tracker/internal/state"
	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

// Persist saves the current state to the configured store
func (e *Engine) Persist(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.persistLocked(ctx, e.cycleTime(e.clock()))
}

func (e *Engine) persistLocked(ctx context.Context, at time.Time) error {
	if e.opts.Store == nil {
		return nil
	}
	s := e.capture(at)
	if err := e.opts.Store.Save(ctx, s); err != nil {
		e.recordError(err, false)
		return err
	}
	e.logger.Debug("state saved to %s at cycle %d", e.opts.Store.Name(), s.Cycle)
	return nil
}

func (e *Engine) capture(at time.Time) *state.PersistedState {
	e.obsMu.Lock()
	snaps := make(map[string]types.MarketSnapshot, len(e.snapshots))
	for k, v := range e.snapshots {
		snaps[k] = v
	}
	e.obsMu.Unlock()

	return &state.PersistedState{
		Version:       state.Version,
		SavedAt:       at,
		Cycle:         e.cycle,
		Paused:        e.paused,
		Risk:          e.risk.State(),
		OpenPositions: e.tracker.OpenPositions(),
		History:       e.tracker.History(),
		Alerts:        e.alerts.Recent(0),
		Values:        e.values.Points(),
		ValuesTrimmed: e.values.Trimmed(),
		Snapshots:     snaps,
	}
}

// Restore loads persisted state into the tracker, risk manager, alert log
// and value series. A missing document is a fresh start.
func (e *Engine) Restore(ctx context.Context) error {
	if e.opts.Store == nil {
		return nil
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	s, err := e.opts.Store.Load(ctx)
	if stderrors.Is(err, state.ErrStateNotFound) {
		e.logger.Info("no saved state in %s, starting fresh", e.opts.Store.Name())
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return errors.WrapError(err, errors.ErrorCategoryStorage, "orchestrator", "restore").WithRetryable(false)
	}

	if err := e.tracker.Restore(s.OpenPositions, s.History); err != nil {
		return err
	}
	e.risk.Restore(s.Risk)
	e.alerts.Restore(s.Alerts)
	e.values.Restore(s.Values, s.ValuesTrimmed)

	e.cycle = s.Cycle
	e.paused = s.Paused
	e.lastCycleAt = s.SavedAt
	e.metrics.UpdatePaused(e.paused)

	e.obsMu.Lock()
	for k, v := range s.Snapshots {
		e.snapshots[k] = v
		if e.opts.ReplayClock && v.Timestamp.After(e.latest) {
			e.latest = v.Timestamp
		}
	}
	e.obsMu.Unlock()

	at := e.cycleTime(e.clock())
	e.publish(e.buildSnapshot(e.computePortfolio(at), CycleStats{}, at))

	e.logger.Status("restored cycle %d from %s: %d open, %d closed, %d alerts",
		s.Cycle, e.opts.Store.Name(), len(s.OpenPositions), len(s.History), len(s.Alerts))
	return nil
}
