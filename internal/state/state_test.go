package state

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/portfolio"
	"github.com/ducminhle1904/whale-tracker/internal/position"
	"github.com/ducminhle1904/whale-tracker/internal/risk"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var savedAt = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func sampleState(cycle uint64) *PersistedState {
	closedAt := savedAt.Add(-time.Hour)
	return &PersistedState{
		Version: Version,
		SavedAt: savedAt,
		Cycle:   cycle,
		Risk: risk.RiskState{
			TradingDay:       "2026-03-02",
			DayStartValue:    100000,
			DailyRealizedPnL: -120,
			DailyLossLimit:   2000,
			OpenPositions:    1,
			Exposure:         4000,
			OpenNotional:     map[string]float64{"AAPL": 4000},
		},
		OpenPositions: []position.Position{
			{ID: "p-1", Symbol: "AAPL", Side: position.SideLong, EntryPrice: 100, Quantity: 40, StopLoss: 97, TakeProfit: 106, Status: position.StatusOpen, OpenedAt: savedAt},
		},
		History: []position.Position{
			{ID: "p-0", Symbol: "MSFT", Side: position.SideShort, EntryPrice: 300, Quantity: 10, Status: position.StatusClosed, CloseReason: position.ReasonStopLoss, ExitPrice: 312, RealizedPnL: -120, ClosedAt: &closedAt, OpenedAt: savedAt.Add(-2 * time.Hour)},
		},
		Alerts: []whale.Alert{{Symbol: "AAPL", Kind: whale.KindVolumeSpike, Severity: whale.SeverityHigh, Message: "spike", Timestamp: savedAt}},
		Values: []portfolio.ValuePoint{{At: savedAt, Value: 99880}},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "state", "whale_tracker.json"), nil)

	_, err := store.Load(ctx)
	assert.True(t, stderrors.Is(err, ErrStateNotFound))

	require.NoError(t, store.Save(ctx, sampleState(1)))
	_, err = os.Stat(store.BackupPath())
	assert.True(t, os.IsNotExist(err), "no backup before the second save")

	require.NoError(t, store.Save(ctx, sampleState(2)))
	_, err = os.Stat(store.BackupPath())
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleState(2), loaded)
}

func TestFileStore_FallsBackToBackup(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "whale_tracker.json"), nil)
	require.NoError(t, store.Save(ctx, sampleState(1)))
	require.NoError(t, store.Save(ctx, sampleState(2)))

	require.NoError(t, os.WriteFile(store.Path(), []byte("{corrupt"), 0644))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), loaded.Cycle)
}

func TestFileStore_BothUnusable(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "whale_tracker.json"), nil)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{corrupt"), 0644))

	_, err := store.Load(ctx)
	require.Error(t, err)
	assert.False(t, stderrors.Is(err, ErrStateNotFound))
}

func TestValidate(t *testing.T) {
	s := sampleState(1)
	assert.NoError(t, s.Validate())

	s.Version = 99
	assert.Error(t, s.Validate())

	s = sampleState(1)
	s.OpenPositions = append(s.OpenPositions, s.OpenPositions[0])
	assert.Error(t, s.Validate())

	var nilState *PersistedState
	assert.Error(t, nilState.Validate())
}

func TestRedisStore_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(nil, "whale_tracker:state", nil)
	assert.False(t, store.Available())

	_, err := store.Load(ctx)
	assert.True(t, stderrors.Is(err, ErrStateNotFound))

	require.NoError(t, store.Save(ctx, sampleState(3)))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleState(3), loaded)
	assert.NoError(t, store.Close())
}

func TestRedisStore_UnreachableFallsBack(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	store := NewRedisStore(client, "whale_tracker:state", nil)
	defer store.Close()

	assert.False(t, store.Available())
	require.NoError(t, store.Save(ctx, sampleState(4)))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), loaded.Cycle)
}

type failingStore struct{}

func (failingStore) Name() string { return "failing" }
func (failingStore) Save(context.Context, *PersistedState) error {
	return stderrors.New("disk full")
}
func (failingStore) Load(context.Context) (*PersistedState, error) {
	return nil, stderrors.New("disk gone")
}

func TestTieredStore(t *testing.T) {
	ctx := context.Background()
	memory := NewRedisStore(nil, "k", nil)
	tiered := NewTieredStore(nil, failingStore{}, memory)

	require.NoError(t, tiered.Save(ctx, sampleState(5)), "one healthy store is enough")
	loaded, err := tiered.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), loaded.Cycle)

	_, err = NewTieredStore(nil, NewRedisStore(nil, "empty", nil)).Load(ctx)
	assert.True(t, stderrors.Is(err, ErrStateNotFound))

	assert.Error(t, NewTieredStore(nil, failingStore{}).Save(ctx, sampleState(6)))
}
