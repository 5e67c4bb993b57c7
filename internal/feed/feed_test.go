package feed

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/errors"
	"github.com/ducminhle1904/whale-tracker/internal/safety"
	"github.com/ducminhle1904/whale-tracker/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func quote(symbol string, price float64) types.MarketSnapshot {
	return types.MarketSnapshot{Symbol: symbol, Price: price, Volume: 2e6, Timestamp: now, Status: types.SnapshotAvailable}
}

func guarded(inner Feed, timeout time.Duration) *Guarded {
	g := NewGuarded(inner, timeout, safety.NewCircuitBreakerManager(safety.CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Hour}), nil)
	g.now = func() time.Time { return now }
	return g
}

func TestGuarded_PassesValidSnapshots(t *testing.T) {
	g := guarded(Func(func(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
		return quote(symbol, 150), nil
	}), time.Second)

	snap, err := g.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 150.0, snap.Price)
}

func TestGuarded_Timeout(t *testing.T) {
	g := guarded(Func(func(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
		<-ctx.Done()
		return types.MarketSnapshot{}, ctx.Err()
	}), 10*time.Millisecond)

	snap, err := g.Fetch(context.Background(), "AAPL")
	require.Error(t, err)
	assert.False(t, snap.IsAvailable())
	assert.Equal(t, "AAPL", snap.Symbol)
	assert.True(t, stderrors.Is(err, ErrSourceUnavailable))
	assert.True(t, errors.IsCategory(err, errors.ErrorCategoryTimeout))
}

func TestGuarded_UnavailableAndInvalid(t *testing.T) {
	g := guarded(Func(func(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
		if symbol == "DOWN" {
			return types.Unavailable(symbol, now), nil
		}
		bad := quote(symbol, 150)
		bad.Volume = -1
		return bad, nil
	}), time.Second)

	_, err := g.Fetch(context.Background(), "DOWN")
	assert.True(t, stderrors.Is(err, ErrSourceUnavailable))
	assert.True(t, errors.IsCategory(err, errors.ErrorCategoryTransient))
	botErr, ok := errors.As(err)
	require.True(t, ok)
	assert.True(t, botErr.IsRetryable())
	assert.Equal(t, errors.RecoveryActionRetry, botErr.GetRecoveryAction())

	_, err = g.Fetch(context.Background(), "BAD")
	assert.True(t, stderrors.Is(err, ErrSourceUnavailable))
	assert.True(t, errors.IsCategory(err, errors.ErrorCategoryValidation))
	botErr, ok = errors.As(err)
	require.True(t, ok)
	assert.False(t, botErr.IsRetryable())
}

func TestGuarded_BreakerOpensPerSymbol(t *testing.T) {
	calls := map[string]int{}
	g := guarded(Func(func(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
		calls[symbol]++
		if symbol == "AAPL" {
			return types.MarketSnapshot{}, stderrors.New("connection refused")
		}
		return quote(symbol, 300), nil
	}), time.Second)

	for i := 0; i < 4; i++ {
		_, _ = g.Fetch(context.Background(), "AAPL")
	}
	assert.Equal(t, 2, calls["AAPL"], "breaker stops calling after two failures")

	_, err := g.Fetch(context.Background(), "AAPL")
	assert.True(t, stderrors.Is(err, safety.ErrCircuitOpen))
	botErr, ok := errors.As(err)
	require.True(t, ok)
	assert.False(t, botErr.IsRetryable())

	_, err = g.Fetch(context.Background(), "MSFT")
	assert.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, g.Breakers().GetOpenCircuits())
}

func TestDisclosureOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disclosures.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"aapl": {
			"filing": {"holder": "BLACKROCK INC.", "form_type": "13F", "shares_change": 1200000, "pct_of_shares": 2.4},
			"holders": [{"name": "VANGUARD GROUP INC", "pct_held": 8.1, "shares": 1000}],
			"sentiment": 0.5
		}
	}`), 0644))

	inner := Func(func(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
		return quote(symbol, 150), nil
	})
	o, err := NewDisclosureOverlay(inner, path)
	require.NoError(t, err)

	snap, err := o.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, snap.Filing)
	assert.Equal(t, 2.4, snap.Filing.PctOfShares)
	assert.Len(t, snap.Holders, 1)
	require.NotNil(t, snap.Sentiment)
	assert.Equal(t, 0.5, *snap.Sentiment)

	snap, err = o.Fetch(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Nil(t, snap.Filing)

	_, err = NewDisclosureOverlay(inner, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
