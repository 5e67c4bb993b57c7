package database

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/errors"
	"github.com/ducminhle1904/whale-tracker/internal/position"
	"github.com/ducminhle1904/whale-tracker/internal/risk"
	"github.com/ducminhle1904/whale-tracker/internal/signal"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

var closedAt = time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)

func TestRunMigrations(t *testing.T) {
	f := &fakeExecer{}
	require.NoError(t, RunMigrations(context.Background(), f))
	require.Len(t, f.calls, len(migrations))
	assert.Contains(t, f.calls[0].sql, "CREATE TABLE IF NOT EXISTS closed_positions")

	f = &fakeExecer{err: stderrors.New("permission denied")}
	err := RunMigrations(context.Background(), f)
	require.Error(t, err)
	assert.Len(t, f.calls, 1, "stops at the first failure")
}

func TestRecordClosedPosition(t *testing.T) {
	f := &fakeExecer{}
	repo := NewHistoryRepository(f)

	p := position.Position{
		ID: "9b2e", Symbol: "AAPL", Side: position.SideLong, EntryPrice: 100, ExitPrice: 97,
		Quantity: 10, Status: position.StatusClosed, CloseReason: position.ReasonStopLoss,
		RealizedPnL: -30, OpenedAt: closedAt.Add(-time.Hour), ClosedAt: &closedAt,
	}
	require.NoError(t, repo.RecordClosedPosition(context.Background(), p))
	require.Len(t, f.calls, 1)
	assert.True(t, strings.Contains(f.calls[0].sql, "ON CONFLICT (id) DO NOTHING"))
	assert.Equal(t, "9b2e", f.calls[0].args[0])
	assert.Equal(t, "stop_loss", f.calls[0].args[11])
	assert.Equal(t, closedAt, f.calls[0].args[13])

	open := p
	open.Status = position.StatusOpen
	open.ClosedAt = nil
	err := repo.RecordClosedPosition(context.Background(), open)
	assert.True(t, errors.IsCategory(err, errors.ErrorCategoryValidation))
	assert.Len(t, f.calls, 1)
}

func TestRecordAlertAndDecision(t *testing.T) {
	f := &fakeExecer{}
	repo := NewHistoryRepository(f)

	require.NoError(t, repo.RecordAlert(context.Background(), whale.Alert{
		Symbol: "AAPL", Kind: whale.KindVolumeSpike, Severity: whale.SeverityHigh, Magnitude: 5.2, Direction: 1, Timestamp: closedAt,
	}))
	require.NoError(t, repo.RecordDecision(context.Background(), risk.Decision{
		Symbol: "AAPL", Side: signal.DirectionLong, Reason: risk.ReasonStaleSignal, DecidedAt: closedAt,
	}))
	require.Len(t, f.calls, 2)
	assert.Equal(t, "volume_spike", f.calls[0].args[1])
	assert.Equal(t, "stale_signal", f.calls[1].args[3])
}

func TestRecord_StorageErrors(t *testing.T) {
	repo := NewHistoryRepository(&fakeExecer{err: stderrors.New("connection reset")})
	err := repo.RecordAlert(context.Background(), whale.Alert{Symbol: "AAPL", Timestamp: closedAt})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.ErrorCategoryStorage))
	botErr, ok := errors.As(err)
	require.True(t, ok)
	assert.True(t, botErr.IsRetryable())
}
