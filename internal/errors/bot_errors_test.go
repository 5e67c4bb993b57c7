package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCategory
	}{
		{"deadline", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"dial", fmt.Errorf("dial tcp 127.0.0.1:6379: connection refused"), ErrorCategoryNetwork},
		{"rate limit", fmt.Errorf("rate limit exceeded"), ErrorCategoryRateLimit},
		{"malformed", fmt.Errorf("malformed snapshot"), ErrorCategoryValidation},
		{"unknown", fmt.Errorf("something odd"), ErrorCategoryTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			botErr := CategorizeError(tt.err, "feed", "fetch")
			require.NotNil(t, botErr)
			assert.Equal(t, tt.expected, botErr.Category)
			assert.True(t, stderrors.Is(botErr, tt.err))
		})
	}
}

func TestCategorizeError_KeepsExistingBotError(t *testing.T) {
	original := NewInvariantError("tracker", "open", "duplicate open position")
	wrapped := fmt.Errorf("cycle: %w", original)

	botErr := CategorizeError(wrapped, "orchestrator", "cycle")
	assert.Same(t, original, botErr)
	assert.True(t, IsCategory(wrapped, ErrorCategoryInvariant))
}

func TestBotError_Flags(t *testing.T) {
	cfgErr := NewConfigurationError("config", "validate", "stop loss must be below take profit")
	assert.True(t, cfgErr.IsFatal())
	assert.False(t, cfgErr.IsRetryable())
	assert.Equal(t, RecoveryActionStop, cfgErr.GetRecoveryAction())

	timeout := NewTimeoutError("feed", "fetch", context.DeadlineExceeded)
	assert.True(t, timeout.IsTransient())
	assert.Equal(t, RecoveryActionRetry, timeout.GetRecoveryAction())
	assert.Equal(t, RecoveryActionSkip, timeout.WithRetryable(false).GetRecoveryAction())

	storage := NewStorageError("state", "save", fmt.Errorf("disk full"))
	assert.Equal(t, RecoveryActionFallback, storage.GetRecoveryAction())
}

func TestBotError_WithContext(t *testing.T) {
	err := NewInvariantError("tracker", "open", "duplicate").WithContext("symbol", "AAPL")
	assert.Equal(t, "AAPL", err.Context["symbol"])
	assert.Contains(t, err.Error(), "INVARIANT")
}

func TestErrorStats(t *testing.T) {
	stats := NewErrorStats(2)
	stats.RecordError(NewTimeoutError("feed", "fetch", context.DeadlineExceeded))
	stats.RecordError(NewTimeoutError("feed", "fetch", context.DeadlineExceeded))
	stats.RecordError(NewInvariantError("tracker", "open", "duplicate"))
	stats.RecordError(nil)

	assert.Equal(t, 3, stats.TotalErrors)
	assert.InDelta(t, 2.0/3.0, stats.GetErrorRate(ErrorCategoryTimeout), 1e-9)
	assert.Len(t, stats.Recent(), 2)
	assert.True(t, stats.HasRecentErrors(ErrorCategoryInvariant, 1))
	assert.False(t, stats.HasRecentErrors(ErrorCategoryTimeout, 2))
}
