package feed

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/errors"
	"github.com/ducminhle1904/whale-tracker/internal/logger"
	"github.com/ducminhle1904/whale-tracker/internal/safety"
	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

// Guarded bounds every fetch with a timeout, a per-symbol circuit breaker and
// snapshot validation. Failures yield an unavailable marker and a categorized error.
type Guarded struct {
	inner     Feed
	timeout   time.Duration
	breakers  *safety.CircuitBreakerManager
	validator *safety.Validator
	logger    *logger.Logger
	now       func() time.Time
}

// NewGuarded wraps inner
func NewGuarded(inner Feed, timeout time.Duration, breakers *safety.CircuitBreakerManager, log *logger.Logger) *Guarded {
	if log == nil {
		log = logger.Nop()
	}
	if breakers == nil {
		breakers = safety.NewCircuitBreakerManager(safety.CircuitBreakerConfig{})
	}
	return &Guarded{
		inner:     inner,
		timeout:   timeout,
		breakers:  breakers,
		validator: safety.NewValidator(),
		logger:    log.With("feed"),
		now:       time.Now,
	}
}

// Breakers exposes the per-symbol breakers for status reporting
func (g *Guarded) Breakers() *safety.CircuitBreakerManager { return g.breakers }

// Fetch reads one snapshot for symbol
func (g *Guarded) Fetch(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
	var snap types.MarketSnapshot

	err := g.breakers.GetOrCreate(symbol).Call(func() error {
		fetchCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		s, err := g.inner.Fetch(fetchCtx, symbol)
		if err != nil {
			return err
		}
		if !s.IsAvailable() {
			return ErrSourceUnavailable
		}
		if r := g.validator.ValidateSnapshot(s, g.now()); !r.Valid {
			return errors.NewValidationError("feed", "fetch", r.Message).WithContext("code", r.Code)
		}
		snap = s
		return nil
	})
	if err == nil {
		return snap, nil
	}

	marker := types.Unavailable(symbol, g.now())
	return marker, g.categorize(symbol, err)
}

func (g *Guarded) categorize(symbol string, err error) error {
	var wrapped error
	if stderrors.Is(err, ErrSourceUnavailable) {
		wrapped = fmt.Errorf("%s: %w", symbol, err)
	} else {
		wrapped = fmt.Errorf("%s: %w: %w", symbol, ErrSourceUnavailable, err)
	}
	g.logger.Debug("%s snapshot unavailable: %v", symbol, err)

	var out *errors.BotError
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		out = errors.NewTimeoutError("feed", "fetch", wrapped)
	case stderrors.Is(err, safety.ErrCircuitOpen):
		out = errors.NewTransientError("feed", "fetch", wrapped).WithRetryable(false)
	case stderrors.Is(err, ErrSourceUnavailable):
		out = errors.NewTransientError("feed", "fetch", wrapped)
	default:
		out = errors.WrapError(wrapped, errors.CategorizeError(err, "feed", "fetch").Category, "feed", "fetch")
	}
	return out.WithContext("symbol", symbol)
}
