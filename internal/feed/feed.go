package feed

import (
	"context"
	stderrors "errors"

	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

// ErrSourceUnavailable marks a symbol whose snapshot could not be read this cycle
var ErrSourceUnavailable = stderrors.New("snapshot source unavailable")

// Feed supplies one normalized snapshot per symbol per cycle
type Feed interface {
	Fetch(ctx context.Context, symbol string) (types.MarketSnapshot, error)
}

// Func adapts a function to the Feed interface
type Func func(ctx context.Context, symbol string) (types.MarketSnapshot, error)

// Fetch calls f
func (f Func) Fetch(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
	return f(ctx, symbol)
}
