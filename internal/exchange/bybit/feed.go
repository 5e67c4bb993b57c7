package bybit

import (
	"context"
	"fmt"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/safety"
	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

type marketData interface {
	GetTicker(ctx context.Context, category, symbol string) (Ticker, error)
	GetKlines(ctx context.Context, params KlineParams) ([]Kline, error)
}

// SnapshotFeed builds market snapshots from the last-traded price and recent
// klines. Volumes are quote-currency turnover. The newest kline is the bar in
// progress and only bounds the price range; the last completed bar is the
// current volume reading and the bars before it form the history window.
type SnapshotFeed struct {
	market   marketData
	category string
	interval KlineInterval
	bars     int
	limiter  *safety.RateLimiter
	retry    RetryConfig
	now      func() time.Time
}

// NewSnapshotFeed creates a feed keeping bars bars of history per snapshot
func NewSnapshotFeed(client *Client, category, interval string, bars int) *SnapshotFeed {
	return newSnapshotFeed(client, category, interval, bars)
}

func newSnapshotFeed(market marketData, category, interval string, bars int) *SnapshotFeed {
	if bars <= 0 {
		bars = 100
	}
	return &SnapshotFeed{
		market:   market,
		category: category,
		interval: KlineInterval(interval),
		bars:     bars,
		// Bybit allows 600 requests per 5s per IP; stay well below it.
		limiter: safety.NewRateLimiter("bybit", 20, 10),
		retry:   DefaultRetryConfig(),
		now:     time.Now,
	}
}

// Fetch reads one snapshot for symbol
func (f *SnapshotFeed) Fetch(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
	var ticker Ticker
	err := f.call(ctx, func() error {
		var err error
		ticker, err = f.market.GetTicker(ctx, f.category, symbol)
		return err
	})
	if err != nil {
		return types.Unavailable(symbol, f.now()), fmt.Errorf("ticker %s: %w", symbol, err)
	}

	var klines []Kline
	err = f.call(ctx, func() error {
		var err error
		klines, err = f.market.GetKlines(ctx, KlineParams{
			Category: f.category,
			Symbol:   symbol,
			Interval: f.interval,
			Limit:    f.bars + 2,
		})
		return err
	})
	if err != nil {
		return types.Unavailable(symbol, f.now()), fmt.Errorf("klines %s: %w", symbol, err)
	}

	return buildSnapshot(symbol, ticker, klines, f.now()), nil
}

func (f *SnapshotFeed) call(ctx context.Context, fn func() error) error {
	return Retry(ctx, f.retry, func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn()
	})
}

func buildSnapshot(symbol string, ticker Ticker, klines []Kline, now time.Time) types.MarketSnapshot {
	snap := types.MarketSnapshot{
		Symbol:    symbol,
		Price:     ticker.LastPrice,
		Timestamp: now,
		Status:    types.SnapshotAvailable,
	}
	if len(klines) == 0 {
		snap.Volume = ticker.Turnover24h
		return snap
	}

	current := klines[len(klines)-1]
	snap.High = current.HighPrice
	snap.Low = current.LowPrice
	snap.BarStart = current.StartTime
	if len(klines) == 1 {
		snap.Volume = ticker.Turnover24h
		return snap
	}

	completed := klines[:len(klines)-1]
	snap.Volume = completed[len(completed)-1].Turnover
	snap.History = make([]types.OHLCV, 0, len(completed)-1)
	for _, k := range completed[:len(completed)-1] {
		snap.History = append(snap.History, types.OHLCV{
			Open:      k.OpenPrice,
			High:      k.HighPrice,
			Low:       k.LowPrice,
			Close:     k.ClosePrice,
			Volume:    k.Turnover,
			Timestamp: k.StartTime,
		})
	}
	return snap
}
