package data

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

// ErrReplayExhausted is returned once every recorded bar of a symbol was served
var ErrReplayExhausted = stderrors.New("replay exhausted")

// ReplayFeed serves recorded bars one per fetch, so each cycle advances every
// symbol by one bar. The first historyBars bars only seed the history window.
type ReplayFeed struct {
	provider    DataProvider
	dataDir     string
	historyBars int

	mu     sync.Mutex
	series map[string][]types.OHLCV
	cursor map[string]int
}

// NewReplayFeed reads {dataDir}/{SYMBOL}.csv files through a cached CSV provider
func NewReplayFeed(dataDir string, historyBars int) *ReplayFeed {
	return NewReplayFeedWithProvider(NewCachedProvider(NewCSVProvider()), dataDir, historyBars)
}

// NewReplayFeedWithProvider uses a custom provider
func NewReplayFeedWithProvider(provider DataProvider, dataDir string, historyBars int) *ReplayFeed {
	if historyBars < 0 {
		historyBars = 0
	}
	return &ReplayFeed{
		provider:    provider,
		dataDir:     dataDir,
		historyBars: historyBars,
		series:      make(map[string][]types.OHLCV),
		cursor:      make(map[string]int),
	}
}

// Fetch returns the next recorded bar of symbol as a snapshot
func (f *ReplayFeed) Fetch(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return types.MarketSnapshot{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	bars, err := f.loadLocked(symbol)
	if err != nil {
		return types.MarketSnapshot{}, err
	}

	i := f.cursor[symbol]
	if i >= len(bars) {
		return types.MarketSnapshot{}, fmt.Errorf("%s: %w", symbol, ErrReplayExhausted)
	}
	f.cursor[symbol] = i + 1

	start := i - f.historyBars
	if start < 0 {
		start = 0
	}
	bar := bars[i]
	return types.MarketSnapshot{
		Symbol:    symbol,
		Price:     bar.Close,
		Volume:    bar.Volume,
		High:      bar.High,
		Low:       bar.Low,
		BarStart:  bar.Timestamp,
		Timestamp: bar.Timestamp,
		Status:    types.SnapshotAvailable,
		History:   append([]types.OHLCV(nil), bars[start:i]...),
	}, nil
}

func (f *ReplayFeed) loadLocked(symbol string) ([]types.OHLCV, error) {
	if bars, ok := f.series[symbol]; ok {
		return bars, nil
	}

	path, tried := FindDataFile(f.dataDir, symbol)
	if path == "" {
		return nil, fmt.Errorf("no data file for %s, tried %v", symbol, tried)
	}
	bars, err := f.provider.LoadData(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	f.series[symbol] = bars
	warmup := f.historyBars
	if warmup > len(bars)-1 {
		warmup = len(bars) - 1
	}
	if warmup < 0 {
		warmup = 0
	}
	f.cursor[symbol] = warmup
	return bars, nil
}

// Remaining reports how many bars of symbol are left to serve
func (f *ReplayFeed) Remaining(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	bars, ok := f.series[symbol]
	if !ok {
		return -1
	}
	return len(bars) - f.cursor[symbol]
}

// Exhausted reports whether every loaded symbol has been fully served
func (f *ReplayFeed) Exhausted(symbols []string) bool {
	for _, s := range symbols {
		if f.Remaining(s) != 0 {
			return false
		}
	}
	return len(symbols) > 0
}
