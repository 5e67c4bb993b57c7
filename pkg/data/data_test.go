package data

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aaplCSV = `timestamp,open,high,low,close,volume
2026-03-02 10:00:00,100,101,99,100.5,1000000
2026-03-02 11:00:00,100.5,102,100,101.5,1200000
2026-03-02 12:00:00,101.5,103,101,102.5,900000
bad-row,1,2,3
2026-03-02 13:00:00,102.5,104,102,103.5,5000000
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestCSVProvider_LoadData(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "AAPL.csv", aaplCSV)

	bars, err := NewCSVProvider().LoadData(path)
	require.NoError(t, err)
	require.Len(t, bars, 4, "malformed row skipped")
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), bars[0].Timestamp)
	assert.Equal(t, 103.5, bars[3].Close)
	assert.NoError(t, NewCSVProvider().ValidateData(bars))
}

func TestCSVProvider_MillisecondTimestamps(t *testing.T) {
	p := NewCSVProviderWithFormat(BybitCSVFormat)
	bars, err := p.read(strings.NewReader("start,o,h,l,c,v\n1772445600000,1,2,0.5,1.5,10\n"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, int64(1772445600000), bars[0].Timestamp.UnixMilli())
}

func TestCSVProvider_ValidateData(t *testing.T) {
	p := NewCSVProvider()
	assert.Error(t, p.ValidateData(nil))

	bars, err := p.read(strings.NewReader(aaplCSV))
	require.NoError(t, err)
	bars[1].Timestamp = bars[0].Timestamp
	assert.Error(t, p.ValidateData(bars))

	_, err = p.read(strings.NewReader("h\nx,1,1,1,1,1\n"))
	assert.Error(t, err)
}

func TestCachedProvider(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "AAPL.csv", aaplCSV)

	cp := NewCachedProvider(NewCSVProvider())
	first, err := cp.LoadData(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	second, err := cp.LoadData(path)
	require.NoError(t, err, "served from cache")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cp.GetCacheSize())
}

func TestFindDataFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, filepath.Join("MSFT", "candles.csv"), aaplCSV)

	path, _ := FindDataFile(dir, "msft")
	assert.Equal(t, filepath.Join(dir, "MSFT", "candles.csv"), path)

	path, tried := FindDataFile(dir, "NVDA")
	assert.Empty(t, path)
	assert.Len(t, tried, 3)
}

func TestReplayFeed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AAPL.csv", aaplCSV)

	f := NewReplayFeed(dir, 2)
	ctx := context.Background()

	snap, err := f.Fetch(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 102.5, snap.Price)
	assert.Len(t, snap.History, 2, "first two bars seed the window")
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), snap.Timestamp)
	assert.Equal(t, snap.Timestamp, snap.BarStart, "each replayed bar starts a fresh range")
	assert.Equal(t, 1, f.Remaining("AAPL"))

	snap, err = f.Fetch(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 103.5, snap.Price)
	assert.Equal(t, 5e6, snap.Volume)
	assert.Equal(t, []float64{101.5, 102.5, 103.5}, snap.Closes())
	assert.True(t, f.Exhausted([]string{"AAPL"}))

	_, err = f.Fetch(ctx, "AAPL")
	assert.True(t, stderrors.Is(err, ErrReplayExhausted))

	_, err = f.Fetch(ctx, "NVDA")
	assert.Error(t, err)
	assert.Equal(t, -1, f.Remaining("NVDA"))
}
