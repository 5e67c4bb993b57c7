package whale

import (
	"testing"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func snapshotWithVolume(volume float64, bars int) types.MarketSnapshot {
	history := make([]types.OHLCV, bars)
	for i := range history {
		history[i] = types.OHLCV{Close: 100, Volume: 1000, Timestamp: base.Add(time.Duration(i-bars) * time.Hour)}
	}
	return types.MarketSnapshot{
		Symbol:    "AAPL",
		Price:     101,
		Volume:    volume,
		Timestamp: base,
		Status:    types.SnapshotAvailable,
		History:   history,
	}
}

func newDetector() *Detector {
	return NewDetector(config.Default().Whale)
}

func TestDetect_VolumeSpikeSeverity(t *testing.T) {
	tests := []struct {
		name     string
		volume   float64
		expected Severity
		alert    bool
	}{
		{"below multiplier", 2900, "", false},
		{"at multiplier", 3000, SeverityMedium, true},
		{"high", 5000, SeverityHigh, true},
	}

	d := newDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := d.Detect(snapshotWithVolume(tt.volume, 20))
			if !tt.alert {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, KindVolumeSpike, alerts[0].Kind)
			assert.Equal(t, tt.expected, alerts[0].Severity)
			assert.Equal(t, 1, alerts[0].Direction)
			assert.Equal(t, base, alerts[0].Timestamp)
		})
	}
}

func TestDetect_ShortHistoryHasNoBaseline(t *testing.T) {
	d := newDetector()
	assert.Empty(t, d.Detect(snapshotWithVolume(100000, 5)))

	_, ok := d.VolumeRatio(snapshotWithVolume(100000, 5))
	assert.False(t, ok)
}

func TestDetect_Filing(t *testing.T) {
	d := newDetector()

	snap := snapshotWithVolume(1000, 20)
	snap.Filing = &types.FilingDelta{Holder: "VANGUARD GROUP INC", PctOfShares: -2.5}
	alerts := d.Detect(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, KindInstitutionalFiling, alerts[0].Kind)
	assert.Equal(t, SeverityMedium, alerts[0].Severity)
	assert.Equal(t, -1, alerts[0].Direction)
	assert.Contains(t, alerts[0].Message, "reduced")

	snap.Filing = &types.FilingDelta{Holder: "VANGUARD GROUP INC", PctOfShares: 0.5}
	assert.Empty(t, d.Detect(snap))

	snap.Filing = &types.FilingDelta{Holder: "VANGUARD GROUP INC", PctOfShares: 6}
	alerts = d.Detect(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
}

func TestDetect_WhalePresence(t *testing.T) {
	d := newDetector()

	snap := snapshotWithVolume(1000, 20)
	snap.Holders = []types.Holder{
		{Name: "BlackRock Inc.", PctHeld: 6.5},
		{Name: "Vanguard Group Inc", PctHeld: 7.9},
		{Name: "Some Family Office", PctHeld: 20},
	}

	alerts := d.Detect(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, KindWhalePresence, alerts[0].Kind)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
	assert.InDelta(t, 14.4, alerts[0].Magnitude, 1e-9)

	snap.Holders = snap.Holders[:1]
	alerts = d.Detect(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityMedium, alerts[0].Severity)
}

func TestDetect_UnavailableSnapshot(t *testing.T) {
	d := newDetector()
	assert.Nil(t, d.Detect(types.Unavailable("AAPL", base)))
}

func TestDetect_Deterministic(t *testing.T) {
	d := newDetector()
	snap := snapshotWithVolume(6000, 25)
	snap.Filing = &types.FilingDelta{Holder: "MORGAN STANLEY", PctOfShares: 3}
	assert.Equal(t, d.Detect(snap), d.Detect(snap))
}
