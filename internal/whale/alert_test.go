package whale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alertAt(symbol string, at time.Time) Alert {
	return Alert{Symbol: symbol, Kind: KindVolumeSpike, Severity: SeverityMedium, Timestamp: at}
}

func TestAlertLog_CountBound(t *testing.T) {
	log := NewAlertLog(3, time.Hour)
	for i := 0; i < 5; i++ {
		log.Append(alertAt("AAPL", base.Add(time.Duration(i)*time.Minute)))
	}

	assert.Equal(t, 3, log.Len())
	recent := log.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, base.Add(4*time.Minute), recent[0].Timestamp)
	assert.Equal(t, base.Add(2*time.Minute), recent[2].Timestamp)
}

func TestAlertLog_Prune(t *testing.T) {
	log := NewAlertLog(10, time.Hour)
	log.Append(
		alertAt("AAPL", base.Add(-2*time.Hour)),
		alertAt("MSFT", base.Add(-30*time.Minute)),
		alertAt("AAPL", base),
	)

	removed := log.Prune(base)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, log.Len())
	assert.Len(t, log.ForSymbol("AAPL", base.Add(-time.Hour)), 1)
}

func TestAlertLog_RecentReturnsCopy(t *testing.T) {
	log := NewAlertLog(10, time.Hour)
	log.Append(alertAt("AAPL", base))

	recent := log.Recent(1)
	recent[0].Symbol = "CHANGED"
	assert.Equal(t, "AAPL", log.Recent(1)[0].Symbol)
}

func TestAlertLog_Restore(t *testing.T) {
	log := NewAlertLog(2, time.Hour)
	log.Append(alertAt("OLD", base))

	log.Restore([]Alert{
		alertAt("C", base.Add(3*time.Minute)),
		alertAt("A", base.Add(1*time.Minute)),
		alertAt("B", base.Add(2*time.Minute)),
	})

	recent := log.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "C", recent[0].Symbol)
	assert.Equal(t, "B", recent[1].Symbol)
}
