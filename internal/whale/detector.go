package whale

import (
	"fmt"
	"math"
	"strings"

	"github.com/ducminhle1904/whale-tracker/internal/config"
	"github.com/ducminhle1904/whale-tracker/internal/indicators"
	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

// Detector derives institutional-activity alerts from a snapshot
type Detector struct {
	cfg     config.WhaleConfig
	targets map[string]bool
}

// NewDetector creates a detector for the configured thresholds and target institutions
func NewDetector(cfg config.WhaleConfig) *Detector {
	targets := make(map[string]bool, len(cfg.TargetInstitutions))
	for _, name := range cfg.TargetInstitutions {
		targets[normalizeHolder(name)] = true
	}
	return &Detector{cfg: cfg, targets: targets}
}

// Detect returns zero or more alerts for the snapshot; the same snapshot always yields the same alerts
func (d *Detector) Detect(snap types.MarketSnapshot) []Alert {
	if !snap.IsAvailable() {
		return nil
	}

	var alerts []Alert
	if a, ok := d.volumeSpike(snap); ok {
		alerts = append(alerts, a)
	}
	if a, ok := d.filing(snap); ok {
		alerts = append(alerts, a)
	}
	if a, ok := d.presence(snap); ok {
		alerts = append(alerts, a)
	}
	return alerts
}

// VolumeRatio returns current volume over the rolling baseline, false when the baseline is not available
func (d *Detector) VolumeRatio(snap types.MarketSnapshot) (float64, bool) {
	volumes := snap.Volumes()
	window := d.cfg.VolumeBaselineWindow
	if window <= 0 || len(volumes) < window {
		return 0, false
	}
	baseline := indicators.Mean(volumes[len(volumes)-window:])
	if baseline <= 0 {
		return 0, false
	}
	return snap.Volume / baseline, true
}

func (d *Detector) volumeSpike(snap types.MarketSnapshot) (Alert, bool) {
	ratio, ok := d.VolumeRatio(snap)
	if !ok || ratio < d.cfg.VolumeSpikeMultiplier {
		return Alert{}, false
	}

	severity := SeverityMedium
	if ratio >= d.cfg.HighSeverityMultiplier {
		severity = SeverityHigh
	}

	direction := 0
	if n := len(snap.History); n > 0 {
		direction = sign(snap.Price - snap.History[n-1].Close)
	}

	return Alert{
		Symbol:    snap.Symbol,
		Kind:      KindVolumeSpike,
		Severity:  severity,
		Message:   fmt.Sprintf("%s: volume spike of %.2fx detected", snap.Symbol, ratio),
		Magnitude: ratio,
		Direction: direction,
		Timestamp: snap.Timestamp,
	}, true
}

func (d *Detector) filing(snap types.MarketSnapshot) (Alert, bool) {
	f := snap.Filing
	if f == nil {
		return Alert{}, false
	}
	change := math.Abs(f.PctOfShares)
	if change < d.cfg.FilingChangePct {
		return Alert{}, false
	}

	severity := SeverityLow
	switch {
	case change >= d.cfg.FilingHighPct:
		severity = SeverityHigh
	case change >= d.cfg.FilingMediumPct:
		severity = SeverityMedium
	}

	verb := "increased"
	if f.PctOfShares < 0 {
		verb = "reduced"
	}

	return Alert{
		Symbol:    snap.Symbol,
		Kind:      KindInstitutionalFiling,
		Severity:  severity,
		Message:   fmt.Sprintf("%s: %s %s position by %.2f%% of shares outstanding", snap.Symbol, f.Holder, verb, change),
		Magnitude: f.PctOfShares,
		Direction: sign(f.PctOfShares),
		Timestamp: snap.Timestamp,
	}, true
}

func (d *Detector) presence(snap types.MarketSnapshot) (Alert, bool) {
	count := 0
	total := 0.0
	for _, h := range snap.Holders {
		if d.targets[normalizeHolder(h.Name)] {
			count++
			total += h.PctHeld
		}
	}
	if count == 0 {
		return Alert{}, false
	}

	severity := SeverityMedium
	if total > d.cfg.PresenceHighPct {
		severity = SeverityHigh
	}

	return Alert{
		Symbol:    snap.Symbol,
		Kind:      KindWhalePresence,
		Severity:  severity,
		Message:   fmt.Sprintf("%s: %d institutional whales detected (%.2f%% of total)", snap.Symbol, count, total),
		Magnitude: total,
		Direction: 1,
		Timestamp: snap.Timestamp,
	}, true
}

func normalizeHolder(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	name = strings.NewReplacer(".", "", ",", "").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
