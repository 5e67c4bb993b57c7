package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ducminhle1904/whale-tracker/pkg/types"
)

// Disclosure is the per-symbol institutional data a price feed does not carry
type Disclosure struct {
	Filing    *types.FilingDelta `json:"filing,omitempty"`
	Holders   []types.Holder     `json:"holders,omitempty"`
	Sentiment *float64           `json:"sentiment,omitempty"`
}

// DisclosureOverlay decorates snapshots from a price feed with filings, holders
// and sentiment read from a JSON file keyed by symbol
type DisclosureOverlay struct {
	inner Feed
	path  string

	mu   sync.RWMutex
	data map[string]Disclosure
}

// NewDisclosureOverlay loads path and wraps inner
func NewDisclosureOverlay(inner Feed, path string) (*DisclosureOverlay, error) {
	o := &DisclosureOverlay{inner: inner, path: path}
	if err := o.Reload(); err != nil {
		return nil, err
	}
	return o, nil
}

// Reload re-reads the disclosure file
func (o *DisclosureOverlay) Reload() error {
	raw, err := os.ReadFile(o.path)
	if err != nil {
		return fmt.Errorf("failed to read disclosures %s: %w", o.path, err)
	}
	var data map[string]Disclosure
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse disclosures %s: %w", o.path, err)
	}
	normalized := make(map[string]Disclosure, len(data))
	for symbol, d := range data {
		normalized[strings.ToUpper(symbol)] = d
	}

	o.mu.Lock()
	o.data = normalized
	o.mu.Unlock()
	return nil
}

// Fetch reads the price snapshot and fills the fields the price feed left empty
func (o *DisclosureOverlay) Fetch(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
	snap, err := o.inner.Fetch(ctx, symbol)
	if err != nil || !snap.IsAvailable() {
		return snap, err
	}

	o.mu.RLock()
	d, ok := o.data[strings.ToUpper(symbol)]
	o.mu.RUnlock()
	if !ok {
		return snap, nil
	}

	if snap.Filing == nil && d.Filing != nil {
		f := *d.Filing
		snap.Filing = &f
	}
	if len(snap.Holders) == 0 && len(d.Holders) > 0 {
		snap.Holders = append([]types.Holder(nil), d.Holders...)
	}
	if snap.Sentiment == nil && d.Sentiment != nil {
		s := *d.Sentiment
		snap.Sentiment = &s
	}
	return snap, nil
}
