package reporting

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/portfolio"
	"github.com/ducminhle1904/whale-tracker/internal/position"
)

// DefaultCSVReporter writes the trade history as CSV
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteTradesCSV writes closed positions to path; an .xlsx path is delegated to the Excel writer
func (r *DefaultCSVReporter) WriteTradesCSV(history []position.Position, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteTradesXLSX(history, portfolio.PortfolioState{}, path)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tradeHeaders); err != nil {
		return err
	}

	for _, p := range history {
		if p.Status != position.StatusClosed || p.ClosedAt == nil {
			continue
		}
		record := []string{
			p.ID,
			p.Symbol,
			string(p.Side),
			p.OpenedAt.UTC().Format(time.RFC3339),
			p.ClosedAt.UTC().Format(time.RFC3339),
			formatFloat(p.EntryPrice),
			formatFloat(p.ExitPrice),
			formatFloat(p.Quantity),
			formatFloat(p.StopLoss),
			formatFloat(p.TakeProfit),
			formatFloat(p.Confidence),
			strconv.FormatFloat(p.RealizedPnL, 'f', 2, 64),
			strconv.FormatFloat(p.ReturnPct(), 'f', 2, 64),
			string(p.CloseReason),
			strconv.FormatFloat(p.HoldingTime(*p.ClosedAt).Hours(), 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
