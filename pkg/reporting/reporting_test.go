package reporting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/orchestrator"
	"github.com/ducminhle1904/whale-tracker/internal/portfolio"
	"github.com/ducminhle1904/whale-tracker/internal/position"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var reportTime = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func closedPosition(id, symbol string, entry, exit, qty float64, reason position.CloseReason) position.Position {
	closed := reportTime
	return position.Position{
		ID:          id,
		Symbol:      symbol,
		Side:        position.SideLong,
		EntryPrice:  entry,
		ExitPrice:   exit,
		Quantity:    qty,
		StopLoss:    entry * 0.97,
		TakeProfit:  entry * 1.06,
		Confidence:  0.8,
		OpenedAt:    reportTime.Add(-2 * time.Hour),
		ClosedAt:    &closed,
		Status:      position.StatusClosed,
		CloseReason: reason,
		RealizedPnL: (exit - entry) * qty,
	}
}

func sampleHistory() []position.Position {
	return []position.Position{
		closedPosition("p-1", "AAPL", 100, 106, 50, position.ReasonTakeProfit),
		closedPosition("p-2", "MSFT", 200, 194, 10, position.ReasonStopLoss),
		{ID: "p-3", Symbol: "NVDA", Side: position.SideLong, Status: position.StatusOpen, EntryPrice: 50, Quantity: 1},
	}
}

func sampleSnapshot() orchestrator.Snapshot {
	return orchestrator.Snapshot{
		Cycle:       12,
		RunState:    orchestrator.StateRunning,
		GeneratedAt: reportTime,
		Symbols:     []string{"AAPL", "MSFT"},
		Portfolio: portfolio.PortfolioState{
			TotalValue:      100240,
			Cash:            95240,
			InitialCapital:  100000,
			TotalPnL:        240,
			TotalPnLPct:     0.24,
			WinRate:         0.5,
			MaxDrawdown:     0.012,
			ClosedPositions: 2,
			Wins:            1,
			Losses:          1,
			Exposure:        5000,
			ExposurePct:     5,
			RiskLevel:       portfolio.RiskLow,
			UpdatedAt:       reportTime,
		},
		RiskStatus: "OK",
		OpenPositions: []position.Position{
			{ID: "p-4", Symbol: "AAPL", Side: position.SideLong, EntryPrice: 100, LastPrice: 101, Quantity: 50, UnrealizedPnL: 50, OpenedAt: reportTime},
		},
		Alerts: []whale.Alert{
			{Symbol: "AAPL", Kind: whale.KindVolumeSpike, Severity: whale.SeverityHigh, Message: "volume 3.2x average", Timestamp: reportTime},
		},
	}
}

func TestConsoleReporter_Render(t *testing.T) {
	var buf bytes.Buffer
	r := NewDefaultConsoleReporter(&buf)

	r.Render(sampleSnapshot())

	out := buf.String()
	assert.Contains(t, out, "WHALE TRACKER  cycle 12")
	assert.Contains(t, out, "OPEN POSITIONS")
	assert.Contains(t, out, "RECENT ALERTS")
	assert.Contains(t, out, "volume 3.2x average")
	assert.Contains(t, out, "50.0% (1/2)")
	assert.Contains(t, out, "1.20%")
}

func TestConsoleReporter_EmptySectionsOmitted(t *testing.T) {
	var buf bytes.Buffer
	r := NewDefaultConsoleReporter(&buf)

	s := sampleSnapshot()
	s.OpenPositions = nil
	s.Alerts = nil
	r.Publish(s)

	out := buf.String()
	assert.Contains(t, out, "WHALE TRACKER")
	assert.NotContains(t, out, "OPEN POSITIONS")
	assert.NotContains(t, out, "RECENT ALERTS")
}

func TestConsoleReporter_PrintConfig(t *testing.T) {
	var buf bytes.Buffer
	NewDefaultConsoleReporter(&buf).PrintConfig([][2]string{{"Symbols", "AAPL,MSFT"}, {"Interval", "1m0s"}})

	assert.Contains(t, buf.String(), "CONFIGURATION")
	assert.Contains(t, buf.String(), "AAPL,MSFT")
}

func TestWriteTradesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trades.xlsx")
	s := sampleSnapshot()

	require.NoError(t, WriteTradesXLSX(sampleHistory(), s.Portfolio, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{tradesSheet, summarySheet}, fx.GetSheetList())

	rows, err := fx.GetRows(tradesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two closed trades")
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "p-1", rows[1][0])
	assert.Equal(t, "stop_loss", rows[2][13])

	pnl, err := fx.GetCellValue(tradesSheet, "L3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "-60", pnl)

	summary, err := fx.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, "Initial Capital", summary[1][0])
	risk, err := fx.GetCellValue(summarySheet, "B18")
	require.NoError(t, err)
	assert.Equal(t, "LOW", risk)
}

func TestWriteTradesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	require.NoError(t, NewDefaultCSVReporter().WriteTradesCSV(sampleHistory(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, tradeHeaders, records[0])
	assert.Equal(t, "AAPL", records[1][1])
	assert.Equal(t, "300.00", records[1][11])
	assert.Equal(t, "6.00", records[1][12])
	assert.Equal(t, "take_profit", records[1][13])
	assert.Equal(t, "2.00", records[1][14])
}

func TestWriteTradesCSV_XLSXSuffixDelegates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.XLSX")

	require.NoError(t, NewDefaultCSVReporter().WriteTradesCSV(sampleHistory(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()
	rows, err := fx.GetRows(tradesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestReportingManager_ReportFinal(t *testing.T) {
	dir := t.TempDir()
	m := NewReportingManager(ReportingConfig{
		OutputDirectory: dir,
		ExcelEnabled:    true,
		CSVEnabled:      true,
		JSONEnabled:     true,
	})

	written, err := m.ReportFinal(sampleSnapshot(), sampleHistory(), reportTime)
	require.NoError(t, err)
	require.Len(t, written, 3)
	assert.Equal(t, filepath.Join(dir, "trades_20260302_150000.xlsx"), written[0])
	assert.Equal(t, filepath.Join(dir, "trades_20260302_150000.csv"), written[1])

	data, err := os.ReadFile(written[2])
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.EqualValues(t, 12, doc["cycle"])
	assert.Equal(t, "RUNNING", doc["run_state"])
}

func TestReportPath_DefaultDirectory(t *testing.T) {
	assert.Equal(t, filepath.Join(DefaultOutputDir, "trades_20260302_150000.csv"), ReportPath("", "trades", "csv", reportTime))
}
