package reporting

import (
	"github.com/ducminhle1904/whale-tracker/internal/orchestrator"
	"github.com/ducminhle1904/whale-tracker/internal/portfolio"
	"github.com/ducminhle1904/whale-tracker/internal/position"
)

// ConsoleReporter renders the dashboard to a terminal
type ConsoleReporter interface {
	Render(s orchestrator.Snapshot)
	PrintConfig(rows [][2]string)
}

// FileReporter writes trade history and snapshots to disk
type FileReporter interface {
	WriteTradesCSV(history []position.Position, path string) error
	WriteTradesXLSX(history []position.Position, summary portfolio.PortfolioState, path string) error
	WriteSnapshotJSON(s orchestrator.Snapshot, path string) error
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	BaseStyle     int
	LossStyle     int
	ProfitStyle   int
	SummaryStyle  int
}

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
}
